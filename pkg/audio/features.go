package audio

import (
	"math"
)

// FrameFeatures holds the short-horizon signal features extracted from a
// single PCM frame (16-bit little-endian mono, the same wire format the rest
// of the pipeline uses).
type FrameFeatures struct {
	// Energy is the RMS level of the frame, normalized to [0, 1].
	Energy float64
	// ZeroCrossingRate is the fraction of adjacent sample pairs that change
	// sign. High values indicate fricatives/breath noise, low values voiced
	// speech.
	ZeroCrossingRate float64
	// Pitch is a coarse autocorrelation-based estimate of the fundamental
	// frequency in Hz. Zero when the frame looks unvoiced or too quiet.
	Pitch float64
	// LowBandRatio is the share of spectral energy below ~1kHz, estimated via
	// a one-pole split. Voiced speech is low-band heavy; hiss and prep noise
	// are not.
	LowBandRatio float64
}

const (
	minPitchHz = 60.0
	maxPitchHz = 400.0
	// Frames quieter than this are treated as silence for pitch purposes.
	voicingEnergyFloor = 0.008
)

// AnalyzeFrame extracts FrameFeatures from a raw PCM chunk.
// An empty or undersized chunk yields a zero-valued feature set.
func AnalyzeFrame(pcm []byte, sampleRate int) FrameFeatures {
	samples := BytesToSamples(pcm)
	if len(samples) < 2 || sampleRate <= 0 {
		return FrameFeatures{}
	}

	var f FrameFeatures
	f.Energy = rms(samples)
	f.ZeroCrossingRate = zeroCrossingRate(samples)
	f.LowBandRatio = lowBandRatio(samples, sampleRate)
	if f.Energy >= voicingEnergyFloor {
		f.Pitch = estimatePitch(samples, sampleRate)
	}
	return f
}

// BytesToSamples converts 16-bit little-endian PCM into float64 samples in
// [-1, 1].
func BytesToSamples(data []byte) []float64 {
	samples := make([]float64, 0, len(data)/2)
	for i := 0; i < len(data)-1; i += 2 {
		sample := int16(data[i]) | (int16(data[i+1]) << 8)
		samples = append(samples, float64(sample)/32768.0)
	}
	return samples
}

func rms(samples []float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	return math.Sqrt(sum / float64(len(samples)))
}

func zeroCrossingRate(samples []float64) float64 {
	if len(samples) < 2 {
		return 0
	}
	crossings := 0
	for i := 1; i < len(samples); i++ {
		if (samples[i-1] >= 0) != (samples[i] >= 0) {
			crossings++
		}
	}
	return float64(crossings) / float64(len(samples)-1)
}

// lowBandRatio runs a one-pole low-pass at roughly 1kHz over the frame and
// compares the energy of the filtered signal with the raw energy.
func lowBandRatio(samples []float64, sampleRate int) float64 {
	total := 0.0
	low := 0.0
	// RC filter coefficient for ~1kHz cutoff.
	dt := 1.0 / float64(sampleRate)
	rc := 1.0 / (2 * math.Pi * 1000.0)
	alpha := dt / (rc + dt)

	filtered := 0.0
	for _, s := range samples {
		filtered += alpha * (s - filtered)
		total += s * s
		low += filtered * filtered
	}
	if total == 0 {
		return 0
	}
	ratio := low / total
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}

// estimatePitch finds the autocorrelation peak within the speaking pitch
// range. It is deliberately coarse: the pipeline only needs pitch trends, not
// musical accuracy.
func estimatePitch(samples []float64, sampleRate int) float64 {
	minLag := int(float64(sampleRate) / maxPitchHz)
	maxLag := int(float64(sampleRate) / minPitchHz)
	if maxLag >= len(samples) {
		maxLag = len(samples) - 1
	}
	if minLag < 1 || minLag >= maxLag {
		return 0
	}

	energy := 0.0
	for _, s := range samples {
		energy += s * s
	}
	if energy == 0 {
		return 0
	}

	bestLag := 0
	bestCorr := 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		for i := 0; i+lag < len(samples); i++ {
			corr += samples[i] * samples[i+lag]
		}
		corr /= energy
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}

	// Require a meaningful periodicity peak, otherwise treat as unvoiced.
	if bestLag == 0 || bestCorr < 0.3 {
		return 0
	}
	return float64(sampleRate) / float64(bestLag)
}
