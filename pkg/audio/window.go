package audio

import (
	"math"
)

// VoiceFeatures summarizes a short window of frames into affect- and
// risk-oriented indicators, each normalized to [0, 1]. It is consumed by both
// the crisis assessor (risk sub-score) and the fusion engine (prosodic
// detector); a zero value is always a safe "no signal" default.
type VoiceFeatures struct {
	Stress              float64
	BreathIrregularity  float64
	Tremor              float64
	PitchInstability    float64
	VolumeInconsistency float64
	EnergySpike         float64

	// Prosodic summary used by the fusion engine.
	MeanEnergy float64
	MeanPitch  float64
}

// IntentionSignals captures per-window evidence that the listener is
// preparing to speak while playback is in progress. Each field is in [0, 1].
type IntentionSignals struct {
	BreathIntake           float64
	Micromovement          float64
	BackgroundPrep         float64
	PausePatternLikelihood float64
	Urgency                float64
}

// FeatureWindow keeps the most recent frames and derives windowed features
// from them. A single loud frame never dominates any derived signal; every
// indicator below is computed across the whole window, which is what keeps
// coughs and bumped microphones from reading as speech intent.
type FeatureWindow struct {
	frames []FrameFeatures
	cap    int
}

// DefaultWindowFrames is the number of recent frames the window retains.
const DefaultWindowFrames = 10

// NewFeatureWindow creates a window holding up to capacity frames.
// A capacity below 1 falls back to DefaultWindowFrames.
func NewFeatureWindow(capacity int) *FeatureWindow {
	if capacity < 1 {
		capacity = DefaultWindowFrames
	}
	return &FeatureWindow{cap: capacity}
}

// Push appends a frame, evicting the oldest when full.
func (w *FeatureWindow) Push(f FrameFeatures) {
	w.frames = append(w.frames, f)
	if len(w.frames) > w.cap {
		w.frames = w.frames[len(w.frames)-w.cap:]
	}
}

// Len returns the number of buffered frames.
func (w *FeatureWindow) Len() int { return len(w.frames) }

// Reset discards all buffered frames.
func (w *FeatureWindow) Reset() { w.frames = w.frames[:0] }

// Voice derives the windowed voice features. With fewer than two frames it
// returns the zero value.
func (w *FeatureWindow) Voice() VoiceFeatures {
	n := len(w.frames)
	if n < 2 {
		return VoiceFeatures{}
	}

	energies := make([]float64, n)
	pitches := make([]float64, 0, n)
	zcrs := make([]float64, n)
	for i, f := range w.frames {
		energies[i] = f.Energy
		zcrs[i] = f.ZeroCrossingRate
		if f.Pitch > 0 {
			pitches = append(pitches, f.Pitch)
		}
	}

	meanEnergy := mean(energies)
	meanZCR := mean(zcrs)
	energyCV := coefficientOfVariation(energies)
	peak := maxOf(energies)

	var vf VoiceFeatures
	vf.MeanEnergy = clamp01(meanEnergy * 4)
	vf.VolumeInconsistency = clamp01(energyCV)

	// Stress: loud, high-variance delivery.
	vf.Stress = clamp01(0.6*vf.MeanEnergy + 0.4*energyCV)

	// Breath irregularity: high ZCR (noise-like) with oscillating energy.
	vf.BreathIrregularity = clamp01(0.5*meanZCR*2 + 0.5*oscillation(energies))

	// Spike: one frame far above the window mean.
	if meanEnergy > 0 {
		vf.EnergySpike = clamp01((peak - meanEnergy) / (meanEnergy * 3))
	}

	if len(pitches) >= 2 {
		vf.MeanPitch = mean(pitches)
		vf.PitchInstability = clamp01(coefficientOfVariation(pitches) * 2)
		// Tremor: rapid small pitch oscillation frame to frame.
		vf.Tremor = clamp01(oscillation(pitches) * 1.5)
	}

	return vf
}

// Intention derives barge-in intention signals from the window.
// urgencyHint lets the caller fold in non-acoustic urgency (e.g. crisis
// context); pass 0 when there is none.
func (w *FeatureWindow) Intention(urgencyHint float64) IntentionSignals {
	n := len(w.frames)
	if n < 3 {
		return IntentionSignals{}
	}

	energies := make([]float64, n)
	zcrs := make([]float64, n)
	voiced := 0
	for i, f := range w.frames {
		energies[i] = f.Energy
		zcrs[i] = f.ZeroCrossingRate
		if f.Pitch > 0 {
			voiced++
		}
	}

	half := n / 2
	earlyEnergy := mean(energies[:half])
	lateEnergy := mean(energies[half:])

	var sig IntentionSignals

	// Breath intake: rising noise-like energy without voicing yet.
	rise := clamp01((lateEnergy - earlyEnergy) * 10)
	noisiness := clamp01(mean(zcrs) * 2)
	voicedShare := float64(voiced) / float64(n)
	sig.BreathIntake = clamp01(rise * noisiness * (1 - voicedShare))

	// Micromovement: sustained low-level energy above the floor; rustling and
	// posture shifts sit well under speech level but above silence.
	low := 0
	for _, e := range energies {
		if e > 0.004 && e < 0.04 {
			low++
		}
	}
	sig.Micromovement = clamp01(float64(low) / float64(n))

	// Background prep: broadband (high ZCR, low low-band) activity across
	// most of the window.
	broadband := 0
	for _, f := range w.frames {
		if f.ZeroCrossingRate > 0.25 && f.LowBandRatio < 0.5 && f.Energy > 0.004 {
			broadband++
		}
	}
	sig.BackgroundPrep = clamp01(float64(broadband) / float64(n))

	// Pause pattern: energy oscillating between near-silence and activity,
	// the shape of someone taking a breath to cut in.
	sig.PausePatternLikelihood = clamp01(oscillation(energies) * 1.2)

	// Urgency: fast loud onset, amplified by the caller's hint.
	sig.Urgency = clamp01(rise*clamp01(lateEnergy*6) + urgencyHint)

	return sig
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func maxOf(vals []float64) float64 {
	m := 0.0
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

// coefficientOfVariation is stddev/mean, zero-safe.
func coefficientOfVariation(vals []float64) float64 {
	m := mean(vals)
	if m == 0 {
		return 0
	}
	varSum := 0.0
	for _, v := range vals {
		d := v - m
		varSum += d * d
	}
	return math.Sqrt(varSum/float64(len(vals))) / m
}

// oscillation measures direction changes in a series, normalized so a
// perfectly alternating series scores 1.
func oscillation(vals []float64) float64 {
	if len(vals) < 3 {
		return 0
	}
	changes := 0
	for i := 2; i < len(vals); i++ {
		prev := vals[i-1] - vals[i-2]
		cur := vals[i] - vals[i-1]
		if (prev > 0 && cur < 0) || (prev < 0 && cur > 0) {
			changes++
		}
	}
	return float64(changes) / float64(len(vals)-2)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
