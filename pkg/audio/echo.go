package audio

import (
	"bytes"
	"math"
	"sync"
	"time"
)

// EchoGuard keeps the system's own synthesized speech from being read back as
// listener activity. The playback monitor records every chunk it plays; mic
// frames that correlate strongly with recently played audio are classified as
// echo and dropped before intention analysis.
type EchoGuard struct {
	mu        sync.Mutex
	played    *bytes.Buffer
	maxBuf    int
	threshold float64
	holdoff   time.Duration
	lastPlay  time.Time
	enabled   bool
}

// NewEchoGuard creates a guard holding roughly two seconds of reference audio
// at 44.1kHz 16-bit mono.
func NewEchoGuard() *EchoGuard {
	return &EchoGuard{
		played:    new(bytes.Buffer),
		maxBuf:    176400,
		threshold: 0.55,
		holdoff:   1200 * time.Millisecond,
		enabled:   true,
	}
}

// RecordPlayed notes audio that was just sent to the speakers.
func (g *EchoGuard) RecordPlayed(chunk []byte) {
	if !g.enabled || len(chunk) == 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	g.played.Write(chunk)
	g.lastPlay = time.Now()

	if g.played.Len() > g.maxBuf {
		data := g.played.Bytes()
		trim := data[len(data)-g.maxBuf:]
		g.played.Reset()
		g.played.Write(trim)
	}
}

// IsEcho reports whether the input frame is primarily playback echo.
func (g *EchoGuard) IsEcho(input []byte) bool {
	if !g.enabled || len(input) == 0 {
		return false
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	// No recent playback, no echo possible.
	if time.Since(g.lastPlay) > g.holdoff {
		return false
	}
	ref := g.played.Bytes()
	if len(ref) == 0 {
		return false
	}
	return bestCorrelation(BytesToSamples(input), BytesToSamples(ref)) > g.threshold
}

// Reset clears the reference buffer; call when playback is cancelled.
func (g *EchoGuard) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.played.Reset()
}

// SetEnabled toggles the guard.
func (g *EchoGuard) SetEnabled(enabled bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.enabled = enabled
}

// bestCorrelation slides the input across the reference with a coarse stride
// and returns the maximum normalized cross-correlation in [0, 1].
func bestCorrelation(input, ref []float64) float64 {
	if len(input) == 0 || len(ref) == 0 {
		return 0
	}
	compareLen := len(input)
	if compareLen > len(ref) {
		compareLen = len(ref)
	}
	inSeg := input[:compareLen]
	inEnergy := 0.0
	for _, s := range inSeg {
		inEnergy += s * s
	}
	if inEnergy == 0 {
		return 0
	}

	stride := compareLen / 4
	if stride < 8 {
		stride = 8
	}

	maxCorr := 0.0
	for pos := 0; pos+compareLen <= len(ref); pos += stride {
		seg := ref[pos : pos+compareLen]
		segEnergy := 0.0
		dot := 0.0
		for i := 0; i < compareLen; i++ {
			segEnergy += seg[i] * seg[i]
			dot += inSeg[i] * seg[i]
		}
		if segEnergy == 0 {
			continue
		}
		corr := dot / math.Sqrt(inEnergy*segEnergy)
		if corr > maxCorr {
			maxCorr = corr
			if maxCorr >= 0.999 {
				break
			}
		}
	}

	if maxCorr < 0 {
		return 0
	}
	if maxCorr > 1 {
		return 1
	}
	return maxCorr
}
