package dialogue

import (
	"math"
	"strings"
	"time"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

// PlaybackProgress describes where synthesis playback currently is.
// SentenceProgress is the fraction of the current sentence already spoken.
type PlaybackProgress struct {
	Sentence         string
	SentenceProgress float64
}

// InterruptionArbiter decides, while synthesized speech is playing, whether
// the system should yield the floor to the user. It runs against windowed
// intention signals from the live microphone feed.
type InterruptionArbiter struct {
	cfg    Config
	logger Logger
}

func NewInterruptionArbiter(cfg Config, logger Logger) *InterruptionArbiter {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &InterruptionArbiter{cfg: cfg, logger: logger}
}

// Evaluate scores the intention signals against playback position and
// engagement. A critical crisis always yields with zero delay, no matter
// what the microphone says.
func (a *InterruptionArbiter) Evaluate(sig audio.IntentionSignals, prog PlaybackProgress, crisis CrisisAssessment, engagement float64) InterruptionDecision {
	if crisis.Level == CrisisCritical {
		return InterruptionDecision{
			ShouldYield: true,
			Confidence:  1,
			Delay:       0,
			Resume:      ResumeRedirect,
		}
	}

	p := 0.30*sig.BreathIntake +
		0.20*sig.Micromovement +
		0.15*sig.BackgroundPrep +
		0.25*sig.PausePatternLikelihood +
		0.10*sig.Urgency

	complete := thoughtComplete(prog.Sentence)
	if complete {
		p += 0.2
	}
	if prog.SentenceProgress < 0.3 {
		p -= 0.3
	}
	if engagement < 0.3 {
		p += 0.3
	}

	yield := p > 0.5
	confidence := clampUnit(math.Abs(p-0.5) * 2)

	var delay time.Duration
	if yield && !complete {
		// Let the current thought land before yielding, scaled by how
		// much of it is left, unless the user sounds urgent.
		incompleteness := clampUnit(1 - prog.SentenceProgress)
		delay = time.Duration(incompleteness * float64(2*time.Second))
		if sig.Urgency > 0.6 && delay > 200*time.Millisecond {
			delay = 200 * time.Millisecond
		}
	}

	resume := ResumeContinue
	switch {
	case sig.Urgency > 0.6 || crisis.Level == CrisisHigh:
		resume = ResumeRedirect
	case yield && !complete:
		resume = ResumeSummarize
	}

	if yield {
		a.logger.Debug("yielding floor",
			"score", p, "confidence", confidence, "delay", delay, "resume", string(resume))
	}

	return InterruptionDecision{
		ShouldYield: yield,
		Confidence:  confidence,
		Delay:       delay,
		Resume:      resume,
	}
}

// thoughtComplete judges whether the sentence being spoken has reached a
// natural stopping point.
func thoughtComplete(sentence string) bool {
	trimmed := strings.TrimSpace(sentence)
	if trimmed == "" {
		return true
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	return containsAny(strings.ToLower(trimmed), completionMarkers)
}
