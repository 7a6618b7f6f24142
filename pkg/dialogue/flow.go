package dialogue

import (
	"math/rand"
	"strings"
	"time"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

// FlowInput is everything the state machine looks at for one turn.
// Intention is only set while synthesized speech is playing.
type FlowInput struct {
	Text          string
	State         EmotionalState
	Crisis        CrisisAssessment
	Intention     *audio.IntentionSignals
	SpeechPlaying bool
}

// FlowEngine drives the per-session turn-taking state machine. All session
// state lives in the SessionContext; the engine itself holds only
// configuration, so one engine serves every session.
type FlowEngine struct {
	cfg    Config
	logger Logger
	jitter func() float64 // uniform in [-1, 1]
}

func NewFlowEngine(cfg Config, logger Logger) *FlowEngine {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &FlowEngine{
		cfg:    cfg,
		logger: logger,
		jitter: func() float64 { return rand.Float64()*2 - 1 },
	}
}

// Advance evaluates the transition rules in priority order and mutates the
// session's phase, engagement, and countdown accordingly.
func (f *FlowEngine) Advance(ctx *SessionContext, in FlowInput) FlowDecision {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	// Rule 1: crisis override. A critical level or immediate urgency, or an
	// extreme intention urgency mid-playback, interrupts from any phase and
	// pauses indefinitely. The latch clears only on new input.
	if in.Crisis.Level == CrisisCritical || in.Crisis.Urgency == UrgencyImmediate {
		ctx.phase = PhasePaused
		ctx.crisisLatched = true
		ctx.countdown = 0
		f.logger.Warn("crisis override, pausing session", "sessionID", ctx.id)
		return FlowDecision{Action: ActionInterrupt, Duration: 0, Priority: PriorityHigh, Reason: ReasonCrisisOverride}
	}
	if in.SpeechPlaying && in.Intention != nil && in.Intention.Urgency > 0.9 {
		ctx.phase = PhasePaused
		ctx.countdown = 1
		return FlowDecision{Action: ActionInterrupt, Duration: 0, Priority: PriorityHigh, Reason: ReasonUrgentBargeIn}
	}

	if ctx.crisisLatched {
		if strings.TrimSpace(in.Text) == "" {
			return FlowDecision{Action: ActionPause, Duration: 0, Priority: PriorityHigh, Reason: ReasonPausedAwaitingInput}
		}
		ctx.crisisLatched = false
		ctx.phase = PhaseListening
	}

	f.updateEngagement(ctx, in)

	switch ctx.phase {
	case PhaseGreeting:
		if containsAny(strings.ToLower(in.Text), greetingPatterns) {
			ctx.phase = PhaseResponding
			return FlowDecision{
				Action:   ActionSpeak,
				Duration: f.responseDelay(ctx.engagement),
				Priority: PriorityMedium,
				Reason:   ReasonGreetingReply,
			}
		}
		ctx.phase = PhaseListening
		return FlowDecision{Action: ActionListen, Priority: PriorityLow, Reason: ReasonGreetingDone}

	case PhaseListening:
		if utteranceComplete(in.Text) {
			ctx.phase = PhaseProcessing
			return FlowDecision{
				Action:   ActionPause,
				Duration: f.processingDelay(in.Text, in.State),
				Priority: PriorityMedium,
				Reason:   ReasonUtteranceComplete,
			}
		}
		return FlowDecision{Action: ActionListen, Priority: PriorityLow, Reason: ReasonUtterancePartial}

	case PhaseProcessing:
		ctx.phase = PhaseResponding
		return FlowDecision{
			Action:   ActionSpeak,
			Duration: f.responseDelay(ctx.engagement),
			Priority: PriorityMedium,
			Reason:   ReasonProcessingDone,
		}

	case PhaseResponding:
		ctx.phase = PhaseTransitioning
		ctx.countdown = 2
		return FlowDecision{
			Action:   ActionSpeak,
			Duration: f.responseDelay(ctx.engagement),
			Priority: PriorityMedium,
			Reason:   ReasonResponseReady,
		}

	default: // transitioning, paused
		ctx.countdown--
		if ctx.countdown <= 0 {
			ctx.countdown = 0
			ctx.phase = PhaseListening
			return FlowDecision{Action: ActionListen, Priority: PriorityLow, Reason: ReasonCountdownElapsed}
		}
		return FlowDecision{Action: ActionPause, Priority: PriorityLow, Reason: ReasonCountdownActive}
	}
}

// AdmitInterruption decides whether a barge-in attempt outside the crisis
// path may proceed: the text must carry an urgent keyword, the user must
// still be engaged, and the per-session attempt cap must not be spent.
// Admission consumes one slot from the cap.
func (f *FlowEngine) AdmitInterruption(ctx *SessionContext, text string) bool {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	if !containsAny(strings.ToLower(text), urgentKeywords) {
		return false
	}
	if ctx.engagement <= 0.3 {
		return false
	}
	if ctx.interruptionCount >= f.cfg.InterruptionCountCap {
		f.logger.Debug("interruption cap reached", "sessionID", ctx.id)
		return false
	}
	ctx.interruptionCount++
	return true
}

// updateEngagement applies the geometric decay, then the per-turn boosts and
// penalties. Penalties are multiplicative so repeated disengagement keeps
// shrinking engagement without pinning it to zero. Caller holds ctx.mu.
func (f *FlowEngine) updateEngagement(ctx *SessionContext, in FlowInput) {
	e := ctx.engagement * f.cfg.EngagementDecay

	lower := strings.ToLower(in.Text)
	if in.State.Primary != EmotionNeutral && in.State.Intensity > 0.4 {
		e += 0.1
	}
	if strings.Contains(in.Text, "?") {
		e += 0.1
	}
	if containsAny(lower, engagementKeywords) {
		e += 0.1
	}
	if containsAny(lower, disengagementKeywords) {
		e *= 0.7
	}

	ctx.engagement = clampUnit(e)
}

// responseDelay scales a fixed base by the engagement factor and a small
// jitter, then clamps to the configured window. Highly engaged users get a
// snappier reply; disengaged ones get a slower, prompting one.
func (f *FlowEngine) responseDelay(engagement float64) time.Duration {
	const base = time.Second

	factor := 1.0
	switch {
	case engagement > 0.8:
		factor = 0.8
	case engagement < 0.3:
		factor = 1.4
	}

	d := time.Duration(float64(base) * factor * (1 + 0.05*f.jitter()))
	if d < f.cfg.MinResponseDelay {
		d = f.cfg.MinResponseDelay
	}
	if d > f.cfg.MaxResponseDelay {
		d = f.cfg.MaxResponseDelay
	}
	return d
}

// processingDelay grows with word count, capped at two seconds, with a
// surcharge for emotionally complex input.
func (f *FlowEngine) processingDelay(text string, state EmotionalState) time.Duration {
	words := len(strings.Fields(text))
	d := time.Duration(words) * 80 * time.Millisecond
	if d > 2*time.Second {
		d = 2 * time.Second
	}
	if state.IsBlended || state.SarcasmSuspected {
		d += 200 * time.Millisecond
	}
	return d
}

// utteranceComplete judges whether the user has finished a thought: terminal
// punctuation, a question, a completion marker, or simply enough words.
func utteranceComplete(text string) bool {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false
	}
	switch trimmed[len(trimmed)-1] {
	case '.', '!', '?':
		return true
	}
	if strings.Contains(trimmed, "?") {
		return true
	}
	lower := strings.ToLower(trimmed)
	if containsAny(lower, completionMarkers) {
		return true
	}
	return len(strings.Fields(trimmed)) >= 12
}
