package dialogue

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

// TurnResult is the controller's full output for one turn: what the user
// seems to feel, how risky the turn is, what to do about it, and how the
// reply should sound.
type TurnResult struct {
	SessionID  string
	State      EmotionalState
	Crisis     CrisisAssessment
	Flow       FlowDecision
	Voice      VoiceParams
	Engagement float64
	Escalate   bool
}

// SystemPrompt renders the turn's delivery context as key/value lines for
// the response generator's system prompt.
func (r TurnResult) SystemPrompt() string {
	var b strings.Builder
	b.WriteString("You are a warm, attentive voice companion. Respond briefly and naturally, as speech.\n")
	fmt.Fprintf(&b, "user_emotion: %s\n", r.State.Primary)
	fmt.Fprintf(&b, "emotion_intensity: %.2f\n", r.State.Intensity)
	fmt.Fprintf(&b, "crisis_level: %s\n", r.Crisis.Level)
	fmt.Fprintf(&b, "flow_action: %s\n", r.Flow.Action)
	fmt.Fprintf(&b, "voice_style: %s\n", r.Voice.Style)
	if r.Escalate {
		b.WriteString("priority: acknowledge distress first, keep the user talking, suggest real help\n")
	}
	return b.String()
}

// Controller runs the per-turn pipeline: validate, fuse, assess, record,
// advance flow, map voice. One controller serves all sessions; turns within
// a session are serialized, turns across sessions run in parallel.
type Controller struct {
	cfg      Config
	logger   Logger
	store    *SessionStore
	fusion   *FusionEngine
	assessor *CrisisAssessor
	flow     *FlowEngine
	mapper   *VoiceMapper
	metrics  *Metrics
}

// NewController wires the pipeline components around a fresh session store.
// metrics may be nil.
func NewController(cfg Config, logger Logger, metrics *Metrics) *Controller {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &Controller{
		cfg:      cfg,
		logger:   logger,
		store:    NewSessionStore(cfg, logger, metrics),
		fusion:   NewFusionEngine(cfg, logger),
		assessor: NewCrisisAssessor(cfg, logger),
		flow:     NewFlowEngine(cfg, logger),
		mapper:   NewVoiceMapper(),
		metrics:  metrics,
	}
}

// Store exposes the session store for lifecycle management and inspection.
func (c *Controller) Store() *SessionStore {
	return c.store
}

// Shutdown stops the store's background sweeper.
func (c *Controller) Shutdown() {
	c.store.Shutdown()
}

// ProcessTurn runs the pipeline for one utterance. Only validation errors
// reach the caller; any fault inside a stage is logged and replaced with
// that stage's documented fallback so the turn still completes. features may
// be nil for text-only turns.
func (c *Controller) ProcessTurn(ctx context.Context, sessionID, text string, features *audio.VoiceFeatures) (TurnResult, error) {
	start := time.Now()

	if strings.TrimSpace(sessionID) == "" {
		return TurnResult{}, &ValidationError{Field: "sessionID", Reason: ErrEmptySessionID}
	}
	if strings.TrimSpace(text) == "" {
		return TurnResult{}, &ValidationError{Field: "text", Reason: ErrEmptyInput}
	}
	if len(text) > c.cfg.MaxInputChars {
		return TurnResult{}, &ValidationError{Field: "text", Reason: ErrInputTooLong}
	}
	if err := ctx.Err(); err != nil {
		return TurnResult{}, err
	}

	sess, err := c.store.GetOrCreate(sessionID)
	if err != nil {
		return TurnResult{}, err
	}

	sess.turnMu.Lock()
	defer sess.turnMu.Unlock()

	state := c.fuseStage(text, sess, features)
	crisis := c.assessStage(text, features, sess)

	if err := c.store.Record(sessionID, state, crisis.Level, text); err != nil {
		c.logger.Error("recording turn failed", "sessionID", sessionID, "error", err)
	}

	decision := c.flowStage(sess, FlowInput{Text: text, State: state, Crisis: crisis})
	voice := c.voiceStage(state, crisis, sess.TurnNumber())

	result := TurnResult{
		SessionID:  sessionID,
		State:      state,
		Crisis:     crisis,
		Flow:       decision,
		Voice:      voice,
		Engagement: sess.Engagement(),
		Escalate:   crisis.Urgency == UrgencyImmediate || crisis.Level.rank() >= CrisisHigh.rank(),
	}

	c.metrics.RecordTurn(decision.Action, state.Primary, time.Since(start))
	c.metrics.RecordCrisisLevel(crisis.Level)
	c.metrics.SetActiveSessions(c.store.Len())

	c.logger.Debug("turn processed",
		"sessionID", sessionID,
		"emotion", string(state.Primary),
		"crisisLevel", string(crisis.Level),
		"action", string(decision.Action))

	return result, nil
}

func (c *Controller) fuseStage(text string, sess *SessionContext, features *audio.VoiceFeatures) (out EmotionalState) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("stage fault", "stage", "fusion", "panic", r)
			c.metrics.RecordStageFault("fusion")
			out = neutralState(false)
		}
	}()
	return c.fusion.Fuse(text, sess, features)
}

// assessStage keeps the cautious fallback even if the assessor's own recover
// is bypassed: a crisis fault must never read as an all-clear.
func (c *Controller) assessStage(text string, features *audio.VoiceFeatures, sess *SessionContext) (out CrisisAssessment) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("stage fault", "stage", "crisis", "panic", r)
			c.metrics.RecordStageFault("crisis")
			out = CrisisAssessment{Level: CrisisMedium, Urgency: UrgencyMedium, Confidence: 0.3}
		}
	}()
	return c.assessor.Assess(text, features, sess)
}

func (c *Controller) flowStage(sess *SessionContext, in FlowInput) (out FlowDecision) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("stage fault", "stage", "flow", "panic", r)
			c.metrics.RecordStageFault("flow")
			out = FlowDecision{Action: ActionListen, Priority: PriorityLow, Reason: ReasonStageFault}
		}
	}()
	return c.flow.Advance(sess, in)
}

func (c *Controller) voiceStage(state EmotionalState, crisis CrisisAssessment, turn int) (out VoiceParams) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("stage fault", "stage", "voicemap", "panic", r)
			c.metrics.RecordStageFault("voicemap")
			out = DefaultVoiceParams()
		}
	}()
	return c.mapper.Map(state, crisis, turn)
}

// AdmitInterruption applies the flow engine's admission policy for a
// barge-in attempt outside the crisis path.
func (c *Controller) AdmitInterruption(sessionID, text string) bool {
	sess, err := c.store.Get(sessionID)
	if err != nil {
		return false
	}
	return c.flow.AdmitInterruption(sess, text)
}
