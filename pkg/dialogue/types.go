package dialogue

import (
	"context"
	"log/slog"
	"time"
)

type Logger interface {
	Debug(msg string, args ...interface{})

	Info(msg string, args ...interface{})

	Warn(msg string, args ...interface{})

	Error(msg string, args ...interface{})
}

type NoOpLogger struct{}

func (n *NoOpLogger) Debug(msg string, args ...interface{}) {}
func (n *NoOpLogger) Info(msg string, args ...interface{})  {}
func (n *NoOpLogger) Warn(msg string, args ...interface{})  {}
func (n *NoOpLogger) Error(msg string, args ...interface{}) {}

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	L *slog.Logger
}

func (s *SlogLogger) Debug(msg string, args ...interface{}) { s.L.Debug(msg, args...) }
func (s *SlogLogger) Info(msg string, args ...interface{})  { s.L.Info(msg, args...) }
func (s *SlogLogger) Warn(msg string, args ...interface{})  { s.L.Warn(msg, args...) }
func (s *SlogLogger) Error(msg string, args ...interface{}) { s.L.Error(msg, args...) }

// Emotion is one category from the fixed taxonomy.
type Emotion string

const (
	EmotionNeutral     Emotion = "neutral"
	EmotionJoy         Emotion = "joy"
	EmotionSadness     Emotion = "sadness"
	EmotionAnger       Emotion = "anger"
	EmotionFear        Emotion = "fear"
	EmotionSurprise    Emotion = "surprise"
	EmotionDisgust     Emotion = "disgust"
	EmotionAnxiety     Emotion = "anxiety"
	EmotionFrustration Emotion = "frustration"
	EmotionGratitude   Emotion = "gratitude"
	EmotionCuriosity   Emotion = "curiosity"
)

// PAD is a point in Pleasure-Arousal-Dominance space.
// Pleasure and Dominance are in [-1, 1], Arousal in [0, 1].
type PAD struct {
	Pleasure  float64
	Arousal   float64
	Dominance float64
}

// emotionPAD anchors each taxonomy emotion in PAD space.
var emotionPAD = map[Emotion]PAD{
	EmotionNeutral:     {0, 0.2, 0},
	EmotionJoy:         {0.8, 0.7, 0.4},
	EmotionSadness:     {-0.7, 0.25, -0.5},
	EmotionAnger:       {-0.6, 0.85, 0.5},
	EmotionFear:        {-0.7, 0.8, -0.7},
	EmotionSurprise:    {0.2, 0.8, -0.1},
	EmotionDisgust:     {-0.6, 0.5, 0.2},
	EmotionAnxiety:     {-0.5, 0.75, -0.5},
	EmotionFrustration: {-0.5, 0.65, 0.1},
	EmotionGratitude:   {0.7, 0.4, 0.2},
	EmotionCuriosity:   {0.4, 0.55, 0.1},
}

// padFor returns the PAD anchor for an emotion, falling back to neutral for
// anything outside the taxonomy.
func padFor(e Emotion) PAD {
	if p, ok := emotionPAD[e]; ok {
		return p
	}
	return emotionPAD[EmotionNeutral]
}

// SignalSource identifies which detector produced an emotion candidate.
type SignalSource string

const (
	SourceOverride   SignalSource = "override"
	SourceLexical    SignalSource = "lexical"
	SourceContextual SignalSource = "contextual"
	SourceProsodic   SignalSource = "prosodic"
)

// sourcePriority orders candidates before confidence does.
// Override directives always win; lexical evidence beats session-shape
// guesses; contextual and prosodic rank equal.
func sourcePriority(s SignalSource) int {
	switch s {
	case SourceOverride:
		return 3
	case SourceLexical:
		return 2
	default:
		return 1
	}
}

// EmotionCandidate is one detector's vote.
type EmotionCandidate struct {
	Emotion    Emotion
	Confidence float64
	Intensity  float64
	Source     SignalSource
}

// EmotionalState is an immutable per-utterance snapshot.
// Candidates is sorted by source precedence (override > lexical >
// contextual/prosodic), then by descending confidence within each source;
// precedence deliberately outranks raw confidence so an explicit directive
// always wins. Primary is always Candidates[0].Emotion, or neutral when the
// list is empty.
type EmotionalState struct {
	Pleasure  float64
	Arousal   float64
	Dominance float64

	Primary   Emotion
	Secondary Emotion

	Intensity  float64
	Confidence float64

	IsBlended        bool
	SarcasmSuspected bool

	Candidates []EmotionCandidate
}

// PADPoint returns the state's PAD coordinates.
func (s EmotionalState) PADPoint() PAD {
	return PAD{Pleasure: s.Pleasure, Arousal: s.Arousal, Dominance: s.Dominance}
}

// CrisisLevel is the categorical risk band.
type CrisisLevel string

const (
	CrisisNone     CrisisLevel = "none"
	CrisisLow      CrisisLevel = "low"
	CrisisMedium   CrisisLevel = "medium"
	CrisisHigh     CrisisLevel = "high"
	CrisisCritical CrisisLevel = "critical"
)

// rank lets behavioral heuristics compare levels ordinally.
func (l CrisisLevel) rank() int {
	switch l {
	case CrisisLow:
		return 1
	case CrisisMedium:
		return 2
	case CrisisHigh:
		return 3
	case CrisisCritical:
		return 4
	default:
		return 0
	}
}

// Urgency is how fast the caller must react to a crisis assessment.
type Urgency string

const (
	UrgencyLow       Urgency = "low"
	UrgencyMedium    Urgency = "medium"
	UrgencyHigh      Urgency = "high"
	UrgencyImmediate Urgency = "immediate"
)

// CrisisAssessment is recomputed every turn and not retained beyond it
// (only its Level feeds the session's history for behavioral scoring).
type CrisisAssessment struct {
	TextRisk       float64
	VoiceRisk      float64
	BehavioralRisk float64
	OverallRisk    float64
	Level          CrisisLevel
	Confidence     float64
	Urgency        Urgency
}

// Phase is the flow state machine's current state for a session.
type Phase string

const (
	PhaseGreeting      Phase = "greeting"
	PhaseListening     Phase = "listening"
	PhaseProcessing    Phase = "processing"
	PhaseResponding    Phase = "responding"
	PhaseTransitioning Phase = "transitioning"
	PhasePaused        Phase = "paused"
)

// FlowAction is what the controller should do this turn.
type FlowAction string

const (
	ActionSpeak      FlowAction = "speak"
	ActionListen     FlowAction = "listen"
	ActionPause      FlowAction = "pause"
	ActionTransition FlowAction = "transition"
	ActionInterrupt  FlowAction = "interrupt"
)

// Priority of a flow decision.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ReasonCode is an enumerated explanation for a flow decision, kept machine
// readable for logs and tests.
type ReasonCode string

const (
	ReasonCrisisOverride      ReasonCode = "crisis_override"
	ReasonUrgentBargeIn       ReasonCode = "urgent_barge_in"
	ReasonGreetingReply       ReasonCode = "greeting_reply"
	ReasonGreetingDone        ReasonCode = "greeting_done"
	ReasonUtteranceComplete   ReasonCode = "utterance_complete"
	ReasonUtterancePartial    ReasonCode = "utterance_partial"
	ReasonProcessingDone      ReasonCode = "processing_done"
	ReasonResponseReady       ReasonCode = "response_ready"
	ReasonCountdownActive     ReasonCode = "countdown_active"
	ReasonCountdownElapsed    ReasonCode = "countdown_elapsed"
	ReasonPausedAwaitingInput ReasonCode = "paused_awaiting_input"
	ReasonStageFault          ReasonCode = "stage_fault"
)

// FlowDecision is the state machine's output for one turn.
type FlowDecision struct {
	Action   FlowAction
	Duration time.Duration
	Priority Priority
	Reason   ReasonCode
}

// ResumeStrategy tells the playback monitor what to do after yielding.
type ResumeStrategy string

const (
	ResumeContinue  ResumeStrategy = "continue"
	ResumeSummarize ResumeStrategy = "summarize"
	ResumeRedirect  ResumeStrategy = "redirect"
)

// InterruptionDecision is the barge-in arbiter's verdict for one evaluation.
type InterruptionDecision struct {
	ShouldYield bool
	Confidence  float64
	Delay       time.Duration
	Resume      ResumeStrategy
}

// VoiceParams are the delivery parameters handed to speech synthesis.
// Multipliers are always within [0.5, 2.0].
type VoiceParams struct {
	Rate   float64
	Pitch  float64
	Volume float64
	Style  string
}

// DefaultVoiceParams is the neutral preset, also the mapper's fault fallback.
func DefaultVoiceParams() VoiceParams {
	return VoiceParams{Rate: 1.0, Pitch: 1.0, Volume: 1.0, Style: "conversational"}
}

// Message is one conversation history entry handed to the text generation
// collaborator.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// STTProvider transcribes an audio buffer. An empty transcript means "no
// input this turn", not an error.
type STTProvider interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
	Name() string
}

// ResponseProvider generates the reply text. The controller supplies the
// delivery context as enumerated key/value lines inside the system prompt; it
// never calls the provider on its own.
type ResponseProvider interface {
	Respond(ctx context.Context, systemPrompt string, history []Message, userText string) (string, error)
	Name() string
}

// TTSProvider synthesizes speech with the given delivery parameters.
// Abort must unblock any in-progress StreamSynthesize as fast as possible;
// the playback monitor calls it when a barge-in yields.
type TTSProvider interface {
	Synthesize(ctx context.Context, text string, params VoiceParams) ([]byte, error)
	StreamSynthesize(ctx context.Context, text string, params VoiceParams, onChunk func([]byte) error) error
	Abort() error
	Name() string
}
