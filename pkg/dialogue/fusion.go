package dialogue

import (
	"sort"
	"strings"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

// ScoringStrategy produces lexical emotion candidates for an utterance.
// The default is keyword scoring; a statistical classifier can be swapped in
// without touching the fusion and ranking logic.
type ScoringStrategy interface {
	Score(text string) []EmotionCandidate
	Name() string
}

// KeywordStrategy scores text against the fixed per-emotion keyword and
// context-phrase tables.
type KeywordStrategy struct{}

func NewKeywordStrategy() *KeywordStrategy {
	return &KeywordStrategy{}
}

func (k *KeywordStrategy) Name() string { return "keyword" }

// Score sums the weights of matched keywords and context phrases per emotion.
// Confidence is capped below the override level so explicit directives always
// outrank lexical evidence.
func (k *KeywordStrategy) Score(text string) []EmotionCandidate {
	lower := strings.ToLower(text)
	var out []EmotionCandidate
	for _, pat := range emotionLexicon {
		score := 0.0
		matches := 0
		for _, kw := range pat.keywords {
			if strings.Contains(lower, kw.phrase) {
				score += kw.weight
				matches++
			}
		}
		for _, cp := range pat.context {
			if strings.Contains(lower, cp.phrase) {
				score += cp.weight
				matches++
			}
		}
		if matches == 0 {
			continue
		}
		if score > 0.85 {
			score = 0.85
		}
		intensity := 0.3 + 0.2*float64(matches)
		if intensity > 1 {
			intensity = 1
		}
		out = append(out, EmotionCandidate{
			Emotion:    pat.emotion,
			Confidence: score,
			Intensity:  intensity,
			Source:     SourceLexical,
		})
	}
	return out
}

// FusionEngine combines lexical, contextual, override and prosodic signals
// into one ranked emotional estimate per utterance. Fuse reads the session
// context but never writes it; for a fixed (text, context) pair with no audio
// the result is deterministic.
type FusionEngine struct {
	strategy ScoringStrategy
	cfg      Config
	logger   Logger
}

func NewFusionEngine(cfg Config, logger Logger) *FusionEngine {
	return NewFusionEngineWithStrategy(cfg, logger, NewKeywordStrategy())
}

func NewFusionEngineWithStrategy(cfg Config, logger Logger, strategy ScoringStrategy) *FusionEngine {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	if strategy == nil {
		strategy = NewKeywordStrategy()
	}
	return &FusionEngine{strategy: strategy, cfg: cfg, logger: logger}
}

// Fuse runs the four detectors, merges their candidates and builds the
// snapshot. features may be nil when the turn carried no audio.
func (e *FusionEngine) Fuse(text string, ctx *SessionContext, features *audio.VoiceFeatures) EmotionalState {
	lower := strings.ToLower(text)

	candidates := e.detectOverride(lower)
	candidates = append(candidates, e.strategy.Score(text)...)
	candidates = append(candidates, e.detectContextual(lower, ctx)...)
	candidates = append(candidates, detectProsodic(features)...)

	// Override directives outrank lexical evidence, which outranks
	// session-shape and prosodic guesses; confidence breaks ties. Emotion
	// name is the final tie-break to keep the ranking deterministic.
	sort.SliceStable(candidates, func(i, j int) bool {
		pi, pj := sourcePriority(candidates[i].Source), sourcePriority(candidates[j].Source)
		if pi != pj {
			return pi > pj
		}
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return candidates[i].Emotion < candidates[j].Emotion
	})

	sarcasm := containsAny(lower, sarcasmMarkers)

	if len(candidates) == 0 || candidates[0].Confidence < e.cfg.ConfidenceThreshold {
		return neutralState(sarcasm)
	}

	top := candidates[0]
	state := EmotionalState{
		Primary:          top.Emotion,
		Intensity:        top.Intensity,
		Confidence:       top.Confidence,
		SarcasmSuspected: sarcasm,
		Candidates:       candidates,
	}

	// Exclamation-heavy delivery intensifies whatever was detected.
	if strings.Count(text, "!") >= 2 {
		state.Intensity = clampUnit(state.Intensity + 0.15)
	}

	point := scalePAD(padFor(top.Emotion), state.Intensity)

	// Sarcasm inverts pleasure before any blending: the literal reading of
	// the words is not trusted, so the blended secondary is folded into the
	// already-corrected point.
	if sarcasm {
		point.Pleasure = -point.Pleasure * 0.5
		state.Confidence *= 0.8
	}

	for _, c := range candidates[1:] {
		if c.Emotion != top.Emotion {
			state.Secondary = c.Emotion
			state.IsBlended = true
			sec := scalePAD(padFor(c.Emotion), c.Intensity)
			point.Pleasure = 0.7*point.Pleasure + 0.3*sec.Pleasure
			point.Arousal = 0.7*point.Arousal + 0.3*sec.Arousal
			point.Dominance = 0.7*point.Dominance + 0.3*sec.Dominance
			break
		}
	}

	state.Pleasure = point.Pleasure
	state.Arousal = point.Arousal
	state.Dominance = point.Dominance
	return state
}

func (e *FusionEngine) detectOverride(lower string) []EmotionCandidate {
	for _, d := range overrideDirectives {
		if strings.Contains(lower, d.phrase) {
			return []EmotionCandidate{{
				Emotion:    d.emotion,
				Confidence: 0.9,
				Intensity:  0.7,
				Source:     SourceOverride,
			}}
		}
	}
	return nil
}

// detectContextual applies session-shape rules: the opening turn biases
// toward a neutral greeting reading, and question-shaped input reads as
// curiosity.
func (e *FusionEngine) detectContextual(lower string, ctx *SessionContext) []EmotionCandidate {
	var out []EmotionCandidate
	if ctx != nil && ctx.TurnNumber() == 0 && containsAny(lower, greetingPatterns) {
		out = append(out, EmotionCandidate{
			Emotion:    EmotionNeutral,
			Confidence: 0.4,
			Intensity:  0.3,
			Source:     SourceContextual,
		})
	}
	if strings.Contains(lower, "?") {
		out = append(out, EmotionCandidate{
			Emotion:    EmotionCuriosity,
			Confidence: 0.35,
			Intensity:  0.4,
			Source:     SourceContextual,
		})
	}
	return out
}

// detectProsodic reads the sampler's windowed voice features. No audio, no
// candidates.
func detectProsodic(vf *audio.VoiceFeatures) []EmotionCandidate {
	if vf == nil {
		return nil
	}
	var out []EmotionCandidate
	if vf.Stress > 0.6 && vf.PitchInstability > 0.4 {
		out = append(out, EmotionCandidate{
			Emotion:    EmotionAnxiety,
			Confidence: 0.3 + 0.2*vf.Stress,
			Intensity:  vf.Stress,
			Source:     SourceProsodic,
		})
	}
	if vf.MeanEnergy > 0.65 && vf.PitchInstability < 0.3 {
		out = append(out, EmotionCandidate{
			Emotion:    EmotionAnger,
			Confidence: 0.35,
			Intensity:  vf.MeanEnergy,
			Source:     SourceProsodic,
		})
	}
	if vf.MeanEnergy > 0 && vf.MeanEnergy < 0.15 && vf.MeanPitch > 0 && vf.MeanPitch < 140 {
		out = append(out, EmotionCandidate{
			Emotion:    EmotionSadness,
			Confidence: 0.3,
			Intensity:  0.4,
			Source:     SourceProsodic,
		})
	}
	return out
}

// neutralState is the below-threshold fallback: the taxonomy's neutral value
// with moderate confidence.
func neutralState(sarcasm bool) EmotionalState {
	base := padFor(EmotionNeutral)
	return EmotionalState{
		Pleasure:         base.Pleasure,
		Arousal:          base.Arousal,
		Dominance:        base.Dominance,
		Primary:          EmotionNeutral,
		Intensity:        0.2,
		Confidence:       0.5,
		SarcasmSuspected: sarcasm,
	}
}

// scalePAD pulls an anchor toward neutral for low intensity.
func scalePAD(p PAD, intensity float64) PAD {
	n := padFor(EmotionNeutral)
	f := 0.5 + 0.5*clampUnit(intensity)
	return PAD{
		Pleasure:  n.Pleasure + (p.Pleasure-n.Pleasure)*f,
		Arousal:   n.Arousal + (p.Arousal-n.Arousal)*f,
		Dominance: n.Dominance + (p.Dominance-n.Dominance)*f,
	}
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

func clampUnit(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
