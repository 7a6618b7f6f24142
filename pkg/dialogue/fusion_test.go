package dialogue

import (
	"reflect"
	"testing"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

func newTestFusion() *FusionEngine {
	return NewFusionEngine(testConfig(), &NoOpLogger{})
}

func TestFuseJoy(t *testing.T) {
	e := newTestFusion()

	state := e.Fuse("I feel so happy today, everything is amazing!", nil, nil)

	if state.Primary != EmotionJoy {
		t.Fatalf("expected joy, got %s", state.Primary)
	}
	if state.Pleasure <= 0.5 {
		t.Errorf("expected pleasure above 0.5, got %f", state.Pleasure)
	}
	if state.Confidence < 0.35 {
		t.Errorf("expected confidence above threshold, got %f", state.Confidence)
	}
	if state.Intensity < 0.5 {
		t.Errorf("strong phrasing should read intense, got %f", state.Intensity)
	}
	if len(state.Candidates) == 0 || state.Candidates[0].Emotion != EmotionJoy {
		t.Error("primary must be the top-ranked candidate")
	}
}

func TestFuseNeutralFallback(t *testing.T) {
	e := newTestFusion()

	state := e.Fuse("the meeting is at three on tuesday", nil, nil)

	if state.Primary != EmotionNeutral {
		t.Errorf("expected neutral fallback, got %s", state.Primary)
	}
	if state.Confidence != 0.5 {
		t.Errorf("neutral fallback carries confidence 0.5, got %f", state.Confidence)
	}
	if state.Pleasure != 0 {
		t.Errorf("neutral fallback keeps the neutral anchor, got pleasure %f", state.Pleasure)
	}
}

func TestFuseOverrideDirective(t *testing.T) {
	e := newTestFusion()

	// Lexical sadness evidence is present, but the directive wins.
	state := e.Fuse("I'm sad, but please sound happy for the kids", nil, nil)

	if state.Primary != EmotionJoy {
		t.Fatalf("expected directive to win, got %s", state.Primary)
	}
	if state.Candidates[0].Source != SourceOverride {
		t.Errorf("top candidate should be the override, got %s", state.Candidates[0].Source)
	}
	if state.Confidence < 0.85 {
		t.Errorf("override confidence should be high, got %f", state.Confidence)
	}
	if !state.IsBlended || state.Secondary != EmotionSadness {
		t.Errorf("lexical sadness should survive as secondary, got blended=%v secondary=%s",
			state.IsBlended, state.Secondary)
	}
}

func TestFuseSarcasmInvertsPleasure(t *testing.T) {
	e := newTestFusion()

	plain := e.Fuse("this is wonderful and great", nil, nil)
	sarcastic := e.Fuse("oh great, this is wonderful", nil, nil)

	if !sarcastic.SarcasmSuspected {
		t.Fatal("expected sarcasm markers to be detected")
	}
	if plain.SarcasmSuspected {
		t.Fatal("plain praise should not read as sarcasm")
	}
	if sarcastic.Pleasure >= 0 {
		t.Errorf("sarcastic praise should invert pleasure, got %f", sarcastic.Pleasure)
	}
	if sarcastic.Confidence >= plain.Confidence {
		t.Errorf("sarcasm should shave confidence: %f vs %f",
			sarcastic.Confidence, plain.Confidence)
	}
}

func TestFuseQuestionReadsCurious(t *testing.T) {
	e := newTestFusion()

	state := e.Fuse("how does that actually work?", nil, nil)

	if state.Primary != EmotionCuriosity {
		t.Errorf("expected curiosity, got %s", state.Primary)
	}
}

func TestFuseProsodicSignals(t *testing.T) {
	e := newTestFusion()

	vf := &audio.VoiceFeatures{
		Stress:           0.8,
		PitchInstability: 0.6,
		MeanEnergy:       0.4,
		MeanPitch:        200,
	}

	state := e.Fuse("and then the contract fell through", nil, vf)

	found := false
	for _, c := range state.Candidates {
		if c.Source == SourceProsodic && c.Emotion == EmotionAnxiety {
			found = true
		}
	}
	if !found {
		t.Error("stressed voice should contribute an anxiety candidate")
	}
}

func TestFuseDeterministic(t *testing.T) {
	e := newTestFusion()

	text := "I'm worried and a bit sad about tomorrow"
	a := e.Fuse(text, nil, nil)
	b := e.Fuse(text, nil, nil)

	if !reflect.DeepEqual(a, b) {
		t.Errorf("same input must produce identical output:\n%+v\n%+v", a, b)
	}
}

func TestFuseCandidateOrdering(t *testing.T) {
	e := newTestFusion()

	state := e.Fuse("I'm anxious and frustrated, how does this end?", nil, nil)

	for i := 1; i < len(state.Candidates); i++ {
		prev, cur := state.Candidates[i-1], state.Candidates[i]
		pp, pc := sourcePriority(prev.Source), sourcePriority(cur.Source)
		if pp < pc {
			t.Fatalf("candidate %d outranks %d by source", i, i-1)
		}
		if pp == pc && prev.Confidence < cur.Confidence {
			t.Fatalf("candidates within a source band must be ordered by confidence")
		}
	}
}

func TestFuseDoesNotMutateSession(t *testing.T) {
	store := newTestStore(t)
	sess, _ := store.GetOrCreate("s1")
	e := newTestFusion()

	before := sess.Snapshot()
	e.Fuse("hello there!", sess, nil)
	after := sess.Snapshot()

	if before.TurnNumber != after.TurnNumber || before.Engagement != after.Engagement {
		t.Error("Fuse must be read-only with respect to the session")
	}
}

func TestKeywordStrategySwap(t *testing.T) {
	fixed := scoringFunc(func(text string) []EmotionCandidate {
		return []EmotionCandidate{{Emotion: EmotionGratitude, Confidence: 0.8, Intensity: 0.6, Source: SourceLexical}}
	})
	e := NewFusionEngineWithStrategy(testConfig(), &NoOpLogger{}, fixed)

	state := e.Fuse("anything at all", nil, nil)
	if state.Primary != EmotionGratitude {
		t.Errorf("expected the injected strategy to drive the result, got %s", state.Primary)
	}
}

// scoringFunc adapts a function to the ScoringStrategy interface.
type scoringFunc func(text string) []EmotionCandidate

func (f scoringFunc) Score(text string) []EmotionCandidate { return f(text) }
func (f scoringFunc) Name() string                         { return "fixed" }
