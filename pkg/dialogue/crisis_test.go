package dialogue

import (
	"testing"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

func newTestAssessor() *CrisisAssessor {
	return NewCrisisAssessor(testConfig(), &NoOpLogger{})
}

func TestAssessSuicidalText(t *testing.T) {
	a := newTestAssessor()

	out := a.Assess("I want to kill myself", nil, nil)

	if out.Level != CrisisCritical {
		t.Fatalf("expected critical level, got %s", out.Level)
	}
	if out.Urgency != UrgencyImmediate {
		t.Fatalf("expected immediate urgency, got %s", out.Urgency)
	}
	if out.TextRisk <= 0 {
		t.Error("expected a positive text risk")
	}

	// Every suicidal phrase floors the level, never just the canonical one.
	for _, text := range []string{
		"I want to end my life",
		"everyone would be better off dead without me",
		"thinking about suicide again",
	} {
		if got := a.Assess(text, nil, nil); got.Level == CrisisNone || got.Level.rank() < CrisisHigh.rank() {
			t.Errorf("Assess(%q).Level = %s, want high or critical", text, got.Level)
		}
	}
}

func TestAssessBenignText(t *testing.T) {
	a := newTestAssessor()

	out := a.Assess("the weather is lovely today", nil, nil)

	if out.Level != CrisisNone {
		t.Errorf("expected none, got %s", out.Level)
	}
	if out.Urgency != UrgencyLow {
		t.Errorf("expected low urgency, got %s", out.Urgency)
	}
	if out.TextRisk != 0 || out.VoiceRisk != 0 || out.BehavioralRisk != 0 {
		t.Errorf("expected zero sub-scores, got %+v", out)
	}
}

func TestAssessMissingVoiceIsNotAnError(t *testing.T) {
	a := newTestAssessor()

	withVoice := a.Assess("I feel hopeless, there's no way out", &audio.VoiceFeatures{
		Stress:             0.9,
		BreathIrregularity: 0.8,
		Tremor:             0.7,
	}, nil)
	withoutVoice := a.Assess("I feel hopeless, there's no way out", nil, nil)

	if withoutVoice.VoiceRisk != 0 {
		t.Errorf("absent features must contribute zero, got %f", withoutVoice.VoiceRisk)
	}
	if withVoice.VoiceRisk <= withoutVoice.VoiceRisk {
		t.Error("stressed voice should raise the voice sub-score")
	}
	if withVoice.OverallRisk <= withoutVoice.OverallRisk {
		t.Error("voice risk should feed the overall estimate")
	}
}

func TestAssessVoiceWeights(t *testing.T) {
	a := newTestAssessor()

	vf := &audio.VoiceFeatures{
		Stress:              1,
		BreathIrregularity:  1,
		Tremor:              1,
		PitchInstability:    1,
		VolumeInconsistency: 1,
		EnergySpike:         1,
	}
	out := a.Assess("nothing alarming here", vf, nil)

	// 0.25+0.20+0.20+0.15+0.10+0.10 = 1.0
	if out.VoiceRisk < 0.99 || out.VoiceRisk > 1 {
		t.Errorf("saturated features should score 1.0, got %f", out.VoiceRisk)
	}
}

func TestBehavioralEscalation(t *testing.T) {
	a := newTestAssessor()
	store := newTestStore(t)
	sess, _ := store.GetOrCreate("s1")

	neutral := EmotionalState{Primary: EmotionNeutral}

	t.Run("monotonic rise reads as agitation", func(t *testing.T) {
		store.Record("s1", neutral, CrisisLow, "a")
		store.Record("s1", neutral, CrisisMedium, "b")
		store.Record("s1", neutral, CrisisHigh, "c")

		out := a.Assess("things keep getting worse", nil, sess)
		if out.BehavioralRisk < 0.7 {
			t.Errorf("expected agitation to dominate, got %f", out.BehavioralRisk)
		}
	})

	t.Run("level spike reads as impulsivity", func(t *testing.T) {
		store.End("s1")
		sess, _ = store.GetOrCreate("s1")
		store.Record("s1", neutral, CrisisNone, "a")
		store.Record("s1", neutral, CrisisHigh, "b")

		out := a.Assess("hello", nil, sess)
		if out.BehavioralRisk < 0.6 {
			t.Errorf("expected impulsivity to register, got %f", out.BehavioralRisk)
		}
	})

	t.Run("empty history contributes zero", func(t *testing.T) {
		fresh, _ := store.GetOrCreate("fresh")
		out := a.Assess("hello", nil, fresh)
		if out.BehavioralRisk != 0 {
			t.Errorf("expected zero, got %f", out.BehavioralRisk)
		}
	})
}

func TestAssessLevelThresholds(t *testing.T) {
	a := newTestAssessor()

	cases := []struct {
		overall float64
		want    CrisisLevel
	}{
		{0.1, CrisisNone},
		{0.2, CrisisLow},
		{0.4, CrisisMedium},
		{0.6, CrisisHigh},
		{0.8, CrisisCritical},
	}
	for _, tc := range cases {
		if got := a.levelFor(tc.overall); got != tc.want {
			t.Errorf("levelFor(%f) = %s, want %s", tc.overall, got, tc.want)
		}
	}
}

func TestAssessConfidenceGrowsWithEvidence(t *testing.T) {
	a := newTestAssessor()

	bare := a.Assess("hello", nil, nil)
	rich := a.Assess("I feel hopeless", &audio.VoiceFeatures{Stress: 0.5}, nil)

	if rich.Confidence <= bare.Confidence {
		t.Errorf("more signal sources should raise confidence: %f vs %f",
			rich.Confidence, bare.Confidence)
	}
}
