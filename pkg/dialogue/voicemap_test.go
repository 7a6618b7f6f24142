package dialogue

import "testing"

func TestCrisisForcesCalmingPreset(t *testing.T) {
	m := NewVoiceMapper()

	// Even an intense joyful read is overridden at critical level.
	state := EmotionalState{Primary: EmotionJoy, Intensity: 1}
	crisis := CrisisAssessment{Level: CrisisCritical}

	got := m.Map(state, crisis, 3)
	if got != calmingPreset {
		t.Errorf("expected the calming preset, got %+v", got)
	}
	if got.Style != "comforting" {
		t.Errorf("expected comforting style, got %s", got.Style)
	}
	if got.Rate >= 1 {
		t.Errorf("calming rate should be slower than neutral, got %f", got.Rate)
	}
}

func TestEmotionPresets(t *testing.T) {
	m := NewVoiceMapper()
	none := CrisisAssessment{Level: CrisisNone}

	joy := m.Map(EmotionalState{Primary: EmotionJoy, Intensity: 0.5}, none, 1)
	sad := m.Map(EmotionalState{Primary: EmotionSadness, Intensity: 0.5}, none, 1)

	if joy.Rate <= sad.Rate {
		t.Errorf("joy should be faster than sadness: %f vs %f", joy.Rate, sad.Rate)
	}
	if joy.Pitch <= sad.Pitch {
		t.Errorf("joy should be brighter than sadness: %f vs %f", joy.Pitch, sad.Pitch)
	}
}

func TestIntensityStretchesPreset(t *testing.T) {
	m := NewVoiceMapper()
	none := CrisisAssessment{Level: CrisisNone}

	mild := m.Map(EmotionalState{Primary: EmotionJoy, Intensity: 0.2}, none, 1)
	strong := m.Map(EmotionalState{Primary: EmotionJoy, Intensity: 1}, none, 1)

	if strong.Rate <= mild.Rate {
		t.Errorf("intensity should push the preset further, got %f vs %f", strong.Rate, mild.Rate)
	}
}

func TestFatigueSlowsLongSessions(t *testing.T) {
	m := NewVoiceMapper()
	none := CrisisAssessment{Level: CrisisNone}
	state := EmotionalState{Primary: EmotionNeutral, Intensity: 0.5}

	early := m.Map(state, none, 3)
	mid := m.Map(state, none, 15)
	late := m.Map(state, none, 30)

	if !(late.Rate < mid.Rate && mid.Rate < early.Rate) {
		t.Errorf("rate should ease over long sessions: %f, %f, %f",
			early.Rate, mid.Rate, late.Rate)
	}
}

func TestUnknownEmotionFallsBack(t *testing.T) {
	m := NewVoiceMapper()

	got := m.Map(EmotionalState{Primary: Emotion("bewilderment"), Intensity: 0.5}, CrisisAssessment{}, 1)
	if got != DefaultVoiceParams() {
		t.Errorf("unknown emotion should map to the default preset, got %+v", got)
	}
}

func TestMultiplierClamps(t *testing.T) {
	m := NewVoiceMapper()

	emotions := []Emotion{
		EmotionNeutral, EmotionJoy, EmotionSadness, EmotionAnger, EmotionFear,
		EmotionSurprise, EmotionDisgust, EmotionAnxiety, EmotionFrustration,
		EmotionGratitude, EmotionCuriosity, Emotion("unknown"),
	}
	levels := []CrisisLevel{CrisisNone, CrisisLow, CrisisMedium, CrisisHigh, CrisisCritical}
	intensities := []float64{-1, 0, 0.3, 0.5, 0.9, 1, 2}
	turns := []int{0, 1, 11, 21, 500}

	for _, em := range emotions {
		for _, lvl := range levels {
			for _, in := range intensities {
				for _, turn := range turns {
					got := m.Map(EmotionalState{Primary: em, Intensity: in}, CrisisAssessment{Level: lvl}, turn)
					for name, v := range map[string]float64{"rate": got.Rate, "pitch": got.Pitch, "volume": got.Volume} {
						if v < 0.5 || v > 2.0 {
							t.Fatalf("%s out of [0.5, 2.0]: %f (emotion=%s level=%s intensity=%f turn=%d)",
								name, v, em, lvl, in, turn)
						}
					}
				}
			}
		}
	}
}
