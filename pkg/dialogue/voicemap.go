package dialogue

// voicePresets maps each emotion to a baseline delivery. Values are
// multipliers against the synthesizer's neutral voice.
var voicePresets = map[Emotion]VoiceParams{
	EmotionNeutral:     {Rate: 1.0, Pitch: 1.0, Volume: 1.0, Style: "conversational"},
	EmotionJoy:         {Rate: 1.1, Pitch: 1.1, Volume: 1.05, Style: "cheerful"},
	EmotionSadness:     {Rate: 0.85, Pitch: 0.92, Volume: 0.9, Style: "gentle"},
	EmotionAnger:       {Rate: 0.95, Pitch: 0.97, Volume: 0.95, Style: "calming"},
	EmotionFear:        {Rate: 0.9, Pitch: 0.95, Volume: 0.92, Style: "reassuring"},
	EmotionSurprise:    {Rate: 1.05, Pitch: 1.08, Volume: 1.0, Style: "engaged"},
	EmotionDisgust:     {Rate: 0.95, Pitch: 0.98, Volume: 0.95, Style: "measured"},
	EmotionAnxiety:     {Rate: 0.88, Pitch: 0.95, Volume: 0.9, Style: "soothing"},
	EmotionFrustration: {Rate: 0.92, Pitch: 0.96, Volume: 0.95, Style: "patient"},
	EmotionGratitude:   {Rate: 1.0, Pitch: 1.05, Volume: 1.0, Style: "warm"},
	EmotionCuriosity:   {Rate: 1.05, Pitch: 1.05, Volume: 1.0, Style: "engaged"},
}

// calmingPreset is the fixed crisis response: slower, slightly lower, softer.
var calmingPreset = VoiceParams{Rate: 0.8, Pitch: 0.95, Volume: 0.9, Style: "comforting"}

// VoiceMapper turns the turn's emotional and risk picture into synthesis
// delivery parameters.
type VoiceMapper struct{}

func NewVoiceMapper() *VoiceMapper {
	return &VoiceMapper{}
}

// Map is a pure function of its inputs. A critical crisis forces the calming
// preset regardless of detected emotion; otherwise the per-emotion preset is
// nudged by intensity and a mild per-turn fatigue slow-down, and every
// multiplier is clamped to [0.5, 2.0].
func (m *VoiceMapper) Map(state EmotionalState, crisis CrisisAssessment, turnNumber int) VoiceParams {
	if crisis.Level == CrisisCritical {
		return calmingPreset
	}

	preset, ok := voicePresets[state.Primary]
	if !ok {
		preset = DefaultVoiceParams()
	}

	// Intensity pushes the preset further from neutral, scaled so that even
	// maximal intensity stays a nudge, not a caricature.
	stretch := 1 + 0.3*(clampUnit(state.Intensity)-0.5)
	preset.Rate = 1 + (preset.Rate-1)*stretch
	preset.Pitch = 1 + (preset.Pitch-1)*stretch
	preset.Volume = 1 + (preset.Volume-1)*stretch

	// Long sessions drift slower, easing the pace as fatigue sets in.
	if turnNumber > 20 {
		preset.Rate *= 0.95
	} else if turnNumber > 10 {
		preset.Rate *= 0.98
	}

	if crisis.Level == CrisisHigh {
		preset.Rate *= 0.9
		preset.Style = "supportive"
	}

	preset.Rate = clampMultiplier(preset.Rate)
	preset.Pitch = clampMultiplier(preset.Pitch)
	preset.Volume = clampMultiplier(preset.Volume)
	return preset
}

func clampMultiplier(v float64) float64 {
	if v < 0.5 {
		return 0.5
	}
	if v > 2.0 {
		return 2.0
	}
	return v
}
