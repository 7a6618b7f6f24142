package dialogue

// Fixed keyword and phrase tables used by the heuristic detectors. Order is
// significant: tables are slices, not maps, so every scan is deterministic.

type weightedPhrase struct {
	phrase string
	weight float64
}

type emotionPatterns struct {
	emotion  Emotion
	keywords []weightedPhrase
	// context phrases are longer spans that score higher than single words
	context []weightedPhrase
}

// emotionLexicon drives the lexical detector. Weights are tuned so that a
// single strong keyword clears the confidence threshold and weak keywords
// need company.
var emotionLexicon = []emotionPatterns{
	{
		emotion: EmotionJoy,
		keywords: []weightedPhrase{
			{"happy", 0.5}, {"amazing", 0.4}, {"wonderful", 0.5}, {"great", 0.3},
			{"love", 0.4}, {"excited", 0.5}, {"fantastic", 0.5}, {"awesome", 0.4},
			{"delighted", 0.5}, {"glad", 0.4},
		},
		context: []weightedPhrase{
			{"so happy", 0.6}, {"best day", 0.6}, {"feel great", 0.5},
			{"everything is amazing", 0.6},
		},
	},
	{
		emotion: EmotionSadness,
		keywords: []weightedPhrase{
			{"sad", 0.5}, {"miserable", 0.5}, {"crying", 0.5}, {"lonely", 0.5},
			{"depressed", 0.5}, {"heartbroken", 0.6}, {"down", 0.25}, {"empty", 0.35},
			{"grieving", 0.5},
		},
		context: []weightedPhrase{
			{"feel so down", 0.6}, {"want to cry", 0.6}, {"miss them so much", 0.5},
		},
	},
	{
		emotion: EmotionAnger,
		keywords: []weightedPhrase{
			{"angry", 0.5}, {"furious", 0.6}, {"hate", 0.45}, {"outraged", 0.6},
			{"pissed", 0.5}, {"livid", 0.6}, {"unacceptable", 0.4},
		},
		context: []weightedPhrase{
			{"so angry", 0.6}, {"makes me furious", 0.6}, {"how dare", 0.5},
		},
	},
	{
		emotion: EmotionFear,
		keywords: []weightedPhrase{
			{"scared", 0.5}, {"afraid", 0.5}, {"terrified", 0.6}, {"frightened", 0.55},
			{"dread", 0.45},
		},
		context: []weightedPhrase{
			{"so scared", 0.6}, {"what if something happens", 0.45},
		},
	},
	{
		emotion: EmotionAnxiety,
		keywords: []weightedPhrase{
			{"anxious", 0.5}, {"worried", 0.45}, {"nervous", 0.45}, {"panic", 0.55},
			{"overwhelmed", 0.5}, {"stressed", 0.45}, {"restless", 0.4},
		},
		context: []weightedPhrase{
			{"can't stop worrying", 0.6}, {"on edge", 0.5},
		},
	},
	{
		emotion: EmotionFrustration,
		keywords: []weightedPhrase{
			{"frustrated", 0.5}, {"frustrating", 0.5}, {"annoying", 0.4},
			{"pointless", 0.4}, {"useless", 0.4},
		},
		context: []weightedPhrase{
			{"fed up", 0.55}, {"sick of", 0.55}, {"over and over", 0.35},
		},
	},
	{
		emotion: EmotionSurprise,
		keywords: []weightedPhrase{
			{"wow", 0.45}, {"unbelievable", 0.45}, {"unexpected", 0.4},
			{"shocked", 0.5}, {"stunned", 0.5},
		},
		context: []weightedPhrase{
			{"can't believe", 0.55}, {"no way", 0.4},
		},
	},
	{
		emotion: EmotionDisgust,
		keywords: []weightedPhrase{
			{"disgusting", 0.55}, {"gross", 0.45}, {"revolting", 0.55}, {"vile", 0.5},
		},
	},
	{
		emotion: EmotionGratitude,
		keywords: []weightedPhrase{
			{"thanks", 0.4}, {"thank you", 0.5}, {"grateful", 0.5}, {"appreciate", 0.45},
		},
		context: []weightedPhrase{
			{"means a lot", 0.5}, {"couldn't have done it without", 0.5},
		},
	},
	{
		emotion: EmotionCuriosity,
		keywords: []weightedPhrase{
			{"curious", 0.5}, {"wondering", 0.4}, {"interesting", 0.35},
			{"how does", 0.35}, {"what if", 0.3},
		},
		context: []weightedPhrase{
			{"tell me more", 0.5}, {"i'd love to know", 0.5},
		},
	},
}

// sarcasmMarkers flag text whose literal emotion reading is suspect.
var sarcasmMarkers = []string{
	"yeah right",
	"sure, whatever",
	"oh great",
	"oh wonderful",
	"just perfect",
	"thanks a lot",
	"as if",
	"totally fine",
	"couldn't be better",
}

// overrideDirectives are exact-phrase instructions that short-circuit
// detection with confidence 0.9.
var overrideDirectives = []struct {
	phrase  string
	emotion Emotion
}{
	{"express joy", EmotionJoy},
	{"sound happy", EmotionJoy},
	{"be cheerful", EmotionJoy},
	{"express sadness", EmotionSadness},
	{"sound sad", EmotionSadness},
	{"express anger", EmotionAnger},
	{"sound angry", EmotionAnger},
	{"express fear", EmotionFear},
	{"sound worried", EmotionAnxiety},
	{"be calm", EmotionNeutral},
	{"stay neutral", EmotionNeutral},
}

// greetingPatterns are matched in the greeting phase.
var greetingPatterns = []string{
	"hello", "hi ", "hi!", "hi.", "hi,", "hey", "good morning",
	"good afternoon", "good evening", "howdy", "greetings",
}

// engagementKeywords nudge engagement up; disengagementKeywords pull it down.
var engagementKeywords = []string{
	"tell me", "really", "interesting", "more", "why", "how", "wow",
	"exactly", "yes", "love that",
}

var disengagementKeywords = []string{
	"whatever", "ok", "okay", "fine", "sure", "i guess", "doesn't matter",
	"never mind", "bye", "uh huh",
}

// urgentKeywords admit a barge-in outside a crisis.
var urgentKeywords = []string{
	"wait", "stop", "hold on", "actually", "no no", "listen", "urgent",
	"one second", "hang on",
}

// completionMarkers suggest the current sentence carries a finished thought.
var completionMarkers = []string{
	"so that's", "in summary", "that's all", "to sum up", "finally",
	"in short", "anyway",
}
