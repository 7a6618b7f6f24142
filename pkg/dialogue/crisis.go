package dialogue

import (
	"math"
	"strings"

	"github.com/sonara-ai/sonara-dialogue/pkg/audio"
)

// riskCategory is one slice of the crisis vocabulary. boost amplifies the
// keyword match ratio so a single strong phrase can saturate the category;
// weight is the category's share of the text sub-score (zero-weight
// categories still feed confidence).
type riskCategory struct {
	name     string
	weight   float64
	boost    float64
	keywords []string
}

var riskCategories = []riskCategory{
	{
		name:   "suicidal",
		weight: 0.30,
		boost:  5.0,
		keywords: []string{
			"kill myself", "suicide", "end my life", "want to die",
			"better off dead", "end it all",
		},
	},
	{
		name:   "self-harm",
		weight: 0.25,
		boost:  4.0,
		keywords: []string{
			"hurt myself", "cut myself", "harm myself", "punish myself",
			"self harm",
		},
	},
	{
		name:   "hopelessness",
		weight: 0.20,
		boost:  3.0,
		keywords: []string{
			"hopeless", "no way out", "pointless", "no future",
			"nothing matters", "give up", "can't go on",
		},
	},
	{
		name:   "violence",
		weight: 0.15,
		boost:  3.0,
		keywords: []string{
			"hurt someone", "kill them", "make them pay", "destroy",
			"violent",
		},
	},
	{
		name:   "acute-distress",
		weight: 0.10,
		boost:  3.0,
		keywords: []string{
			"can't breathe", "panic attack", "falling apart", "losing my mind",
			"breaking down", "can't take it",
		},
	},
	{
		name:   "isolation",
		weight: 0,
		boost:  3.0,
		keywords: []string{
			"all alone", "nobody cares", "no one understands", "abandoned",
			"completely alone",
		},
	},
	{
		name:   "substance",
		weight: 0,
		boost:  3.0,
		keywords: []string{
			"drinking again", "relapsed", "overdose", "too many pills",
			"blackout drunk",
		},
	},
}

// CrisisAssessor scores each turn's text, voice and behavioral history into
// a single risk estimate. It is stateless; per-session history comes in via
// the session context.
type CrisisAssessor struct {
	cfg    Config
	logger Logger
}

func NewCrisisAssessor(cfg Config, logger Logger) *CrisisAssessor {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &CrisisAssessor{cfg: cfg, logger: logger}
}

// Assess never returns an error: missing voice features and empty history
// contribute zero, and an internal panic degrades to the cautious
// medium/medium fallback rather than a silent none.
func (a *CrisisAssessor) Assess(text string, features *audio.VoiceFeatures, ctx *SessionContext) (out CrisisAssessment) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("crisis assessment fault, using cautious fallback", "panic", r)
			out = CrisisAssessment{
				Level:      CrisisMedium,
				Urgency:    UrgencyMedium,
				Confidence: 0.3,
			}
		}
	}()

	textRisk, suicidal, matched := a.textRisk(text)
	voiceRisk := a.voiceRisk(features)
	behavioralRisk := a.behavioralRisk(ctx)

	w := a.cfg.CrisisSubScoreWeights
	overall := w.Text*textRisk + w.Voice*voiceRisk + w.Behavioral*behavioralRisk

	level := a.levelFor(overall)
	// A saturated suicidal category floors the level regardless of the
	// blended overall score: suicidal text must never read as none.
	if suicidal > 0.7 && level.rank() < CrisisCritical.rank() {
		level = CrisisCritical
	}
	urgency := urgencyFor(level)

	confidence := 0.4
	if matched > 0 {
		confidence += 0.3
	}
	if features != nil {
		confidence += 0.2
	}
	if ctx != nil && len(ctx.RecentEmotions()) >= 3 {
		confidence += 0.1
	}

	if urgency == UrgencyImmediate {
		a.logger.Warn("immediate crisis urgency",
			"overallRisk", overall, "level", string(level), "suicidalScore", suicidal)
	}

	return CrisisAssessment{
		TextRisk:       textRisk,
		VoiceRisk:      voiceRisk,
		BehavioralRisk: behavioralRisk,
		OverallRisk:    overall,
		Level:          level,
		Confidence:     clampUnit(confidence),
		Urgency:        urgency,
	}
}

// textRisk returns the weighted text sub-score, the suicidal category's own
// score, and the total number of matched phrases.
func (a *CrisisAssessor) textRisk(text string) (risk, suicidalScore float64, matched int) {
	lower := strings.ToLower(text)
	for _, cat := range riskCategories {
		count := 0
		for _, kw := range cat.keywords {
			if strings.Contains(lower, kw) {
				count++
			}
		}
		if count == 0 {
			continue
		}
		matched += count
		score := math.Min(1, float64(count)/float64(len(cat.keywords))*cat.boost)
		if cat.name == "suicidal" {
			suicidalScore = score
		}
		risk += cat.weight * score
	}
	return clampUnit(risk), suicidalScore, matched
}

func (a *CrisisAssessor) voiceRisk(vf *audio.VoiceFeatures) float64 {
	if vf == nil {
		return 0
	}
	risk := 0.25*vf.Stress +
		0.20*vf.BreathIrregularity +
		0.20*vf.Tremor +
		0.15*vf.PitchInstability +
		0.10*vf.VolumeInconsistency +
		0.10*vf.EnergySpike
	return clampUnit(risk)
}

// behavioralRisk reads the session's recent crisis-level trail: mood-swing
// variance, three consecutive non-decreasing levels (agitation), and a jump
// of two or more bands between consecutive turns (impulsivity).
func (a *CrisisAssessor) behavioralRisk(ctx *SessionContext) float64 {
	if ctx == nil {
		return 0
	}
	samples := ctx.RecentEmotions()
	if len(samples) < 2 {
		return 0
	}

	ranks := make([]float64, len(samples))
	for i, s := range samples {
		ranks[i] = float64(s.Level.rank())
	}

	moodSwing := clampUnit(stddev(ranks) / 2)

	agitation := 0.0
	if len(ranks) >= 3 {
		n := len(ranks)
		if ranks[n-1] >= ranks[n-2] && ranks[n-2] >= ranks[n-3] && ranks[n-1] > 0 {
			agitation = 0.7
		}
	}

	impulsivity := 0.0
	for i := 1; i < len(ranks); i++ {
		if ranks[i]-ranks[i-1] >= 2 {
			impulsivity = 0.6
			break
		}
	}

	return math.Max(moodSwing, math.Max(agitation, impulsivity))
}

func (a *CrisisAssessor) levelFor(overall float64) CrisisLevel {
	t := a.cfg.CrisisLevelThresholds
	switch {
	case overall >= t.Critical:
		return CrisisCritical
	case overall >= t.High:
		return CrisisHigh
	case overall >= t.Medium:
		return CrisisMedium
	case overall >= t.Low:
		return CrisisLow
	default:
		return CrisisNone
	}
}

func urgencyFor(level CrisisLevel) Urgency {
	switch level {
	case CrisisCritical:
		return UrgencyImmediate
	case CrisisHigh:
		return UrgencyHigh
	case CrisisMedium:
		return UrgencyMedium
	default:
		return UrgencyLow
	}
}

func stddev(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	m := 0.0
	for _, v := range vals {
		m += v
	}
	m /= float64(len(vals))
	sum := 0.0
	for _, v := range vals {
		d := v - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(vals)))
}
