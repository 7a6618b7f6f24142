package dialogue

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// CrisisThresholds are the overall-risk cut points for each categorical
// level. Values are empirical and deliberately overridable rather than tuned.
type CrisisThresholds struct {
	Low      float64 `yaml:"low"`
	Medium   float64 `yaml:"medium"`
	High     float64 `yaml:"high"`
	Critical float64 `yaml:"critical"`
}

// CrisisWeights blend the three crisis sub-scores into the overall risk.
type CrisisWeights struct {
	Text       float64 `yaml:"text"`
	Voice      float64 `yaml:"voice"`
	Behavioral float64 `yaml:"behavioral"`
}

type Config struct {
	// Session lifecycle
	InactivityTimeout time.Duration `yaml:"inactivity_timeout"`
	SweepSpec         string        `yaml:"sweep_spec"` // cron spec for the expiry sweeper, "" disables it
	RecentEmotionsCap int           `yaml:"recent_emotions_cap"`
	HistoryCap        int           `yaml:"history_cap"`
	BaselineAlpha     float64       `yaml:"baseline_alpha"`
	DriftThreshold    float64       `yaml:"drift_threshold"`

	// Fusion
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// Crisis
	CrisisLevelThresholds CrisisThresholds `yaml:"crisis_level_thresholds"`
	CrisisSubScoreWeights CrisisWeights    `yaml:"crisis_subscore_weights"`

	// Flow
	MinResponseDelay     time.Duration `yaml:"min_response_delay"`
	MaxResponseDelay     time.Duration `yaml:"max_response_delay"`
	InterruptionCountCap int           `yaml:"interruption_count_cap"`
	EngagementDecay      float64       `yaml:"engagement_decay"`

	// Input boundary
	MaxInputChars int `yaml:"max_input_chars"`

	// Playback monitoring
	TickInterval time.Duration `yaml:"tick_interval"`
	SampleRate   int           `yaml:"sample_rate"`
}

func DefaultConfig() Config {
	return Config{
		InactivityTimeout: 45 * time.Minute,
		SweepSpec:         "@every 5m",
		RecentEmotionsCap: 15,
		HistoryCap:        30,
		BaselineAlpha:     0.1,
		DriftThreshold:    0.3,

		ConfidenceThreshold: 0.35,

		CrisisLevelThresholds: CrisisThresholds{Low: 0.2, Medium: 0.4, High: 0.6, Critical: 0.8},
		CrisisSubScoreWeights: CrisisWeights{Text: 0.6, Voice: 0.25, Behavioral: 0.15},

		MinResponseDelay:     500 * time.Millisecond,
		MaxResponseDelay:     3 * time.Second,
		InterruptionCountCap: 2,
		EngagementDecay:      0.95,

		MaxInputChars: 1000,

		TickInterval: 50 * time.Millisecond,
		SampleRate:   44100,
	}
}

// LoadConfig reads a YAML config file over the defaults. Fields absent from
// the file keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, cfg.validate()
}

func (c Config) validate() error {
	if c.MinResponseDelay > c.MaxResponseDelay {
		return fmt.Errorf("min_response_delay %v exceeds max_response_delay %v",
			c.MinResponseDelay, c.MaxResponseDelay)
	}
	if c.BaselineAlpha <= 0 || c.BaselineAlpha > 1 {
		return fmt.Errorf("baseline_alpha must be in (0,1], got %v", c.BaselineAlpha)
	}
	if c.EngagementDecay <= 0 || c.EngagementDecay > 1 {
		return fmt.Errorf("engagement_decay must be in (0,1], got %v", c.EngagementDecay)
	}
	t := c.CrisisLevelThresholds
	if !(t.Low < t.Medium && t.Medium < t.High && t.High < t.Critical) {
		return fmt.Errorf("crisis thresholds must be strictly increasing")
	}
	return nil
}
