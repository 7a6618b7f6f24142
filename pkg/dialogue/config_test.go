package dialogue

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.InactivityTimeout != 45*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 45m", cfg.InactivityTimeout)
	}
	if cfg.RecentEmotionsCap != 15 || cfg.HistoryCap != 30 {
		t.Errorf("caps = %d/%d, want 15/30", cfg.RecentEmotionsCap, cfg.HistoryCap)
	}
	if cfg.ConfidenceThreshold != 0.35 {
		t.Errorf("ConfidenceThreshold = %v, want 0.35", cfg.ConfidenceThreshold)
	}
	w := cfg.CrisisSubScoreWeights
	if sum := w.Text + w.Voice + w.Behavioral; sum < 0.999 || sum > 1.001 {
		t.Errorf("crisis weights sum to %v, want 1.0", sum)
	}
	if err := cfg.validate(); err != nil {
		t.Fatalf("default config failed validation: %v", err)
	}
}

func TestLoadConfigPartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := strings.Join([]string{
		"inactivity_timeout: 10m",
		"confidence_threshold: 0.5",
		"crisis_level_thresholds:",
		"  low: 0.1",
		"  medium: 0.3",
		"  high: 0.5",
		"  critical: 0.7",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error: %v", err)
	}
	if cfg.InactivityTimeout != 10*time.Minute {
		t.Errorf("InactivityTimeout = %v, want 10m", cfg.InactivityTimeout)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("ConfidenceThreshold = %v, want 0.5", cfg.ConfidenceThreshold)
	}
	if cfg.CrisisLevelThresholds.Critical != 0.7 {
		t.Errorf("Critical threshold = %v, want 0.7", cfg.CrisisLevelThresholds.Critical)
	}
	// Fields absent from the file keep their defaults.
	if cfg.HistoryCap != 30 {
		t.Errorf("HistoryCap = %d, want default 30", cfg.HistoryCap)
	}
	if cfg.MinResponseDelay != 500*time.Millisecond {
		t.Errorf("MinResponseDelay = %v, want default 500ms", cfg.MinResponseDelay)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("inactivity_timeout: [not a duration"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestConfigValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"delay inversion", func(c *Config) {
			c.MinResponseDelay = 5 * time.Second
			c.MaxResponseDelay = time.Second
		}},
		{"zero baseline alpha", func(c *Config) { c.BaselineAlpha = 0 }},
		{"alpha above one", func(c *Config) { c.BaselineAlpha = 1.5 }},
		{"zero engagement decay", func(c *Config) { c.EngagementDecay = 0 }},
		{"non-increasing thresholds", func(c *Config) {
			c.CrisisLevelThresholds = CrisisThresholds{Low: 0.4, Medium: 0.4, High: 0.6, Critical: 0.8}
		}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
