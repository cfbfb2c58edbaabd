package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatalf("запись конфигурации: %v", err)
	}
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Screening.Workers != 50 {
		t.Errorf("workers = %d, ожидалось 50", cfg.Screening.Workers)
	}
	if cfg.Analysis.Breakout.Lookback != 20 || cfg.Analysis.Breakout.VolumePeriod != 20 {
		t.Errorf("breakout defaults: %+v", cfg.Analysis.Breakout)
	}
	if cfg.Analysis.Breakout.VolumeMultiplier != 1.5 {
		t.Errorf("volume multiplier = %v", cfg.Analysis.Breakout.VolumeMultiplier)
	}
	if cfg.Analysis.VolumeProfile.Buckets != 50 {
		t.Errorf("buckets = %d", cfg.Analysis.VolumeProfile.Buckets)
	}
	if cfg.Analysis.Structure.PivotWidth != 5 {
		t.Errorf("pivot width = %d", cfg.Analysis.Structure.PivotWidth)
	}
	if cfg.Analysis.Composite.MinScore != cfg.Analysis.Composite.Thresholds.Buy || cfg.Analysis.Composite.MinScore != 60 {
		t.Errorf("min score = %v, ожидался порог ПОКУПКИ", cfg.Analysis.Composite.MinScore)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("конфигурация по умолчанию невалидна: %v", err)
	}
}

func TestLoad_ParsesYAML(t *testing.T) {
	path := writeConfig(t, `
screening:
  workers: 8
  timeout_seconds: 30
universes:
  nifty:
    - RELIANCE
    - TCS
analysis:
  breakout:
    lookback: 4
  composite:
    breakout_weight: 1
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Screening.Workers != 8 {
		t.Errorf("workers = %d", cfg.Screening.Workers)
	}
	if got := cfg.Screening.Timeout().Seconds(); got != 30 {
		t.Errorf("timeout = %v", got)
	}
	if len(cfg.Universes["nifty"]) != 2 {
		t.Errorf("universe nifty = %v", cfg.Universes["nifty"])
	}
	if cfg.Analysis.Breakout.VolumePeriod != 4 {
		t.Errorf("volume period должен наследовать lookback, получено %d", cfg.Analysis.Breakout.VolumePeriod)
	}
	// заданный вес отключает веса по умолчанию
	if cfg.Analysis.Composite.VolumeWeight != 0 {
		t.Errorf("volume weight = %v", cfg.Analysis.Composite.VolumeWeight)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SCREENER_WORKERS", "12")
	t.Setenv("REDIS_ADDR", "localhost:6380")
	cfg, err := Load(writeConfig(t, "screening:\n  workers: 3\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Screening.Workers != 12 {
		t.Errorf("workers = %d, ожидалось 12", cfg.Screening.Workers)
	}
	if cfg.Cache.Addr != "localhost:6380" {
		t.Errorf("cache addr = %q", cfg.Cache.Addr)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "screening: [")); err == nil {
		t.Fatal("ожидалась ошибка разбора")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"workers", func(c *Config) { c.Screening.Workers = 0 }},
		{"lookback", func(c *Config) { c.Analysis.Breakout.Lookback = 1 }},
		{"margin", func(c *Config) { c.Analysis.Breakout.Margin = -0.1 }},
		{"pivot", func(c *Config) { c.Analysis.Structure.PivotWidth = 0 }},
		{"negative weight", func(c *Config) { c.Analysis.Composite.VolumeWeight = -1 }},
		{"storage", func(c *Config) { c.Storage.Enabled = true }},
		{"cache", func(c *Config) { c.Cache.Enabled = true }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("ожидалась ошибка валидации")
			}
		})
	}
}

func TestApplyDefaults_MinScore(t *testing.T) {
	cfg := &Config{}
	cfg.Analysis.Composite.MinScore = 70
	cfg.ApplyDefaults()
	if cfg.Analysis.Composite.MinScore != 70 {
		t.Errorf("заданный min score перезаписан: %v", cfg.Analysis.Composite.MinScore)
	}

	cfg = &Config{}
	cfg.Analysis.Composite.Thresholds = SignalThresholds{StrongBuy: 80, Buy: 65, Sell: 35, StrongSell: 20}
	cfg.ApplyDefaults()
	if cfg.Analysis.Composite.MinScore != 65 {
		t.Errorf("min score = %v, ожидался заданный порог ПОКУПКИ 65", cfg.Analysis.Composite.MinScore)
	}
}
