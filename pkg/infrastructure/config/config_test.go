package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Planning.ReserveInputs {
		t.Error("Expected reserve_inputs false")
	}
	if cfg.Planning.SafetyStockPercent != 0.2 {
		t.Errorf("Expected safety stock 0.2, got %v", cfg.Planning.SafetyStockPercent)
	}
	if cfg.Planning.HistoricalDays != 28 {
		t.Errorf("Expected 28 historical days, got %d", cfg.Planning.HistoricalDays)
	}
	if !cfg.Planning.SameWeekdayOnly {
		t.Error("Expected same_weekday_only true")
	}
	if cfg.Sequence.Backend != "memory" {
		t.Errorf("Expected memory sequence backend, got %s", cfg.Sequence.Backend)
	}

	settings := cfg.Settings()
	if settings.SafetyStockPercent.String() != "0.2" {
		t.Errorf("Expected decimal 0.2, got %s", settings.SafetyStockPercent)
	}
	if settings.DefaultStartHour != 6 || settings.MaxBOMDepth != 5 {
		t.Errorf("Unexpected settings %+v", settings)
	}
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "craftsman.yaml")
	content := []byte(`planning:
  reserve_inputs: true
  safety_stock_percent: 0.15
  historical_days: 14
sequence:
  backend: sqlite
  dsn: /tmp/seq.db
events:
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
`)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	t.Setenv("CRAFTSMAN_PLANNING_HISTORICAL_DAYS", "56")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.Planning.ReserveInputs {
		t.Error("Expected reserve_inputs from file")
	}
	if cfg.Planning.SafetyStockPercent != 0.15 {
		t.Errorf("Expected 0.15, got %v", cfg.Planning.SafetyStockPercent)
	}
	if cfg.Planning.HistoricalDays != 56 {
		t.Errorf("Expected environment override 56, got %d", cfg.Planning.HistoricalDays)
	}
	if cfg.Sequence.Backend != "sqlite" || cfg.Sequence.DSN != "/tmp/seq.db" {
		t.Errorf("Unexpected sequence config %+v", cfg.Sequence)
	}
	if len(cfg.Events.Kafka.Brokers) != 2 {
		t.Errorf("Expected 2 brokers, got %v", cfg.Events.Kafka.Brokers)
	}
	if cfg.Planning.SameWeekdayOnly != true {
		t.Error("Expected default same_weekday_only to survive")
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"negative safety", func(c *Config) { c.Planning.SafetyStockPercent = -0.1 }, "planning.safety_stock_percent cannot be negative, got -0.1"},
		{"zero days", func(c *Config) { c.Planning.HistoricalDays = 0 }, "planning.historical_days must be positive, got 0"},
		{"bad hour", func(c *Config) { c.Planning.DefaultStartHour = 24 }, "planning.default_start_hour must be between 0 and 23, got 24"},
		{"bad backend", func(c *Config) { c.Sequence.Backend = "etcd" }, `unknown sequence backend "etcd"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Defaults()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || err.Error() != tt.errMsg {
				t.Errorf("Expected '%s', got %v", tt.errMsg, err)
			}
		})
	}
}
