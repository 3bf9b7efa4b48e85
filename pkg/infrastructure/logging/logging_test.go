package logging

import (
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		level   string
		format  string
		enabled zapcore.Level
		wantErr bool
	}{
		{"debug", "console", zapcore.DebugLevel, false},
		{"", "json", zapcore.InfoLevel, false},
		{"warn", "json", zapcore.WarnLevel, false},
		{"loud", "console", zapcore.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level+"/"+tt.format, func(t *testing.T) {
			logger, err := New(Config{Level: tt.level, Format: tt.format})
			if tt.wantErr {
				if err == nil {
					t.Fatal("Expected error for unknown level")
				}
				return
			}
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			if !logger.Core().Enabled(tt.enabled) {
				t.Errorf("Expected %s to be enabled", tt.enabled)
			}
			if tt.enabled > zapcore.DebugLevel && logger.Core().Enabled(tt.enabled-1) {
				t.Errorf("Expected level below %s to be disabled", tt.enabled)
			}
		})
	}
}

func TestOrNop(t *testing.T) {
	if OrNop(nil) == nil {
		t.Error("Expected a logger")
	}
}
