package logger

import (
	"testing"

	"go.uber.org/zap"
)

func TestNewLevels(t *testing.T) {
	tests := []struct {
		level string
		want  zap.AtomicLevel
	}{
		{"debug", zap.NewAtomicLevelAt(zap.DebugLevel)},
		{"warn", zap.NewAtomicLevelAt(zap.WarnLevel)},
		{"error", zap.NewAtomicLevelAt(zap.ErrorLevel)},
		{"bogus", zap.NewAtomicLevelAt(zap.InfoLevel)},
	}

	for _, tt := range tests {
		log, err := New(tt.level, "console")
		if err != nil {
			t.Fatalf("New(%q): %v", tt.level, err)
		}
		if !log.Core().Enabled(tt.want.Level()) {
			t.Errorf("New(%q) should enable %s", tt.level, tt.want.Level())
		}
		if tt.want.Level() > zap.DebugLevel && log.Core().Enabled(tt.want.Level()-1) {
			t.Errorf("New(%q) should not enable %s", tt.level, tt.want.Level()-1)
		}
	}
}
