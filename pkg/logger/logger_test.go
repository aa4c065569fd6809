package logger

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestInit_LevelParsing(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zerolog.Level
	}{
		{name: "debug", level: "debug", want: zerolog.DebugLevel},
		{name: "warn", level: "warn", want: zerolog.WarnLevel},
		{name: "invalid falls back to info", level: "loud", want: zerolog.InfoLevel},
		{name: "empty falls back to info", level: "", want: zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			Init("cryptonested-test", tt.level, false)
			if got := zerolog.GlobalLevel(); got != tt.want {
				t.Errorf("global level = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWith_AddsField(t *testing.T) {
	Init("cryptonested-test", "info", false)
	sub := With("component", "staking")
	// The sub-logger must be usable without touching the package logger.
	sub.Info().Msg("ok")
}
