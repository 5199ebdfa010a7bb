package logging

import (
	"testing"

	log "github.com/sirupsen/logrus"
)

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected log.Level
	}{
		{"debug lowercase", "debug", log.DebugLevel},
		{"debug uppercase", "DEBUG", log.DebugLevel},
		{"verbose alias", "verbose", log.DebugLevel},

		{"info lowercase", "info", log.InfoLevel},
		{"info uppercase", "INFO", log.InfoLevel},

		{"warn lowercase", "warn", log.WarnLevel},
		{"warning alias", "warning", log.WarnLevel},

		{"error lowercase", "error", log.ErrorLevel},

		{"quiet alias", "quiet", log.FatalLevel},
		{"silent alias", "silent", log.FatalLevel},

		// Default (unknown) -> InfoLevel
		{"unknown string", "foobar", log.InfoLevel},
		{"empty string", "", log.InfoLevel},
		{"whitespace", "  debug  ", log.DebugLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Reset to a known state before each test
			log.SetLevel(log.PanicLevel)

			SetLogLevel(tt.input)

			got := log.GetLevel()
			if got != tt.expected {
				t.Errorf("SetLogLevel(%q) = %v, want %v", tt.input, got, tt.expected)
			}
		})
	}
}
