package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/san-kum/brazilnut/internal/control"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warn", zerolog.WarnLevel},
		{"warning", zerolog.WarnLevel},
		{" error ", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"verbose", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestNew_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New("brazilnut", Config{Level: "info", Format: "json", Out: &buf})

	logger.Info().Str("k", "v").Msg("hello")
	logger.Debug().Msg("dropped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one line at info level, got %d: %q", len(lines), buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if entry["app"] != "brazilnut" || entry["k"] != "v" || entry["message"] != "hello" {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestNew_Console(t *testing.T) {
	var buf bytes.Buffer
	logger := New("brazilnut", Config{Format: "console", Out: &buf})
	logger.Info().Msg("hello")

	if strings.HasPrefix(buf.String(), "{") {
		t.Errorf("console format should not emit json: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("missing message in %q", buf.String())
	}
}

func TestTransitionLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.InfoLevel)
	tl := NewTransitionLogger(logger)

	tl.OnTransition(control.Event{Kind: control.FlowShutoff, Time: 1.0})
	tl.OnTransition(control.Event{Kind: control.Kick, Time: 1.5, Velocity: 1})
	tl.OnTransition(control.Event{Kind: control.Rest, Time: 20, Kick: 74})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("kicks should be logged at debug, got %d lines: %q", len(lines), buf.String())
	}

	var rest map[string]any
	if err := json.Unmarshal([]byte(lines[1]), &rest); err != nil {
		t.Fatalf("output is not json: %v", err)
	}
	if rest["event"] != "rest" || rest["kick"] != float64(74) || rest["message"] != "phase_transition" {
		t.Errorf("unexpected rest entry %v", rest)
	}
}
