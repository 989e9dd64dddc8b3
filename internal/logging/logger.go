package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/san-kum/brazilnut/internal/control"
)

type Config struct {
	Level  string // debug, info, warn, error
	Format string // console or json
	Out    io.Writer
}

// New builds the process logger and installs it as the zerolog global.
func New(app string, cfg Config) zerolog.Logger {
	out := cfg.Out
	if out == nil {
		out = os.Stderr
	}
	if !strings.EqualFold(cfg.Format, "json") {
		out = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}

	logger := zerolog.New(out).Level(ParseLevel(cfg.Level)).With().Timestamp().Str("app", app).Logger()
	log.Logger = logger
	return logger
}

// ParseLevel maps a level name to zerolog; unknown names fall back to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// TransitionLogger writes one log line per controller transition. Kicks
// are frequent and go to debug.
type TransitionLogger struct {
	logger zerolog.Logger
}

func NewTransitionLogger(logger zerolog.Logger) *TransitionLogger {
	return &TransitionLogger{logger: logger}
}

func (l *TransitionLogger) OnTransition(e control.Event) {
	event := l.logger.Info()
	if e.Kind == control.Kick {
		event = l.logger.Debug()
	}

	event.
		Str("event", e.Kind.String()).
		Float64("t", e.Time).
		Int("kick", e.Kick).
		Float64("velocity", e.Velocity).
		Float64("threshold", e.Threshold).
		Msg("phase_transition")
}
