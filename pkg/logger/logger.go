package logger

import (
	"context"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns a JSON logger on stdout. The "dev" environment logs at debug level.
func New(env string) zerolog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter is New writing to w.
func NewWithWriter(env string, w io.Writer) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	l := zerolog.New(w).With().Timestamp().Logger()
	if env == "dev" {
		l = l.Level(zerolog.DebugLevel)
	} else {
		l = l.Level(zerolog.InfoLevel)
	}
	return l
}

// Telemetry records portal telemetry events as log lines. Failures log at
// warn, rejected input at info and everything else at debug.
type Telemetry struct {
	Logger zerolog.Logger
}

func (t Telemetry) Record(_ context.Context, event string, payload map[string]any) {
	t.Logger.WithLevel(levelFor(event)).Str("event", event).Fields(payload).Msg("telemetry")
}

var (
	warnSuffixes = []string{".error", ".failed", "_failed", "_corrupt"}
	infoSuffixes = []string{".invalid", ".declined"}
)

func levelFor(event string) zerolog.Level {
	for _, suffix := range warnSuffixes {
		if strings.HasSuffix(event, suffix) {
			return zerolog.WarnLevel
		}
	}
	for _, suffix := range infoSuffixes {
		if strings.HasSuffix(event, suffix) {
			return zerolog.InfoLevel
		}
	}
	return zerolog.DebugLevel
}
