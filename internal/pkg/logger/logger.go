package logger

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init configures the global zerolog logger for a service. Every service
// calls this once from bootstrap before anything else logs.
func Init(serviceName, level string) {
	zerolog.TimeFieldFormat = time.RFC3339Nano

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}

	log.Logger = zerolog.New(os.Stdout).
		Level(lvl).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()
}

// Ctx returns a logger bound to the given context. When a span is active the
// trace id is attached so log lines can be joined with traces in Jaeger.
func Ctx(ctx context.Context) *zerolog.Logger {
	l := log.Logger
	if tid := traceID(ctx); tid != "" {
		l = l.With().Str("trace_id", tid).Logger()
	}
	return &l
}
