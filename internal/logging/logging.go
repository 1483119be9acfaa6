// Package logging builds the zerolog logger used by every ragfeed command,
// honoring RAG_LOG_FORMAT and a RUST_LOG-style level directive the way the
// CLI's environment contract describes.
package logging

import (
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/triloy8/ragfeed-rs/internal/errs"
)

// New builds a logger writing to stderr. format selects "json" (the default,
// NDJSON suitable for log aggregation) or "text" (human-readable, colorized
// unless NO_COLOR is set). directive is a RUST_LOG-style string; only a
// single level ("trace", "debug", "info", "warn", "error") is honored, taken
// from after the last "=" if present; per-target filtering is not
// implemented.
func New(format, directive string) zerolog.Logger {
	level := parseDirective(directive)

	var writer = os.Stderr
	if strings.EqualFold(format, "text") {
		console := zerolog.ConsoleWriter{Out: writer, TimeFormat: "15:04:05"}
		if _, noColor := os.LookupEnv("NO_COLOR"); noColor {
			console.NoColor = true
		}
		return zerolog.New(console).Level(level).With().Timestamp().Logger()
	}

	return zerolog.New(writer).Level(level).With().Timestamp().Logger()
}

func parseDirective(directive string) zerolog.Level {
	directive = strings.ToLower(strings.TrimSpace(directive))
	if idx := strings.LastIndex(directive, "="); idx >= 0 {
		directive = directive[idx+1:]
	}
	switch directive {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "":
		return zerolog.InfoLevel
	default:
		return zerolog.InfoLevel
	}
}

// WithErr attaches the error_kind field spec.md §7 requires whenever a
// ragfeed error crosses a log boundary.
func WithErr(event *zerolog.Event, err error) *zerolog.Event {
	if err == nil {
		return event
	}
	event = event.Err(err)
	if e, ok := err.(*errs.Error); ok {
		event = event.Str("error_kind", string(e.Kind)).Str("op", e.Op)
	}
	return event
}
