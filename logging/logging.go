// Package logging builds the zerolog.Logger used across the pricer,
// following Sergey-Bar-Alfred's services/gateway/logger shape: a logger
// built once and passed down explicitly, never read from a global
// singleton at arbitrary call sites. The package itself holds no logger.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

// New returns a configured zerolog.Logger writing to stderr. debug lowers
// the minimum level from Info to Debug; NumericRepair warnings (correlation
// PSD clip, Cholesky epsilon-retry) are Warn events and appear under both
// settings. The level is applied with zerolog.SetGlobalLevel, so it affects
// every zerolog logger in the process.
func New(debug bool) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if debug {
		lvl = zerolog.DebugLevel
	}
	return NewWithWriter(os.Stderr, lvl)
}

// NewWithWriter builds a logger against an arbitrary writer (tests capture
// output this way instead of parsing stderr).
func NewWithWriter(w io.Writer, lvl zerolog.Level) zerolog.Logger {
	zerolog.SetGlobalLevel(lvl)
	return zerolog.New(zerolog.ConsoleWriter{Out: w}).With().Timestamp().Logger()
}

// WarnFunc adapts a zerolog.Logger into the `func(string)` callback that
// correlation.Repair/Cholesky and paths.NewGenerator accept for
// NumericRepair diagnostics (spec §7): every repair warning becomes a
// structured logger.Warn() event instead of a bare string.
func WarnFunc(log zerolog.Logger) func(string) {
	return func(msg string) {
		log.Warn().Msg(msg)
	}
}
