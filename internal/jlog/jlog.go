// Package jlog is the package-level structured logger, toggled per
// concern by environment variables the way debug flags are toggled
// throughout the teacher codebase this project grew out of.
package jlog

import (
	"os"
	"strconv"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type flags struct {
	Visit  bool // JSONVISIT_DEBUG_VISIT — log every token the visitor consumes
	Scan   bool // JSONVISIT_DEBUG_SCAN — log every token emitted by the scanner
	Filter bool // JSONVISIT_DEBUG_FILTER — log Filter predicate evaluations
}

var (
	f flags
	l *zap.Logger
	o sync.Once
)

func init() {
	f.Visit = boolEnv("JSONVISIT_DEBUG_VISIT")
	f.Scan = boolEnv("JSONVISIT_DEBUG_SCAN")
	f.Filter = boolEnv("JSONVISIT_DEBUG_FILTER")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// L returns the process-wide logger, built lazily on first use so that
// importing this package never has a side effect on stderr.
func L() *zap.Logger {
	o.Do(func() {
		cfg := zap.NewProductionConfig()
		cfg.EncoderConfig.TimeKey = ""
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		built, err := cfg.Build()
		if err != nil {
			l = zap.NewNop()
			return
		}
		l = built
	})
	return l
}

// Visit reports whether per-token visitor tracing is enabled.
func Visit() bool { return f.Visit }

// Scan reports whether token-level scanner tracing is enabled.
func Scan() bool { return f.Scan }

// Filter reports whether Filter predicate tracing is enabled.
func Filter() bool { return f.Filter }
