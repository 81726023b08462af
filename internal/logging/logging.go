// Package logging builds the zap logger used by the CLI and handed to the
// engine. Nothing here is global; callers own the logger they get.
package logging

import (
	"go.uber.org/zap"
)

// New returns a console logger writing to stderr. Debug enables
// development output at debug level; otherwise only warnings and errors
// are shown so report output on stdout stays clean.
func New(debug bool) (*zap.Logger, error) {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// Must is New that falls back to a no-op logger when the config cannot be
// built.
func Must(debug bool) *zap.Logger {
	l, err := New(debug)
	if err != nil {
		return zap.NewNop()
	}
	return l
}
