// Package logging builds the zap loggers shared by the pipeline workers.
package logging

import (
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Level string
	// JSON switches from the console encoder to zap's production JSON output.
	JSON bool
	// File redirects output away from stdout, for frontends that own the
	// terminal.
	File string
}

// New returns a sugared logger named after the worker.
func New(service string, cfg Config) (*zap.SugaredLogger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(cfg.Level)))
	if err != nil {
		if strings.TrimSpace(cfg.Level) != "" {
			return nil, errors.Wrapf(err, "invalid log level %q", cfg.Level)
		}
		level = zapcore.InfoLevel
	}

	var zl *zap.Logger
	if cfg.JSON {
		zc := zap.NewProductionConfig()
		zc.Level = zap.NewAtomicLevelAt(level)
		if cfg.File != "" {
			zc.OutputPaths = []string{cfg.File}
		}
		zl, err = zc.Build()
		if err != nil {
			return nil, errors.Wrap(err, "build json logger")
		}
	} else {
		encCfg := zap.NewDevelopmentEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		var out zapcore.WriteSyncer = zapcore.AddSync(os.Stdout)
		if cfg.File != "" {
			out, _, err = zap.Open(cfg.File)
			if err != nil {
				return nil, errors.Wrapf(err, "open log file %s", cfg.File)
			}
		}
		zl = zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), out, level))
	}

	return zl.Named(service).Sugar(), nil
}

// Nop is the default logger of services that were not given one.
func Nop() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}
