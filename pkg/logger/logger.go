package logger

import (
	"go.uber.org/zap"
)

// New builds a sugared zap logger. Production mode emits JSON, otherwise
// the development console encoder is used.
func New(prod bool) (*zap.SugaredLogger, error) {
	var logger *zap.Logger
	var err error

	if prod {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

// OrNop returns log, or a no-op logger when log is nil.
func OrNop(log *zap.SugaredLogger) *zap.SugaredLogger {
	if log == nil {
		return zap.NewNop().Sugar()
	}
	return log
}
