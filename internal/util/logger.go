package util

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const ServiceName = "checkout-service"

var logger *zap.Logger

// InitLogger initializes the global logger
func InitLogger(env string) error {
	var err error
	var config zap.Config

	if env == "production" {
		config = zap.NewProductionConfig()
		config.EncoderConfig.TimeKey = "timestamp"
		config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	} else {
		config = zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	base, err := config.Build()
	if err != nil {
		return err
	}
	logger = base.With(zap.String("service", ServiceName), zap.String("env", env))

	zap.ReplaceGlobals(logger)
	return nil
}

// GetLogger returns the global logger
func GetLogger() *zap.Logger {
	if logger == nil {
		logger, _ = zap.NewDevelopment()
	}
	return logger
}

// SetLogger swaps the global logger, used by tests to silence or observe output
func SetLogger(l *zap.Logger) {
	logger = l
}

// SyncLogger flushes any buffered log entries
func SyncLogger() {
	if logger != nil {
		_ = logger.Sync()
	}
}
