package main

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// SetupLogging writes json logs to the configured file since the
// terminal belongs to the user interface.
func SetupLogging(config *Config) (*zap.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(config.LogFile), 0o700); err != nil {
		return nil, nil, fmt.Errorf("failed to create logging folder: %w", err)
	}
	file, err := os.OpenFile(config.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logging file: %w", err)
	}

	zapConfig := zap.NewProductionEncoderConfig()
	zapConfig.TimeKey = "ts"
	zapConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zapConfig.LevelKey = "lvl"
	zapConfig.MessageKey = "msg"
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zapConfig), zapcore.AddSync(file), config.LogLevel)
	logger := zap.New(core, zap.AddCaller()).With(zap.String("app.name", "storefront"))

	closer := func() error {
		_ = logger.Sync()
		return file.Close()
	}
	return logger, closer, nil
}
