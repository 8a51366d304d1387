// Package logger provides opinionated logging capabilities for tabula
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger returns a colored console logger writing to stdout.
func NewLogger(debug bool) *zap.Logger {
	encoderConfig := baseEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	return newLogger(zapcore.NewConsoleEncoder(encoderConfig), os.Stdout, debug)
}

// NewJSONLogger returns a structured JSON logger writing to stdout, for
// deployments that ship logs to a collector.
func NewJSONLogger(debug bool) *zap.Logger {
	encoderConfig := baseEncoderConfig()
	encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder

	return newLogger(zapcore.NewJSONEncoder(encoderConfig), os.Stdout, debug)
}

// New picks the encoder by format name ("json" or anything else for console).
func New(format string, debug bool) *zap.Logger {
	if format == "json" {
		return NewJSONLogger(debug)
	}
	return NewLogger(debug)
}

// NewStderr is New writing to stderr, for commands that own stdout such as
// the chat prompt or the MCP stdio server.
func NewStderr(format string, debug bool) *zap.Logger {
	encoderConfig := baseEncoderConfig()
	if format == "json" {
		encoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
		return newLogger(zapcore.NewJSONEncoder(encoderConfig), os.Stderr, debug)
	}
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	return newLogger(zapcore.NewConsoleEncoder(encoderConfig), os.Stderr, debug)
}

func baseEncoderConfig() zapcore.EncoderConfig {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return encoderConfig
}

func newLogger(encoder zapcore.Encoder, sink zapcore.WriteSyncer, debug bool) *zap.Logger {
	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller())
}
