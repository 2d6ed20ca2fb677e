// Package logx provides structured logging functionality
package logx

import (
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global *zap.Logger
)

func init() {
	logger, err := build("info", "text")
	if err != nil {
		panic(err)
	}
	global = logger
}

func encodeTime(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("2006-01-02 15:04:05.000"))
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     encodeTime,
		EncodeDuration: zapcore.SecondsDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}
}

func build(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.Sampling = nil
	cfg.EncoderConfig = encoderConfig()
	switch strings.ToLower(format) {
	case "json":
		cfg.Encoding = "json"
		cfg.EncoderConfig.EncodeLevel = zapcore.LowercaseLevelEncoder
	default:
		cfg.Encoding = "console"
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	return cfg.Build()
}

// Init reconfigures the global logger. Safe to call again when the log
// config changes at runtime.
func Init(level, format string) {
	logger, err := build(level, format)
	if err != nil {
		panic(err)
	}
	mu.Lock()
	global = logger
	mu.Unlock()
}

// GetScope returns a named child of the global logger.
func GetScope(name string) *zap.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global.Named(name)
}

// L returns the global sugared logger.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global.Sugar()
}

// Sync flushes buffered entries; call on shutdown.
func Sync() error {
	mu.RLock()
	defer mu.RUnlock()
	return global.Sync()
}

func parseLevel(s string) zapcore.Level {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
