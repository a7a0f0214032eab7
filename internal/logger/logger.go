// Package logger provides the process-wide structured logger.
// It is a no-op until Init is called, so library code and tests can log freely.
package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	mu     sync.RWMutex
	global = zap.NewNop().Sugar()
)

// Init builds the global logger. format is "console" or "json".
func Init(level, format string) error {
	lvl, err := zapcore.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "json":
		cfg = zap.NewProductionConfig()
	case "console", "":
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		return fmt.Errorf("unknown log format %q", format)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	Set(l)
	return nil
}

// Set replaces the global logger.
func Set(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	global = l.Sugar()
}

// L returns the global sugared logger.
func L() *zap.SugaredLogger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// Sync flushes buffered entries.
func Sync() error { return L().Sync() }

// With returns a child logger carrying the given key/value pairs.
func With(keysAndValues ...any) *zap.SugaredLogger { return L().With(keysAndValues...) }

func Debugf(template string, args ...any) { L().Debugf(template, args...) }
func Infof(template string, args ...any)  { L().Infof(template, args...) }
func Warnf(template string, args ...any)  { L().Warnf(template, args...) }
func Errorf(template string, args ...any) { L().Errorf(template, args...) }

func Debugw(msg string, keysAndValues ...any) { L().Debugw(msg, keysAndValues...) }
func Infow(msg string, keysAndValues ...any)  { L().Infow(msg, keysAndValues...) }
func Warnw(msg string, keysAndValues ...any)  { L().Warnw(msg, keysAndValues...) }
func Errorw(msg string, keysAndValues ...any) { L().Errorw(msg, keysAndValues...) }
