package logger

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var InfoLogger, FatalLogger *zap.Logger

var (
	serviceName = "default"

	mu  sync.RWMutex
	nop = zap.NewNop()
)

func SetServiceName(newName string) string {
	mu.Lock()
	defer mu.Unlock()

	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init поднимает zap-логгеры процесса. level: debug|info|warn|error.
func Init(level string) error {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(parseLevel(level))
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	l, err := cfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return fmt.Errorf("build zap logger: %w", err)
	}

	mu.Lock()
	InfoLogger = l
	FatalLogger = l
	mu.Unlock()
	return nil
}

// InitNop: для тестов и одноразовых команд, где логи не нужны.
func InitNop() {
	mu.Lock()
	InfoLogger = nop
	FatalLogger = nop
	mu.Unlock()
}

func Sync() {
	mu.RLock()
	l := InfoLogger
	mu.RUnlock()
	if l != nil {
		_ = l.Sync()
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
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

func active() (*zap.Logger, string) {
	mu.RLock()
	defer mu.RUnlock()
	if InfoLogger == nil {
		return nop, serviceName
	}
	return InfoLogger, serviceName
}

func Debug(format string, args ...interface{}) {
	l, svc := active()
	l.With(zap.String("service", svc)).Debug(fmt.Sprintf(format, args...))
}

func Info(format string, args ...interface{}) {
	l, svc := active()
	l.With(zap.String("service", svc)).Info(fmt.Sprintf(format, args...))
}

func Warn(format string, args ...interface{}) {
	l, svc := active()
	l.With(zap.String("service", svc)).Warn(fmt.Sprintf(format, args...))
}

func Error(format string, args ...interface{}) {
	l, svc := active()
	l.With(zap.String("service", svc)).Error(fmt.Sprintf(format, args...))
}

func Fatal(format string, args ...interface{}) {
	mu.RLock()
	l, svc := FatalLogger, serviceName
	mu.RUnlock()
	if l == nil {
		panic("FatalLogger is not initialized")
	}

	l.With(zap.String("service", svc)).Fatal(fmt.Sprintf(format, args...))
}
