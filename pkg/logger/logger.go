package logger

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds logger configuration
type Config struct {
	Level       string // debug, info, warn, error (environment names map to info)
	ServiceName string
	Development bool
}

// Logger wraps zap.Logger
type Logger struct {
	*zap.Logger
}

var (
	global *Logger
	mu     sync.Mutex
)

// Init initializes the global logger. Development mode uses the console
// encoder, production mode emits JSON.
func Init(cfg *Config) error {
	mu.Lock()
	defer mu.Unlock()

	var zapCfg zap.Config
	if cfg.Development {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(parseLevel(cfg.Level))

	l, err := zapCfg.Build(zap.AddCallerSkip(0))
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	if cfg.ServiceName != "" {
		l = l.With(zap.String("service", cfg.ServiceName))
	}

	global = &Logger{Logger: l}
	zap.ReplaceGlobals(l)
	return nil
}

// Get returns the global logger, falling back to a no-op logger before Init
func Get() *Logger {
	mu.Lock()
	defer mu.Unlock()

	if global == nil {
		global = &Logger{Logger: zap.NewNop()}
	}
	return global
}

// Sync flushes buffered log entries
func Sync() {
	mu.Lock()
	defer mu.Unlock()

	if global != nil {
		_ = global.Logger.Sync()
	}
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug", "development":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// Field helpers re-exported so callers do not import zap directly

// String constructs a string field
func String(key, val string) zap.Field { return zap.String(key, val) }

// Int constructs an int field
func Int(key string, val int) zap.Field { return zap.Int(key, val) }

// Err constructs an error field
func Err(err error) zap.Field { return zap.Error(err) }

// Duration constructs a duration field
func Duration(key string, val time.Duration) zap.Field { return zap.Duration(key, val) }
