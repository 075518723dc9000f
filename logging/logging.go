// Package logging contains the zap-backed logger used throughout laser odometry.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the structured, leveled logger every component takes at construction time.
type Logger interface {
	Debug(args ...interface{})
	Debugf(template string, args ...interface{})
	Debugw(msg string, keysAndValues ...interface{})
	Info(args ...interface{})
	Infof(template string, args ...interface{})
	Infow(msg string, keysAndValues ...interface{})
	Warn(args ...interface{})
	Warnf(template string, args ...interface{})
	Warnw(msg string, keysAndValues ...interface{})
	Error(args ...interface{})
	Errorf(template string, args ...interface{})
	Errorw(msg string, keysAndValues ...interface{})

	// Sublogger returns a logger whose name is this logger's name suffixed with subname.
	Sublogger(subname string) Logger
	// Desugar exposes the underlying zap logger.
	Desugar() *zap.Logger
	Sync() error
}

var (
	globalMu     sync.RWMutex
	globalLogger = NewDebugLogger("startup")
)

// ReplaceGlobal replaces the global loggers.
func ReplaceGlobal(logger Logger) {
	globalMu.Lock()
	globalLogger = logger
	globalMu.Unlock()
}

// Global returns the global logger.
func Global() Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// NewLoggerConfig returns a new default logger config.
func NewLoggerConfig() zap.Config {
	// from https://github.com/uber-go/zap/blob/2314926ec34c23ee21f3dd4399438469668f8097/config.go#L135
	// but disable stacktraces, use same keys as prod, and color levels.
	return zap.Config{
		Level:    zap.NewAtomicLevelAt(zap.InfoLevel),
		Encoding: "console",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "ts",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.CapitalColorLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.StringDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		DisableStacktrace: true,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}

// NewLogger returns a new logger that outputs Info+ logs to stdout.
func NewLogger(name string) Logger {
	return newFromConfig(name, NewLoggerConfig())
}

// NewDebugLogger returns a new logger that outputs Debug+ logs to stdout.
func NewDebugLogger(name string) Logger {
	cfg := NewLoggerConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	return newFromConfig(name, cfg)
}

// NewFileLogger returns a logger that writes to stdout like NewLogger and also appends JSON
// lines to a size-rotated file at path.
func NewFileLogger(name, path string, debug bool) Logger {
	cfg := NewLoggerConfig()
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	console, err := cfg.Build()
	if err != nil {
		return NewBlankLogger(name)
	}

	fileEncoder := cfg.EncoderConfig
	fileEncoder.EncodeLevel = zapcore.CapitalLevelEncoder
	rotated := zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    64,
		MaxBackups: 2,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(fileEncoder), rotated, cfg.Level)
	return FromZapCore(name, zapcore.NewTee(console.Core(), fileCore))
}

// NewBlankLogger returns a logger that discards everything.
func NewBlankLogger(name string) Logger {
	return FromZapCore(name, zapcore.NewNopCore())
}

// FromZapCore wraps an arbitrary zap core.
func FromZapCore(name string, core zapcore.Core) Logger {
	return &impl{zap.New(core, zap.AddCaller()).Named(name).Sugar()}
}

func newFromConfig(name string, cfg zap.Config) Logger {
	logger, err := cfg.Build()
	if err != nil {
		// The default config only fails to build on broken stdout/stderr sinks.
		return NewBlankLogger(name)
	}
	return &impl{logger.Named(name).Sugar()}
}

type impl struct {
	*zap.SugaredLogger
}

func (imp *impl) Sublogger(subname string) Logger {
	return &impl{imp.SugaredLogger.Named(subname)}
}
