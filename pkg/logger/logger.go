package logger

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config represents logger configuration
type Config struct {
	Level       string
	Development bool
	Encoding    string // json or console
	OutputPaths []string
}

// Logger provides leveled, structured logging tagged with a service name and version
type Logger struct {
	serviceName string
	version     string
	zap         *zap.Logger
	sugar       *zap.SugaredLogger
}

// New creates a console logger at info level
func New(serviceName, version string) *Logger {
	l, err := NewWithConfig(Config{Level: "info", Encoding: "console"}, serviceName, version)
	if err != nil {
		// The default configuration is static; fall back to zap's own defaults.
		z, _ := zap.NewProduction()
		return NewFromZap(z, serviceName, version)
	}
	return l
}

// NewWithConfig builds a zap-backed logger from cfg
func NewWithConfig(cfg Config, serviceName, version string) (*Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}

	encoderConfig := zapcore.EncoderConfig{
		TimeKey:        "timestamp",
		LevelKey:       "level",
		NameKey:        "logger",
		CallerKey:      "caller",
		FunctionKey:    zapcore.OmitKey,
		MessageKey:     "message",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
	}

	if cfg.Development && isTerminal() {
		encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}
	outputPaths := cfg.OutputPaths
	if len(outputPaths) == 0 {
		outputPaths = []string{"stderr"}
	}

	zapCfg := zap.Config{
		Level:            zap.NewAtomicLevelAt(level),
		Development:      cfg.Development,
		Encoding:         encoding,
		EncoderConfig:    encoderConfig,
		OutputPaths:      outputPaths,
		ErrorOutputPaths: []string{"stderr"},
	}

	z, err := zapCfg.Build(zap.AddCallerSkip(1))
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}

	return NewFromZap(z, serviceName, version), nil
}

// NewFromZap wraps an existing zap logger
func NewFromZap(z *zap.Logger, serviceName, version string) *Logger {
	if serviceName != "" {
		z = z.With(zap.String("service", serviceName))
	}
	if version != "" {
		z = z.With(zap.String("version", version))
	}
	return &Logger{
		serviceName: serviceName,
		version:     version,
		zap:         z,
		sugar:       z.Sugar(),
	}
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	return NewFromZap(zap.NewNop(), "", "")
}

// isTerminal checks if we're outputting to a terminal (for color support)
func isTerminal() bool {
	if os.Getenv("TERM") == "dumb" {
		return false
	}
	fileInfo, err := os.Stderr.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}

// Zap returns the underlying zap logger
func (l *Logger) Zap() *zap.Logger {
	return l.zap
}

// Named returns a child logger for a component
func (l *Logger) Named(name string) *Logger {
	z := l.zap.Named(name)
	return &Logger{serviceName: l.serviceName, version: l.version, zap: z, sugar: z.Sugar()}
}

// Sync flushes buffered entries
func (l *Logger) Sync() error {
	return l.zap.Sync()
}

func formatMessage(message string, args []interface{}) string {
	if len(args) > 0 {
		return fmt.Sprintf(message, args...)
	}
	return message
}

// Debug logs a debug message with optional formatting
func (l *Logger) Debug(message string, args ...interface{}) {
	l.zap.Debug(formatMessage(message, args))
}

// Debugf logs a formatted debug message
func (l *Logger) Debugf(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an info message with optional formatting
func (l *Logger) Info(message string, args ...interface{}) {
	l.zap.Info(formatMessage(message, args))
}

// Infof logs a formatted info message
func (l *Logger) Infof(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message with optional formatting
func (l *Logger) Warn(message string, args ...interface{}) {
	l.zap.Warn(formatMessage(message, args))
}

// Warnf logs a formatted warning message
func (l *Logger) Warnf(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message with optional formatting
func (l *Logger) Error(message string, args ...interface{}) {
	l.zap.Error(formatMessage(message, args))
}

// Errorf logs a formatted error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// Fatal logs a fatal message and exits
func (l *Logger) Fatal(message string) {
	l.zap.Fatal(message)
}

// Fatalf logs a formatted fatal message and exits
func (l *Logger) Fatalf(format string, args ...interface{}) {
	l.sugar.Fatalf(format, args...)
}

// WithFields logs a message with additional fields
func (l *Logger) WithFields(fields map[string]string) *LogContext {
	zfields := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		zfields = append(zfields, zap.String(k, v))
	}
	return &LogContext{logger: l.zap.With(zfields...)}
}

// LogContext provides field-based logging
type LogContext struct {
	logger *zap.Logger
}

func (c *LogContext) Debug(message string) {
	c.logger.Debug(message)
}

func (c *LogContext) Info(message string) {
	c.logger.Info(message)
}

func (c *LogContext) Warn(message string) {
	c.logger.Warn(message)
}

func (c *LogContext) Error(message string) {
	c.logger.Error(message)
}
