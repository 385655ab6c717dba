package logger

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Field aliases zapcore.Field so callers don't import zap directly.
type Field = zapcore.Field

// Field constructors re-exported for call sites.
var (
	String   = zap.String
	Int      = zap.Int
	Int64    = zap.Int64
	Float64  = zap.Float64
	Bool     = zap.Bool
	Time     = zap.Time
	Duration = zap.Duration
	Error    = zap.Error
	Any      = zap.Any
)

// Logger wraps zap.Logger with a Named/With API used across the pipeline.
type Logger struct {
	*zap.Logger
}

// Config controls log level and output encoding.
type Config struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

var levelColors = map[zapcore.Level]string{
	zapcore.DebugLevel: "\033[1;37m",
	zapcore.InfoLevel:  "\033[1;36m",
	zapcore.WarnLevel:  "\033[1;33m",
	zapcore.ErrorLevel: "\033[1;31m",
}

func coloredLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	if c, ok := levelColors[level]; ok {
		enc.AppendString(c + level.String() + "\033[0m")
	} else {
		enc.AppendString(level.String())
	}
}

// paddedNameEncoder renders the last logger name component in a fixed-width
// column so console output lines up across components.
func paddedNameEncoder(name string, enc zapcore.PrimitiveArrayEncoder) {
	parts := strings.Split(name, ".")
	display := parts[len(parts)-1]
	const width = 12
	if len(display) > width {
		display = display[:width]
	}
	enc.AppendString(display + strings.Repeat(" ", width-len(display)))
}

// New creates a logger writing to stdout with the given configuration.
func New(cfg Config) (*Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	encCfg := zapcore.EncoderConfig{
		TimeKey:        "time",
		LevelKey:       "level",
		NameKey:        "logger",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		FunctionKey:    zapcore.OmitKey,
		CallerKey:      zapcore.OmitKey,
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.MillisDurationEncoder,
	}

	var encoder zapcore.Encoder
	switch cfg.Format {
	case "console":
		encCfg.EncodeLevel = coloredLevelEncoder
		encCfg.EncodeName = paddedNameEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	case "json":
		encCfg.EncodeLevel = zapcore.LowercaseLevelEncoder
		encCfg.EncodeName = zapcore.FullNameEncoder
		encoder = zapcore.NewJSONEncoder(encCfg)
	default:
		return nil, fmt.Errorf("unsupported log format: %s", cfg.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), level)
	return &Logger{Logger: zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))}, nil
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() *Logger {
	return &Logger{Logger: zap.NewNop()}
}

func parseLevel(level string) (zapcore.Level, error) {
	switch level {
	case "debug":
		return zapcore.DebugLevel, nil
	case "info", "":
		return zapcore.InfoLevel, nil
	case "warn":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unsupported log level: %s", level)
	}
}

// With returns a logger with the given fields attached.
func (l *Logger) With(fields ...zapcore.Field) *Logger {
	return &Logger{Logger: l.Logger.With(fields...)}
}

// Named returns a logger scoped to the given component name.
func (l *Logger) Named(name string) *Logger {
	return &Logger{Logger: l.Logger.Named(name)}
}

// WithError returns a logger with the error field attached.
func (l *Logger) WithError(err error) *Logger {
	return l.With(zap.Error(err))
}
