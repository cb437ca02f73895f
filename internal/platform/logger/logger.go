package logger

import (
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return Debug
	case "info", "":
		return Info
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

func (l Level) zapLevel() zapcore.Level {
	switch l {
	case Debug:
		return zapcore.DebugLevel
	case Warn:
		return zapcore.WarnLevel
	case Error:
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

func ParseFormat(s string) Format {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON
	default:
		return FormatText
	}
}

// Logger es la interfaz que usan servicios y adapters.
// Los campos van como map para no acoplar el dominio a zap.
type Logger interface {
	With(fields map[string]any) Logger

	Debug(msg string, fields map[string]any)
	Info(msg string, fields map[string]any)
	Warn(msg string, fields map[string]any)
	Error(msg string, fields map[string]any)
}

// ZapLogger implementa Logger sobre zap.
type ZapLogger struct {
	z *zap.Logger
}

type Options struct {
	Level  Level
	Format Format
	App    string
}

func New(opts Options) Logger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.MessageKey = "msg"

	var enc zapcore.Encoder
	if opts.Format == FormatJSON {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stdout), zap.NewAtomicLevelAt(opts.Level.zapLevel()))
	z := zap.New(core, zap.AddStacktrace(zapcore.ErrorLevel))
	if app := strings.TrimSpace(opts.App); app != "" {
		z = z.With(zap.String("app", app))
	}
	return &ZapLogger{z: z}
}

// FromZap envuelve un *zap.Logger ya construido (tests con zaptest/observer).
func FromZap(z *zap.Logger) Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &ZapLogger{z: z}
}

// Nop descarta todo.
func Nop() Logger {
	return &ZapLogger{z: zap.NewNop()}
}

func (l *ZapLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	return &ZapLogger{z: l.z.With(toZap(fields)...)}
}

func (l *ZapLogger) Debug(msg string, fields map[string]any) { l.z.Debug(msg, toZap(fields)...) }
func (l *ZapLogger) Info(msg string, fields map[string]any)  { l.z.Info(msg, toZap(fields)...) }
func (l *ZapLogger) Warn(msg string, fields map[string]any)  { l.z.Warn(msg, toZap(fields)...) }
func (l *ZapLogger) Error(msg string, fields map[string]any) { l.z.Error(msg, toZap(fields)...) }

// Sync vacía buffers; llamar al cerrar el proceso.
func (l *ZapLogger) Sync() error { return l.z.Sync() }

func toZap(fields map[string]any) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, 0, len(fields))
	for k, v := range fields {
		if strings.TrimSpace(k) == "" {
			continue
		}
		if err, ok := v.(error); ok {
			out = append(out, zap.NamedError(k, err))
			continue
		}
		out = append(out, zap.Any(k, v))
	}
	return out
}
