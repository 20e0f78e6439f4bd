package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps a zap logger with key/value field helpers.
type Logger struct {
	z *zap.Logger
}

// New builds a logger. Mode "dev" selects zap's development config, anything
// else the production config. Debug lowers the level to Debug.
func New(mode string, debug bool) (*Logger, error) {
	var cfg zap.Config
	if mode == "dev" {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}
	if debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// Wrap adopts an existing zap logger.
func Wrap(z *zap.Logger) *Logger {
	if z == nil {
		z = zap.NewNop()
	}
	return &Logger{z: z}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{z: zap.NewNop()}
}

// Named returns a child logger for one component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{z: l.z.Named(name)}
}

// With returns a child logger carrying the given fields.
func (l *Logger) With(fields ...interface{}) *Logger {
	return &Logger{z: l.z.With(toFields(fields...)...)}
}

// Zap exposes the underlying zap logger.
func (l *Logger) Zap() *zap.Logger {
	return l.z
}

func toFields(xs ...interface{}) []zap.Field {
	out := make([]zap.Field, 0, len(xs))
	i := 0
	for i < len(xs) {
		switch v := xs[i].(type) {
		case zap.Field:
			out = append(out, v)
			i++
		case map[string]interface{}:
			for k, val := range v {
				out = append(out, zap.Any(k, val))
			}
			i++
		case string:
			if i+1 < len(xs) {
				out = append(out, zap.Any(v, xs[i+1]))
				i += 2
			} else {
				out = append(out, zap.Any(v, nil))
				i++
			}
		case error:
			out = append(out, zap.Error(v))
			i++
		default:
			out = append(out, zap.Any("", v))
			i++
		}
	}
	return out
}

func (l *Logger) Info(msg string, fields ...interface{}) {
	l.z.Info(msg, toFields(fields...)...)
}

func (l *Logger) Error(msg string, fields ...interface{}) {
	l.z.Error(msg, toFields(fields...)...)
}

func (l *Logger) Warn(msg string, fields ...interface{}) {
	l.z.Warn(msg, toFields(fields...)...)
}

func (l *Logger) Debug(msg string, fields ...interface{}) {
	l.z.Debug(msg, toFields(fields...)...)
}

// Sync flushes buffered entries.
func (l *Logger) Sync() {
	_ = l.z.Sync()
}
