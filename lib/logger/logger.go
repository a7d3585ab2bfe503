// Package logger is the default structured-logging facade used by the
// connection and pool. Callers may ignore it entirely and supply their
// own logger satisfying the same interface through pool.Config's
// ConnectionDefaultLogger field; this package is just the batteries the
// library ships charged.
package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Logger is the narrow contract the connection and pool log through.
// Keeping it this small lets callers substitute any logger of their own
// (including a no-op one) without pulling in zap.
type Logger interface {
	Debugw(msg string, kv ...interface{})
	Infow(msg string, kv ...interface{})
	Warnw(msg string, kv ...interface{})
	Errorw(msg string, kv ...interface{})
}

type zapLogger struct {
	s *zap.SugaredLogger
}

func (l *zapLogger) Debugw(msg string, kv ...interface{}) { l.s.Debugw(msg, kv...) }
func (l *zapLogger) Infow(msg string, kv ...interface{})  { l.s.Infow(msg, kv...) }
func (l *zapLogger) Warnw(msg string, kv ...interface{})  { l.s.Warnw(msg, kv...) }
func (l *zapLogger) Errorw(msg string, kv ...interface{}) { l.s.Errorw(msg, kv...) }

// NewNop returns a Logger that discards everything; useful in tests and
// the default pool.DefaultConfig gives ConnectionDefaultLogger.
func NewNop() Logger { return &zapLogger{s: zap.NewNop().Sugar()} }

// FileOptions configures the default rotating-file sink.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewDefault builds the library's default logger: zap at InfoLevel,
// writing to a lumberjack-rotated file when opts.Path is set, or to
// stderr otherwise.
func NewDefault(opts FileOptions) Logger {
	var sink zapcore.WriteSyncer
	if opts.Path != "" {
		maxSize := opts.MaxSizeMB
		if maxSize == 0 {
			maxSize = 100
		}
		maxBackups := opts.MaxBackups
		if maxBackups == 0 {
			maxBackups = 3
		}
		maxAge := opts.MaxAgeDays
		if maxAge == 0 {
			maxAge = 28
		}
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    maxSize,
			MaxBackups: maxBackups,
			MaxAge:     maxAge,
		})
	} else {
		sink = zapcore.Lock(os.Stderr)
	}

	encoder := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	core := zapcore.NewCore(encoder, sink, zap.InfoLevel)
	return &zapLogger{s: zap.New(core).Sugar()}
}
