// Package zap adapts go.uber.org/zap to the logging.Logger interface for
// hosts already standardized on zap.
package zap

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dealdesk/docgen/logging"
)

// Adapter implements logging.Logger on top of a zap.SugaredLogger so the
// alternating key/value args map onto zap's loosely-typed With pairs.
type Adapter struct {
	sugar *zap.SugaredLogger
}

// New creates an Adapter writing JSON to stderr.
func New() *Adapter {
	return NewWithWriter(os.Stderr)
}

// NewWithWriter creates an Adapter writing JSON to w.
func NewWithWriter(w io.Writer) *Adapter {
	encoderConfig := zapcore.EncoderConfig{
		TimeKey:     "timestamp",
		LevelKey:    "level",
		MessageKey:  "message",
		EncodeTime:  zapcore.RFC3339NanoTimeEncoder,
		EncodeLevel: zapcore.LowercaseLevelEncoder,
	}
	core := zapcore.NewCore(
		zapcore.NewJSONEncoder(encoderConfig),
		zapcore.AddSync(w),
		zapcore.DebugLevel,
	)
	return &Adapter{sugar: zap.New(core).Sugar()}
}

// NewFromLogger wraps an existing zap.Logger.
func NewFromLogger(l *zap.Logger) *Adapter {
	return &Adapter{sugar: l.Sugar()}
}

// With returns an Adapter with additional context fields.
func (a *Adapter) With(args ...any) *Adapter {
	return &Adapter{sugar: a.sugar.With(args...)}
}

// Debug logs a debug message with key/value context.
func (a *Adapter) Debug(msg string, args ...any) { a.sugar.Debugw(msg, args...) }

// Info logs an info message with key/value context.
func (a *Adapter) Info(msg string, args ...any) { a.sugar.Infow(msg, args...) }

// Warn logs a warning message with key/value context.
func (a *Adapter) Warn(msg string, args ...any) { a.sugar.Warnw(msg, args...) }

// Error logs an error message with key/value context.
func (a *Adapter) Error(msg string, args ...any) { a.sugar.Errorw(msg, args...) }

// compile-time assertion
var _ logging.Logger = (*Adapter)(nil)
