// Package applog wraps go.uber.org/zap for the engine's diagnostic
// logging. The engine logs its plan decision (the chosen access path) at
// debug level; an error level is also available. It never writes to the
// row-output stream.
//
// Grounded on daviszhen-plan's cmd/main/main.go, which builds a zap logger
// at startup and calls util.Info/zap.String/zap.Error around query
// dispatch; generalized here into a small reusable logger the CLI and
// the engine both take as a constructor argument instead of a package
// global, since this module has no long-running server process to own
// one.
package applog

import "go.uber.org/zap"

// Logger is the subset of *zap.Logger the engine calls. A nil *Logger
// is valid and discards everything, so callers that don't care about
// diagnostics can pass nil.
type Logger struct {
	z *zap.Logger
}

// New builds a Logger at the given level ("debug", "info", or anything
// else for "error only"), writing structured logs to stderr so stdout
// stays reserved for row output.
func New(level string) (*Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	z, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	return &Logger{z: z}, nil
}

// Noop returns a Logger that discards everything.
func Noop() *Logger { return &Logger{} }

func (l *Logger) Debug(msg string, fields ...zap.Field) {
	if l != nil && l.z != nil {
		l.z.Debug(msg, fields...)
	}
}

func (l *Logger) Error(msg string, fields ...zap.Field) {
	if l != nil && l.z != nil {
		l.z.Error(msg, fields...)
	}
}

// Sync flushes any buffered log entries.
func (l *Logger) Sync() error {
	if l != nil && l.z != nil {
		return l.z.Sync()
	}
	return nil
}
