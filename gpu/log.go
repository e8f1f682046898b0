package gpu

import "go.uber.org/zap"

// Debug turns on the verbose pipeline trace written through Log.
var Debug bool

var logger = zap.NewNop()

// SetLogger replaces the package logger. Call it before acquiring a context.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l.Named("gpu")
}

// Logger returns the package logger.
func Logger() *zap.Logger { return logger }

// Log writes a debug trace line.
func Log(format string, args ...any) {
	logger.Sugar().Debugf(format, args...)
}
