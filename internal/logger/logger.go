// Package logger provides context-scoped structured logging on top of logrus.
// Handlers attach a request-scoped entry to the context with Set, and every
// downstream layer retrieves it with Ctx so log lines carry the request fields.
package logger

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
)

type contextKey struct{}

// DefaultLogger is the fallback entry used when the context carries none.
var DefaultLogger = logrus.NewEntry(logrus.New())

// Set returns a copy of ctx carrying the given entry.
func Set(ctx context.Context, entry *logrus.Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, entry)
}

// Ctx returns the entry carried by ctx, or DefaultLogger.
func Ctx(ctx context.Context) *logrus.Entry {
	if entry, ok := ctx.Value(contextKey{}).(*logrus.Entry); ok {
		return entry
	}
	return DefaultLogger
}

// SetLevel sets the level of the default logger.
func SetLevel(level logrus.Level) {
	DefaultLogger.Logger.SetLevel(level)
}

// ParseLevel parses a textual log level ("trace" through "panic").
func ParseLevel(level string) (logrus.Level, error) {
	l, err := logrus.ParseLevel(level)
	if err != nil {
		return 0, fmt.Errorf("parsing log level %q: %w", level, err)
	}
	return l, nil
}

// SetOutput redirects the default logger output. Used by tests to capture logs.
func SetOutput(w io.Writer) {
	DefaultLogger.Logger.SetOutput(w)
}

func Trace(args ...interface{})                 { DefaultLogger.Trace(args...) }
func Tracef(format string, args ...interface{}) { DefaultLogger.Tracef(format, args...) }
func Debug(args ...interface{})                 { DefaultLogger.Debug(args...) }
func Debugf(format string, args ...interface{}) { DefaultLogger.Debugf(format, args...) }
func Info(args ...interface{})                  { DefaultLogger.Info(args...) }
func Infof(format string, args ...interface{})  { DefaultLogger.Infof(format, args...) }
func Warn(args ...interface{})                  { DefaultLogger.Warn(args...) }
func Warnf(format string, args ...interface{})  { DefaultLogger.Warnf(format, args...) }
func Error(args ...interface{})                 { DefaultLogger.Error(args...) }
func Errorf(format string, args ...interface{}) { DefaultLogger.Errorf(format, args...) }
func Fatalf(format string, args ...interface{}) { DefaultLogger.Fatalf(format, args...) }
