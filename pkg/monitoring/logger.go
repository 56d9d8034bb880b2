package monitoring

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus entry, preserving the WithField-chaining call shape
// the rest of the node uses while delegating formatting and levels to logrus.
type Logger struct {
	entry *logrus.Entry
}

func newBase() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return l
}

var base = newBase()

// NewLogger creates a component-scoped logger at the given level.
func NewLogger(level string) *Logger {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	return &Logger{entry: logrus.NewEntry(base)}
}

// WithField returns a logger scoped with an additional field, matching the
// component-tagging convention used by every long-lived subsystem (peer
// session, connection manager, sync controller, projector).
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

// WithFields returns a logger scoped with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	return &Logger{entry: l.entry.WithFields(logrus.Fields(fields))}
}

func (l *Logger) Debug(msg string)                           { l.entry.Debug(msg) }
func (l *Logger) Debugf(format string, args ...interface{})  { l.entry.Debugf(format, args...) }
func (l *Logger) Info(msg string)                            { l.entry.Info(msg) }
func (l *Logger) Infof(format string, args ...interface{})   { l.entry.Infof(format, args...) }
func (l *Logger) Warn(msg string)                            { l.entry.Warn(msg) }
func (l *Logger) Warnf(format string, args ...interface{})   { l.entry.Warnf(format, args...) }
func (l *Logger) Error(msg string)                            { l.entry.Error(msg) }
func (l *Logger) Errorf(format string, args ...interface{})  { l.entry.Errorf(format, args...) }
func (l *Logger) Fatal(msg string)                            { l.entry.Fatal(msg) }
func (l *Logger) Fatalf(format string, args ...interface{})  { l.entry.Fatalf(format, args...) }

// globalLogger is the default logger used by package-level helpers, for call
// sites that predate a component-scoped logger.
var globalLogger = NewLogger("info")

// SetGlobalLevel sets the level shared by every logger (they share the
// underlying logrus.Logger).
func SetGlobalLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return
	}
	base.SetLevel(lvl)
}

func Debug(msg string)                          { globalLogger.Debug(msg) }
func Debugf(format string, args ...interface{}) { globalLogger.Debugf(format, args...) }
func Info(msg string)                           { globalLogger.Info(msg) }
func Infof(format string, args ...interface{})  { globalLogger.Infof(format, args...) }
func Warn(msg string)                           { globalLogger.Warn(msg) }
func Warnf(format string, args ...interface{})  { globalLogger.Warnf(format, args...) }
func Error(msg string)                          { globalLogger.Error(msg) }
func Errorf(format string, args ...interface{}) { globalLogger.Errorf(format, args...) }
func Fatal(msg string)                          { globalLogger.Fatal(msg) }
func Fatalf(format string, args ...interface{}) { globalLogger.Fatalf(format, args...) }
