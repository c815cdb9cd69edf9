package utils

import (
	"os"

	"github.com/sirupsen/logrus"
)

type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
}

// AppLogger wraps logrus with the printf-style level methods used across the app.
type AppLogger struct {
	log *logrus.Logger
}

func NewAppLogger() *AppLogger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return &AppLogger{log: log}
}

// SetLevel adjusts verbosity from a config string ("debug", "info", "warn",
// "error"). Unknown values keep the current level.
func (l *AppLogger) SetLevel(level string) {
	parsed, err := logrus.ParseLevel(level)
	if err != nil {
		l.log.Warnf("unknown log level %q, keeping %s", level, l.log.GetLevel())
		return
	}
	l.log.SetLevel(parsed)
}

func (l *AppLogger) Debug(msg string, args ...interface{}) {
	l.log.Debugf(msg, args...)
}

func (l *AppLogger) Info(msg string, args ...interface{}) {
	l.log.Infof(msg, args...)
}

func (l *AppLogger) Warn(msg string, args ...interface{}) {
	l.log.Warnf(msg, args...)
}

func (l *AppLogger) Error(msg string, args ...interface{}) {
	l.log.Errorf(msg, args...)
}

// Fatal logs the message and exits.
func (l *AppLogger) Fatal(msg string, args ...interface{}) {
	l.log.Fatalf(msg, args...)
}
