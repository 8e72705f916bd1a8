// Package logging builds the logrus loggers handed to components.
package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Nop returns an entry that discards everything below panic level.
func Nop() *logrus.Entry {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(l)
}

// ParseLevel maps a LOG_LEVEL value to a logrus level. "silent" disables
// logging; every other value goes through logrus.ParseLevel.
func ParseLevel(name string) (logrus.Level, error) {
	if strings.EqualFold(strings.TrimSpace(name), "silent") {
		return logrus.PanicLevel, nil
	}
	return logrus.ParseLevel(strings.TrimSpace(name))
}

// Level is ParseLevel with unknown values falling back to info.
func Level(name string) logrus.Level {
	l, err := ParseLevel(name)
	if err != nil {
		return logrus.InfoLevel
	}
	return l
}

// New returns a text logger writing to out at the given level.
func New(out io.Writer, level string, json bool) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(Level(level))
	if json {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}

// OrNop returns e, or a silent entry when e is nil.
func OrNop(e *logrus.Entry) *logrus.Entry {
	if e == nil {
		return Nop()
	}
	return e
}
