// Package logger configures logrus for the assistant and hands out
// component-scoped entries.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Init sets the global logrus level and formatter. Unknown levels fall back
// to info. format is "json" or "text".
func Init(level, format string) {
	lvl, err := logrus.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		lvl = logrus.InfoLevel
	}

	if strings.EqualFold(format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{
			FieldMap: logrus.FieldMap{
				logrus.FieldKeyTime:  "timestamp",
				logrus.FieldKeyLevel: "level",
				logrus.FieldKeyMsg:   "message",
			},
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logrus.SetOutput(os.Stderr)
	logrus.SetLevel(lvl)
}

// SetOutput redirects log output. Useful for tests.
func SetOutput(w io.Writer) {
	logrus.SetOutput(w)
}

// New returns an entry tagged with the component name.
func New(component string) *logrus.Entry {
	return logrus.WithField("component", component)
}

// Or returns entry when non-nil, otherwise a fresh component entry.
func Or(entry *logrus.Entry, component string) *logrus.Entry {
	if entry != nil {
		return entry
	}
	return New(component)
}
