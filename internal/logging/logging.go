package logging

import (
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// New builds the process logger. Unknown levels fall back to info.
func New(level, format string) *log.Logger {
	l := log.New()
	l.SetOutput(os.Stdout)

	switch strings.ToLower(format) {
	case "text":
		l.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		l.SetFormatter(&log.JSONFormatter{})
	}

	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	l.SetLevel(lvl)
	return l
}
