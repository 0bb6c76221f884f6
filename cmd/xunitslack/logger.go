package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

// newLogger creates a logger writing to stderr. The verbose flag forces DebugLevel,
// otherwise the level comes from LOG_LEVEL and defaults to InfoLevel.
func newLogger(verbose bool, level string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	if verbose {
		log.SetLevel(logrus.DebugLevel)
		return log
	}

	if level == "" {
		log.SetLevel(logrus.InfoLevel)
		return log
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("level", level).Warn("Invalid LOG_LEVEL, defaulting to info")
		return log
	}

	log.SetLevel(lvl)

	return log
}
