// internal/logger/logger.go
package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Init configures the process-wide logrus logger. Unknown levels fall back
// to info.
func Init(level string, json bool) {
	logrus.SetOutput(os.Stdout)
	if json {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// Game returns an entry tagged with a game id.
func Game(id interface{}) *logrus.Entry {
	return logrus.WithField("game", id)
}

// Room returns an entry tagged with a room id.
func Room(id string) *logrus.Entry {
	return logrus.WithField("room", id)
}
