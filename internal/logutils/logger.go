package logutils

import (
	"github.com/sirupsen/logrus"
)

// Log is the process-wide logger. Configure it once from main via Setup.
var Log = logrus.New()

type Fields = logrus.Fields

// Setup switches formatter and level for the given environment.
func Setup(env string) {
	if env == "development" {
		Log.SetLevel(logrus.DebugLevel)
		Log.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
			FullTimestamp:   true,
		})
		return
	}
	Log.SetLevel(logrus.InfoLevel)
	Log.SetFormatter(&logrus.JSONFormatter{})
}
