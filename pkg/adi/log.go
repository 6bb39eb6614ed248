package adi

import "github.com/sirupsen/logrus"

var logger = logrus.New()

// SetLogger replaces the logger used by ports created afterwards without an
// explicit Logger in their config.
func SetLogger(l *logrus.Logger) {
	if l != nil {
		logger = l
	}
}

func component(l logrus.FieldLogger, prefix string) logrus.FieldLogger {
	if l == nil {
		l = logger
	}
	return l.WithField("prefix", prefix)
}
