package util

import (
	"fmt"

	"github.com/krobus00/odds-tracker/internal/config"
	"github.com/sirupsen/logrus"
)

// ContinueOrFatal stops the process on bootstrap failures.
func ContinueOrFatal(err error) {
	if err != nil {
		logrus.WithField("service", config.ServiceName).Fatal(err)
	}
}

// ContinueOrFatalf is ContinueOrFatal with a description of the failed step.
func ContinueOrFatalf(err error, format string, args ...any) {
	if err != nil {
		logrus.WithField("service", config.ServiceName).WithError(err).Fatal(fmt.Sprintf(format, args...))
	}
}
