// Package logging builds the logrus loggers used across the engine.
package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

const application = "fhir-engine"

// Logger configures logger to write to outputFile (stderr when empty or when
// the file cannot be opened) and tags every entry with the component name.
func Logger(logger *logrus.Logger, outputFile, component string) logrus.FieldLogger {
	if outputFile != "" {
		if file, err := os.OpenFile(filepath.Clean(outputFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				outputFile, err.Error())
		}
	}

	return logger.WithFields(logrus.Fields{
		"application": application,
		"component":   component})
}

// Discard returns a logger that drops everything; it is the default for
// library entry points that were not given a logger.
func Discard() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)

	return l
}

// OrDiscard returns l, or a discarding logger when l is nil.
func OrDiscard(l logrus.FieldLogger) logrus.FieldLogger {
	if l == nil {
		return Discard()
	}

	return l
}
