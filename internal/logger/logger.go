// Package logger is the process-wide leveled logger. Everything goes through
// one logrus instance so the CLI can retarget level, format and output once
// at startup.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Fields is structured context attached to a log line
type Fields = logrus.Fields

var std = newLogger(os.Stderr)

func newLogger(out io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(out)
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	return l
}

// ParseLevel accepts DEBUG, INFO, WARN and ERROR in any case.
func ParseLevel(level string) (logrus.Level, error) {
	switch strings.ToUpper(strings.TrimSpace(level)) {
	case "DEBUG":
		return logrus.DebugLevel, nil
	case "INFO", "":
		return logrus.InfoLevel, nil
	case "WARN", "WARNING":
		return logrus.WarnLevel, nil
	case "ERROR":
		return logrus.ErrorLevel, nil
	default:
		return logrus.InfoLevel, fmt.Errorf("unknown log level %q", level)
	}
}

// Setup configures the shared logger. output is "stdout", "stderr" or a
// file path opened for appending. The returned closer releases the file, if
// any.
func Setup(level, format, output string) (io.Closer, error) {
	lvl, err := ParseLevel(level)
	if err != nil {
		return nil, err
	}

	switch strings.ToLower(format) {
	case "json":
		std.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02 15:04:05"})
	case "text", "":
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: "2006-01-02 15:04:05"})
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}

	var closer io.Closer = nopCloser{}
	switch strings.ToLower(output) {
	case "stderr", "":
		std.SetOutput(os.Stderr)
	case "stdout":
		std.SetOutput(os.Stdout)
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		std.SetOutput(f)
		closer = f
	}

	std.SetLevel(lvl)
	return closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// SetLevel changes the level, ignoring unknown names.
func SetLevel(level string) {
	if lvl, err := ParseLevel(level); err == nil {
		std.SetLevel(lvl)
	}
}

// SetOutput redirects log output
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// IsDebug reports whether debug lines are emitted
func IsDebug() bool {
	return std.IsLevelEnabled(logrus.DebugLevel)
}

// WithFields returns an entry carrying structured context.
func WithFields(fields Fields) *logrus.Entry {
	return std.WithFields(fields)
}

func Debug(format string, v ...any) {
	std.Debugf(format, v...)
}

func Info(format string, v ...any) {
	std.Infof(format, v...)
}

func Warn(format string, v ...any) {
	std.Warnf(format, v...)
}

func Error(format string, v ...any) {
	std.Errorf(format, v...)
}
