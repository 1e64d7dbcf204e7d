// Package logging builds the launcher's logger from the log section of the
// configuration.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/iTrooz/ardemo/internal/config"
)

// Logger is the configured logger together with its rotating file, if any
type Logger struct {
	*logrus.Logger
	file *lumberjack.Logger
}

// New configures a logger writing to console, or to the rotating log file
// when one is set. Its settings are mirrored onto the logrus standard logger,
// which library packages log through.
func New(cfg config.LogConfig, console io.Writer) (*Logger, error) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %w", err)
	}
	formatter, err := newFormatter(cfg.Format)
	if err != nil {
		return nil, err
	}

	l := &Logger{Logger: logrus.New()}
	l.SetLevel(level)
	l.SetFormatter(formatter)
	l.SetOutput(console)

	fileErr := l.openFile(cfg)

	logrus.SetFormatter(l.Formatter)
	logrus.SetOutput(l.Out)
	logrus.SetLevel(l.GetLevel())

	if fileErr != nil {
		l.WithFields(Fields("logger_fallback")).WithField("path", cfg.File).Warn(fileErr.Error())
	}
	return l, nil
}

func newFormatter(format string) (logrus.Formatter, error) {
	switch format {
	case "", "text":
		return &logrus.TextFormatter{FullTimestamp: true}, nil
	case "json":
		return &logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano}, nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// openFile switches output to the rotating log file. The console is kept
// when the file's directory cannot be created.
func (l *Logger) openFile(cfg config.LogConfig) error {
	if cfg.File == "" {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0o755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	l.file = &lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
	l.SetOutput(l.file)
	return nil
}

// Close releases the log file
func (l *Logger) Close() error {
	if l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Fields returns the base fields for an action
func Fields(action string) logrus.Fields {
	return logrus.Fields{
		"action": action,
	}
}
