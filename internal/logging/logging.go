// Package logging wraps logrus with klock's logging conventions: level,
// format and destination driven by config.
package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// Logger wraps a logrus.Logger.
type Logger struct {
	*logrus.Logger
}

// Config controls level, format and destination of a Logger.
type Config struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePrefix string `mapstructure:"file_prefix"`
}

// New builds a Logger from cfg. An unparseable Level falls back to Info
// rather than failing startup over a typo in an env var.
func New(cfg Config) *Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	switch strings.ToLower(cfg.Format) {
	case "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	switch strings.ToLower(cfg.Output) {
	case "file":
		prefix := cfg.FilePrefix
		if prefix == "" {
			prefix = "klock"
		}
		if err := os.MkdirAll("logs", 0755); err != nil {
			logger.Errorf("create log directory: %v", err)
			break
		}
		path := filepath.Join("logs", prefix+".log")
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			logger.Errorf("open log file: %v", err)
			break
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, file))
	default:
		logger.SetOutput(os.Stdout)
	}

	return &Logger{Logger: logger}
}

// NewDefault builds an Info-level text logger writing to stdout. The
// component name is not attached to the entries it logs.
func NewDefault(component string) *Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.InfoLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(os.Stdout)

	return &Logger{Logger: logger.WithField("component", component).Logger}
}

// WithField returns a log entry carrying one extra field.
func (l *Logger) WithField(key string, value interface{}) *logrus.Entry {
	return l.Logger.WithField(key, value)
}

// WithFields returns a log entry carrying several extra fields.
func (l *Logger) WithFields(fields logrus.Fields) *logrus.Entry {
	return l.Logger.WithFields(fields)
}
