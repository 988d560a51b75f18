package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sync"

	"helmetweb/internal/config"

	"github.com/sirupsen/logrus"
)

// Level file names served by the log viewer.
const (
	InfoFile    = "info.log"
	WarningFile = "warning.log"
	ErrorFile   = "error.log"
)

// Logger provides leveled logging (info/warning/error) to files and stdout/stderr.
type Logger struct {
	console *logrus.Logger
	errors  *logrus.Logger
	logDir  string
	hook    *levelFileHook
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(config *config.Config) *Logger {
	if err := os.MkdirAll(config.LogDirectory, 0755); err != nil {
		log.Fatalf("Failed to create log directory: %v", err)
	}

	l := &Logger{logDir: config.LogDirectory}
	l.setupLoggers(os.Stdout, os.Stderr)
	return l
}

// setupLoggers builds the console loggers and attaches the per-level file hook.
func (l *Logger) setupLoggers(stdout, stderr io.Writer) {
	formatter := &logrus.TextFormatter{FullTimestamp: true}

	l.hook = &levelFileHook{
		formatter: &logrus.TextFormatter{FullTimestamp: true, DisableColors: true},
		files: map[logrus.Level]string{
			logrus.InfoLevel:  filepath.Join(l.logDir, InfoFile),
			logrus.WarnLevel:  filepath.Join(l.logDir, WarningFile),
			logrus.ErrorLevel: filepath.Join(l.logDir, ErrorFile),
		},
	}

	l.console = logrus.New()
	l.console.SetFormatter(formatter)
	l.console.SetOutput(stdout)
	l.console.AddHook(l.hook)

	// errors go to stderr, so they get their own logrus instance sharing the hook
	l.errors = logrus.New()
	l.errors.SetFormatter(formatter)
	l.errors.SetOutput(stderr)
	l.errors.AddHook(l.hook)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.console.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.console.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.errors.Errorf(format, v...)
}

// Directory returns the directory holding the level files.
func (l *Logger) Directory() string {
	return l.logDir
}

// CleanLogs truncates the specified log file.
func (l *Logger) CleanLogs(fileName string) error {
	if err := l.hook.truncate(filepath.Join(l.logDir, fileName)); err != nil {
		l.Error("Error clearing log file %s: %v", fileName, err)
		return err
	}

	l.Info("Log file %s has been cleared.", fileName)
	return nil
}

// levelFileHook appends each entry to the file registered for its level.
type levelFileHook struct {
	formatter logrus.Formatter
	files     map[logrus.Level]string
	mu        sync.Mutex
}

func (h *levelFileHook) Levels() []logrus.Level {
	levels := make([]logrus.Level, 0, len(h.files))
	for level := range h.files {
		levels = append(levels, level)
	}
	return levels
}

func (h *levelFileHook) Fire(entry *logrus.Entry) error {
	path, ok := h.files[entry.Level]
	if !ok {
		return nil
	}

	line, err := h.formatter.Format(entry)
	if err != nil {
		return fmt.Errorf("format log entry: %w", err)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return fmt.Errorf("open log file %s: %w", path, err)
	}
	defer file.Close()

	_, err = file.Write(line)
	return err
}

func (h *levelFileHook) truncate(path string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	return os.WriteFile(path, nil, 0666)
}
