package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// LogLevel enumerates severity tiers.
type LogLevel int

const (
	DEBUG LogLevel = iota
	INFO
	WARN
	ERROR
	FATAL
)

var levelNames = [...]string{"DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

var logrusLevels = [...]log.Level{log.DebugLevel, log.InfoLevel, log.WarnLevel, log.ErrorLevel, log.FatalLevel}

// ErrUnknownLevel is returned by ParseLevel for unrecognised names.
var ErrUnknownLevel = errors.New("unknown log level")

func (l LogLevel) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "UNKNOWN"
}

// ParseLevel maps a config string ("debug", "info", ...) to a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	for i, n := range levelNames {
		if strings.EqualFold(s, n) {
			return LogLevel(i), nil
		}
	}
	if strings.EqualFold(s, "warning") {
		return WARN, nil
	}
	return INFO, fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// LogFileOptions controls rotation of the optional log file.
type LogFileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// Logger is a concurrency-safe, levelled logger used across the pipeline.
type Logger struct {
	mu    sync.Mutex
	inner *log.Logger
	file  io.Closer
}

var (
	globalLogger *Logger
	logOnce      sync.Once
)

// InitLogger creates the singleton logger. Call once at startup.
// Stdout is always a sink; a non-empty logFilePath adds a rotated file.
func InitLogger(minLevel LogLevel, logFilePath string) *Logger {
	return InitLoggerWithOptions(minLevel, LogFileOptions{Path: logFilePath})
}

// InitLoggerWithOptions is InitLogger with explicit rotation settings.
func InitLoggerWithOptions(minLevel LogLevel, opts LogFileOptions) *Logger {
	logOnce.Do(func() {
		globalLogger = NewLogger(os.Stdout, minLevel, opts)
	})
	return globalLogger
}

// NewLogger builds a standalone logger writing to out (and the optional file).
func NewLogger(out io.Writer, minLevel LogLevel, opts LogFileOptions) *Logger {
	writers := []io.Writer{out}

	var file io.Closer
	if opts.Path != "" {
		if opts.MaxSizeMB <= 0 {
			opts.MaxSizeMB = 50
		}
		lj := &lumberjack.Logger{
			Filename:   opts.Path,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
		}
		writers = append(writers, lj)
		file = lj
	}

	inner := log.New()
	inner.SetOutput(io.MultiWriter(writers...))
	inner.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
		DisableColors:   true,
	})
	inner.SetLevel(minLevel.logrus())

	return &Logger{inner: inner, file: file}
}

// L returns the global logger, initialising a stdout-only DEBUG logger on
// first use if InitLogger has not been called. Safe for concurrent first use.
func L() *Logger {
	return InitLogger(DEBUG, "")
}

// SetLevel changes the minimum level at runtime.
func (l *Logger) SetLevel(lvl LogLevel) {
	l.inner.SetLevel(lvl.logrus())
}

// With returns an entry carrying a structured field.
func (l *Logger) With(key string, value any) *log.Entry {
	return l.inner.WithField(key, value)
}

// Close closes the log file, if any.
func (l *Logger) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

func (l LogLevel) logrus() log.Level {
	if int(l) < len(logrusLevels) {
		return logrusLevels[l]
	}
	return log.InfoLevel
}

func (l *Logger) Debug(f string, a ...any) { l.inner.Debugf(f, a...) }
func (l *Logger) Info(f string, a ...any)  { l.inner.Infof(f, a...) }
func (l *Logger) Warn(f string, a ...any)  { l.inner.Warnf(f, a...) }
func (l *Logger) Error(f string, a ...any) { l.inner.Errorf(f, a...) }
func (l *Logger) Fatal(f string, a ...any) { l.inner.Fatalf(f, a...) }
