// Package logging configures the process-wide logrus logger and re-exports the
// leveled helpers used throughout inkledger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const logFileName = "inkledger.log"

var (
	setupOnce sync.Once
	outputMu  sync.Mutex
	fileOut   *lumberjack.Logger
)

// Fields is an alias so callers do not need to import logrus directly.
type Fields = log.Fields

// SetupBaseLogger installs the default formatter and writes to stderr.
// Safe to call more than once.
func SetupBaseLogger() {
	setupOnce.Do(func() {
		log.SetOutput(os.Stderr)
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
		log.SetLevel(log.InfoLevel)
	})
}

// ConfigureLogOutput switches between stderr and a rotating file under dir.
func ConfigureLogOutput(toFile bool, dir string) error {
	outputMu.Lock()
	defer outputMu.Unlock()

	if !toFile {
		if fileOut != nil {
			_ = fileOut.Close()
			fileOut = nil
		}
		log.SetOutput(os.Stderr)
		return nil
	}

	dir = strings.TrimSpace(dir)
	if dir == "" {
		return fmt.Errorf("logging: log directory is required when logging to file")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("logging: create log dir: %w", err)
	}

	if fileOut != nil {
		_ = fileOut.Close()
	}
	fileOut = &lumberjack.Logger{
		Filename:   filepath.Join(dir, logFileName),
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     28, // days
		Compress:   true,
	}
	log.SetOutput(io.MultiWriter(os.Stderr, fileOut))
	return nil
}

// SetDebug toggles debug-level output.
func SetDebug(debug bool) {
	current := log.GetLevel()
	next := log.InfoLevel
	if debug {
		next = log.DebugLevel
	}
	if current != next {
		log.SetLevel(next)
		log.Infof("log level changed from %s to %s", current, next)
	}
}

func Debugf(format string, args ...any) { log.Debugf(format, args...) }
func Infof(format string, args ...any)  { log.Infof(format, args...) }
func Warnf(format string, args ...any)  { log.Warnf(format, args...) }
func Errorf(format string, args ...any) { log.Errorf(format, args...) }

func Debug(args ...any) { log.Debug(args...) }
func Info(args ...any)  { log.Info(args...) }
func Warn(args ...any)  { log.Warn(args...) }
func Error(args ...any) { log.Error(args...) }

func WithError(err error) *log.Entry         { return log.WithError(err) }
func WithField(key string, v any) *log.Entry { return log.WithField(key, v) }
func WithFields(fields Fields) *log.Entry    { return log.WithFields(fields) }
