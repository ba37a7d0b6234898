// Package obslog provides the leveled, singleton logger used throughout the
// fusion engine, in the style of the original system's four-level
// DEBUG/INFO/WARN/ERROR logging with an added FATAL that exits the process.
package obslog

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

// Level is a logging severity.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
	FATAL
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	case FATAL:
		return "FATAL"
	default:
		return "UNKNOWN"
	}
}

// Logger writes leveled, timestamped lines to stdout and, optionally, a file.
type Logger struct {
	mu    sync.Mutex
	level Level
	inner *log.Logger
	file  *os.File
}

var (
	once     sync.Once
	instance *Logger
)

// Init configures the package-level singleton. Subsequent calls are no-ops;
// call it once at process startup before any L() use.
func Init(minLevel Level, logFilePath string) {
	once.Do(func() {
		writers := []io.Writer{os.Stdout}
		var f *os.File
		if logFilePath != "" {
			var err error
			f, err = os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				fmt.Fprintf(os.Stderr, "obslog: cannot open %s: %v, stdout only\n", logFilePath, err)
				f = nil
			} else {
				writers = append(writers, f)
			}
		}
		instance = &Logger{
			level: minLevel,
			inner: log.New(io.MultiWriter(writers...), "", 0),
			file:  f,
		}
	})
}

// L returns the singleton, initializing it with INFO/stdout-only defaults if
// Init was never called.
func L() *Logger {
	if instance == nil {
		Init(INFO, "")
	}
	return instance
}

func (lg *Logger) log(level Level, format string, args ...any) {
	if level < lg.level {
		return
	}
	lg.mu.Lock()
	defer lg.mu.Unlock()
	ts := time.Now().Format("2006-01-02 15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	lg.inner.Printf("[%s] %-5s  %s", ts, level, msg)
}

func (lg *Logger) Debug(format string, args ...any) { lg.log(DEBUG, format, args...) }
func (lg *Logger) Info(format string, args ...any)  { lg.log(INFO, format, args...) }
func (lg *Logger) Warn(format string, args ...any)  { lg.log(WARN, format, args...) }
func (lg *Logger) Error(format string, args ...any) { lg.log(ERROR, format, args...) }

// Fatal logs at FATAL and exits the process with status 1, matching the
// original system's behaviour on unrecoverable initialisation failure.
func (lg *Logger) Fatal(format string, args ...any) {
	lg.log(FATAL, format, args...)
	os.Exit(1)
}

// Close releases the underlying log file, if one was opened.
func (lg *Logger) Close() error {
	if lg.file != nil {
		return lg.file.Close()
	}
	return nil
}
