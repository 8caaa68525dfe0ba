// Package logger provides the process-wide resolution log.
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"sync"
	"time"
)

var (
	globalLogger *log.Logger
	logFile      *os.File
	verbose      bool
	mu           sync.Mutex
)

// Init initializes the global logger with the specified log file path.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	// Close previous log file if exists
	if logFile != nil {
		logFile.Close()
	}

	f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logFile = f
	globalLogger = log.New(f, "", log.Ltime|log.Lmicroseconds)

	return nil
}

// InitWriter routes log output to w instead of a file.
// Used by the CLI for --log-file=- and by tests.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = log.New(w, "", log.Ltime|log.Lmicroseconds)
}

// Close closes the log file.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	globalLogger = nil
}

// SetVerbose enables or disables Debug output.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
}

// Info logs an info message.
func Info(format string, v ...interface{}) {
	write("[INFO] ", format, v...)
}

// Debug logs a debug message. Dropped unless verbose.
func Debug(format string, v ...interface{}) {
	mu.Lock()
	on := verbose
	mu.Unlock()
	if on {
		write("[DEBUG] ", format, v...)
	}
}

// Error logs an error message.
func Error(format string, v ...interface{}) {
	write("[ERROR] ", format, v...)
}

// Warn logs a warning message.
func Warn(format string, v ...interface{}) {
	write("[WARN] ", format, v...)
}

// Escalate logs a retry diagnostic whose level rises as elapsed approaches timeout:
// Debug below half the budget, Info up to 80%, Warn after that.
func Escalate(elapsed, timeout time.Duration, format string, v ...interface{}) {
	if timeout <= 0 {
		Warn(format, v...)
		return
	}
	ratio := float64(elapsed) / float64(timeout)
	switch {
	case ratio < 0.5:
		Debug(format, v...)
	case ratio < 0.8:
		Info(format, v...)
	default:
		Warn(format, v...)
	}
}

func write(prefix, format string, v ...interface{}) {
	mu.Lock()
	defer mu.Unlock()

	if globalLogger != nil {
		globalLogger.Printf(prefix+format, v...)
	}
}

// GetWriter returns the underlying writer for use by sessions.
func GetWriter() io.Writer {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		return logFile
	}
	if globalLogger != nil {
		return globalLogger.Writer()
	}
	return io.Discard
}
