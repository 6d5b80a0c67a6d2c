package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
)

// Log level names as they appear in the configuration file
const (
	LogLevelError = "error"
	LogLevelWarn  = "warn"
	LogLevelInfo  = "info"
	LogLevelDebug = "debug"
	LogLevelTrace = "trace"
)

// levelOrder ranks levels from least to most verbose
var levelOrder = map[string]int{
	LogLevelError: 0,
	LogLevelWarn:  1,
	LogLevelInfo:  2,
	LogLevelDebug: 3,
	LogLevelTrace: 4,
}

// LoggingConfig represents the logging section of the configuration
type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

var (
	mu         sync.RWMutex
	level      = levelOrder[LogLevelInfo]
	std        = log.New(os.Stdout, "", log.LstdFlags)
	logFile    *os.File
	configured bool
)

// IsValidLevel reports whether name is a known log level (empty means default)
func IsValidLevel(name string) bool {
	if name == "" {
		return true
	}
	_, ok := levelOrder[strings.ToLower(name)]
	return ok
}

// Configure applies the logging configuration to the global logger.
// An unreadable log file falls back to stdout.
func Configure(cfg LoggingConfig) {
	mu.Lock()
	defer mu.Unlock()

	name := strings.ToLower(cfg.Level)
	if rank, ok := levelOrder[name]; ok {
		level = rank
	} else {
		level = levelOrder[LogLevelInfo]
	}

	var out io.Writer = os.Stdout
	if cfg.File != "" {
		// #nosec G304 - path comes from the operator's configuration file
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			log.Printf("Failed to open log file %s: %v", cfg.File, err)
		} else {
			if logFile != nil {
				_ = logFile.Close()
			}
			logFile = f
			out = f
		}
	}
	std.SetOutput(out)
	configured = true
}

// SetOutput redirects log output, mainly for tests
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	std.SetOutput(w)
}

func enabled(messageLevel string) bool {
	mu.RLock()
	defer mu.RUnlock()
	return levelOrder[messageLevel] <= level
}

func emit(prefix, format string, args ...interface{}) {
	_ = std.Output(3, prefix+fmt.Sprintf(format, args...))
}

// LogStartup logs messages that are always visible regardless of level
func LogStartup(format string, args ...interface{}) {
	emit("🔧 ", format, args...)
}

// LogError logs at error level
func LogError(format string, args ...interface{}) {
	if enabled(LogLevelError) {
		emit("❌ ", format, args...)
	}
}

// LogWarn logs at warn level
func LogWarn(format string, args ...interface{}) {
	if enabled(LogLevelWarn) {
		emit("⚠️ ", format, args...)
	}
}

// LogInfo logs at info level
func LogInfo(format string, args ...interface{}) {
	if enabled(LogLevelInfo) {
		emit("ℹ️ ", format, args...)
	}
}

// LogDebug logs at debug level
func LogDebug(format string, args ...interface{}) {
	if enabled(LogLevelDebug) {
		emit("🔧 ", format, args...)
	}
}

// LogTrace logs at trace level
func LogTrace(format string, args ...interface{}) {
	if enabled(LogLevelTrace) {
		emit("🔍 ", format, args...)
	}
}

// IsDebugEnabled checks if debug logging is enabled
func IsDebugEnabled() bool {
	return enabled(LogLevelDebug)
}

// IsTraceEnabled checks if trace logging is enabled
func IsTraceEnabled() bool {
	return enabled(LogLevelTrace)
}

// IsConfigured reports whether Configure has been called
func IsConfigured() bool {
	mu.RLock()
	defer mu.RUnlock()
	return configured
}
