package logger

import (
	"fmt"
	"strings"
	"sync"
)

// ILogger is the logging contract injected into components that need to be
// observed in tests
type ILogger interface {
	LogInfo(format string, args ...interface{})
	LogWarn(format string, args ...interface{})
	LogError(format string, args ...interface{})
	LogDebug(format string, args ...interface{})
}

// StandardLogger forwards to the global logger functions
type StandardLogger struct{}

// NewStandardLogger creates a logger that uses global logger functions
func NewStandardLogger() ILogger {
	return &StandardLogger{}
}

func (l *StandardLogger) LogInfo(format string, args ...interface{})  { LogInfo(format, args...) }
func (l *StandardLogger) LogWarn(format string, args ...interface{})  { LogWarn(format, args...) }
func (l *StandardLogger) LogError(format string, args ...interface{}) { LogError(format, args...) }
func (l *StandardLogger) LogDebug(format string, args ...interface{}) { LogDebug(format, args...) }

// MockLogger records formatted messages. Safe for concurrent use.
type MockLogger struct {
	mu            sync.Mutex
	InfoMessages  []string
	WarnMessages  []string
	ErrorMessages []string
	DebugMessages []string
}

// NewMockLogger creates a new mock logger for testing
func NewMockLogger() *MockLogger {
	return &MockLogger{}
}

func (l *MockLogger) record(dst *[]string, format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	*dst = append(*dst, fmt.Sprintf(format, args...))
}

func (l *MockLogger) LogInfo(format string, args ...interface{}) {
	l.record(&l.InfoMessages, format, args...)
}

func (l *MockLogger) LogWarn(format string, args ...interface{}) {
	l.record(&l.WarnMessages, format, args...)
}

func (l *MockLogger) LogError(format string, args ...interface{}) {
	l.record(&l.ErrorMessages, format, args...)
}

func (l *MockLogger) LogDebug(format string, args ...interface{}) {
	l.record(&l.DebugMessages, format, args...)
}

// Reset clears all recorded messages
func (l *MockLogger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.InfoMessages = nil
	l.WarnMessages = nil
	l.ErrorMessages = nil
	l.DebugMessages = nil
}

// HasErrorMessage checks if an error message was logged
func (l *MockLogger) HasErrorMessage() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.ErrorMessages) > 0
}

// HasWarnMessage checks if a warning message was logged
func (l *MockLogger) HasWarnMessage() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.WarnMessages) > 0
}

// ErrorsContaining returns the recorded error messages that contain substr
func (l *MockLogger) ErrorsContaining(substr string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, m := range l.ErrorMessages {
		if strings.Contains(m, substr) {
			out = append(out, m)
		}
	}
	return out
}
