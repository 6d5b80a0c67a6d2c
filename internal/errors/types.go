package errors

import (
	"fmt"
)

// ErrorSeverity defines the severity level of an error
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityCritical
)

// String returns the string representation of the severity
func (s ErrorSeverity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarning:
		return "WARNING"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Diagnostic codes carried by typed errors
const (
	CodeConfig    = 1
	CodeTransport = 2
	CodeDecode    = 3
	CodePublish   = 4
	CodeGeneric   = 99
)

// BridgeError is the base error type for all bridge errors
type BridgeError struct {
	Op       string        // Operation that failed
	Err      error         // Underlying error
	Severity ErrorSeverity // Error severity
	Code     int           // Diagnostic code
}

// Error implements the error interface
func (e *BridgeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Severity, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Severity, e.Op)
}

// Unwrap returns the underlying error
func (e *BridgeError) Unwrap() error {
	return e.Err
}

// TransportError is a failed request to the battery: network failure,
// timeout or a non-2xx response
type TransportError struct {
	BridgeError
	Endpoint   string
	URL        string
	StatusCode int // zero when no response was received
}

// NewTransportError creates a new transport error
func NewTransportError(op string, err error, endpoint, url string) *TransportError {
	return &TransportError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeTransport,
		},
		Endpoint: endpoint,
		URL:      url,
	}
}

// Error implements the error interface
func (e *TransportError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("[%s] sonnen %s (HTTP %d from %s): %s: %v",
			e.Severity, e.Endpoint, e.StatusCode, e.URL, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] sonnen %s (%s): %s: %v",
		e.Severity, e.Endpoint, e.URL, e.Op, e.Err)
}

// DecodeError is a response body that does not match the expected record shape
type DecodeError struct {
	BridgeError
	Endpoint string
}

// NewDecodeError creates a new decode error
func NewDecodeError(op string, err error, endpoint string) *DecodeError {
	return &DecodeError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityError,
			Code:     CodeDecode,
		},
		Endpoint: endpoint,
	}
}

// Error implements the error interface
func (e *DecodeError) Error() string {
	return fmt.Sprintf("[%s] sonnen %s: %s: %v", e.Severity, e.Endpoint, e.Op, e.Err)
}

// PublishError represents a broker that is not connected or a failed write
type PublishError struct {
	BridgeError
	Broker string
	Topic  string
}

// NewPublishError creates a new publish error. Publish errors are warnings:
// metric delivery is best effort.
func NewPublishError(op string, err error, broker string) *PublishError {
	return &PublishError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityWarning,
			Code:     CodePublish,
		},
		Broker: broker,
	}
}

// Error implements the error interface
func (e *PublishError) Error() string {
	if e.Topic != "" {
		return fmt.Sprintf("[%s] MQTT broker '%s' (topic: %s): %s: %v",
			e.Severity, e.Broker, e.Topic, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] MQTT broker '%s': %s: %v",
		e.Severity, e.Broker, e.Op, e.Err)
}

// ConfigError represents configuration errors
type ConfigError struct {
	BridgeError
	Field string
}

// NewConfigError creates a new configuration error
func NewConfigError(op string, err error, field string) *ConfigError {
	return &ConfigError{
		BridgeError: BridgeError{
			Op:       op,
			Err:      err,
			Severity: SeverityCritical,
			Code:     CodeConfig,
		},
		Field: field,
	}
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("[%s] Configuration field '%s': %s: %v",
			e.Severity, e.Field, e.Op, e.Err)
	}
	return fmt.Sprintf("[%s] Configuration: %s: %v",
		e.Severity, e.Op, e.Err)
}
