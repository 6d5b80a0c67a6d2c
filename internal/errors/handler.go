package errors

import (
	stderrors "errors"

	"sonnen-mqtt-bridge/internal/logger"
)

// ErrorHandler logs errors at the boundary where they stop propagating
type ErrorHandler struct {
	log logger.ILogger
}

// NewErrorHandler creates a new error handler. A nil logger uses the global one.
func NewErrorHandler(log logger.ILogger) *ErrorHandler {
	if log == nil {
		log = logger.NewStandardLogger()
	}
	return &ErrorHandler{log: log}
}

// Handle logs err according to its type and severity
func (h *ErrorHandler) Handle(err error) {
	if err == nil {
		return
	}

	var (
		transportErr *TransportError
		decodeErr    *DecodeError
		publishErr   *PublishError
		configErr    *ConfigError
		bridgeErr    *BridgeError
	)

	switch {
	case stderrors.As(err, &transportErr):
		h.logBySeverity("sonnen request failed", transportErr.Severity, err)
	case stderrors.As(err, &decodeErr):
		h.logBySeverity("sonnen response not understood", decodeErr.Severity, err)
	case stderrors.As(err, &publishErr):
		h.logBySeverity("MQTT publish failed", publishErr.Severity, err)
	case stderrors.As(err, &configErr):
		h.log.LogError("🔴 CRITICAL Configuration Error: %v", err)
	case stderrors.As(err, &bridgeErr):
		h.logBySeverity("bridge error", bridgeErr.Severity, err)
	default:
		h.log.LogError("Untyped Error: %v", err)
	}
}

func (h *ErrorHandler) logBySeverity(what string, severity ErrorSeverity, err error) {
	switch severity {
	case SeverityCritical:
		h.log.LogError("🔴 CRITICAL %s: %v", what, err)
	case SeverityError:
		h.log.LogError("%s: %v", what, err)
	case SeverityWarning:
		h.log.LogWarn("%s: %v", what, err)
	default:
		h.log.LogInfo("%s: %v", what, err)
	}
}

// IsRecoverable returns false for errors that must stop the process
func IsRecoverable(err error) bool {
	if err == nil {
		return true
	}

	var configErr *ConfigError
	if stderrors.As(err, &configErr) {
		return false
	}
	return Severity(err) != SeverityCritical
}

// Severity extracts the severity of a typed error, SeverityError otherwise
func Severity(err error) ErrorSeverity {
	var (
		transportErr *TransportError
		decodeErr    *DecodeError
		publishErr   *PublishError
		configErr    *ConfigError
		bridgeErr    *BridgeError
	)
	switch {
	case stderrors.As(err, &transportErr):
		return transportErr.Severity
	case stderrors.As(err, &decodeErr):
		return decodeErr.Severity
	case stderrors.As(err, &publishErr):
		return publishErr.Severity
	case stderrors.As(err, &configErr):
		return configErr.Severity
	case stderrors.As(err, &bridgeErr):
		return bridgeErr.Severity
	default:
		return SeverityError
	}
}

// GetDiagnosticCode extracts the diagnostic code from an error
func GetDiagnosticCode(err error) int {
	if err == nil {
		return 0
	}

	var (
		transportErr *TransportError
		decodeErr    *DecodeError
		publishErr   *PublishError
		configErr    *ConfigError
		bridgeErr    *BridgeError
	)
	switch {
	case stderrors.As(err, &transportErr):
		return transportErr.Code
	case stderrors.As(err, &decodeErr):
		return decodeErr.Code
	case stderrors.As(err, &publishErr):
		return publishErr.Code
	case stderrors.As(err, &configErr):
		return configErr.Code
	case stderrors.As(err, &bridgeErr):
		return bridgeErr.Code
	default:
		return CodeGeneric
	}
}
