package errors

import (
	"errors"
	"fmt"
)

// Kind classifies application errors into the handling categories the CLI
// and library boundaries care about.
type Kind string

const (
	KindConfig     Kind = "config"
	KindIO         Kind = "io"
	KindDetection  Kind = "detection"
	KindValidation Kind = "validation"
)

// AppError is the standard error value used across the module. It carries a
// kind for dispatch, the operation that failed and optional metadata for
// structured logging.
type AppError struct {
	Kind      Kind                   `json:"kind"`
	Operation string                 `json:"operation"`
	Message   string                 `json:"message"`
	Cause     error                  `json:"-"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// New creates a new AppError.
func New(kind Kind, operation, message string) *AppError {
	return &AppError{
		Kind:      kind,
		Operation: operation,
		Message:   message,
	}
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Kind, e.Operation, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Kind, e.Operation, e.Message)
}

// Unwrap exposes the cause to errors.Is/As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Wrap records the underlying cause.
func (e *AppError) Wrap(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithMetadata attaches a metadata entry.
func (e *AppError) WithMetadata(key string, value interface{}) *AppError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ToMap converts the error to fields for structured logging.
func (e *AppError) ToMap() map[string]interface{} {
	result := map[string]interface{}{
		"error_kind":      string(e.Kind),
		"error_operation": e.Operation,
		"error_message":   e.Message,
	}
	if e.Cause != nil {
		result["error_cause"] = e.Cause.Error()
	}
	for k, v := range e.Metadata {
		result["error_meta_"+k] = v
	}
	return result
}

// ConfigError creates a configuration error (unknown strategy, bad flag,
// malformed config file).
func ConfigError(operation, message string) *AppError {
	return New(KindConfig, operation, message)
}

// IOError creates an input/output error (missing file, read failure).
func IOError(operation, message string) *AppError {
	return New(KindIO, operation, message)
}

// DetectionError creates a format detection error.
func DetectionError(operation, message string) *AppError {
	return New(KindDetection, operation, message)
}

// IsKind reports whether err is an AppError of the given kind.
func IsKind(err error, kind Kind) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Kind == kind
	}
	return false
}
