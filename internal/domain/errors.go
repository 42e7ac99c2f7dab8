package domain

import (
	"fmt"
)

// User-facing validation messages
const (
	MsgNoImage      = "No image provided"
	MsgInvalidImage = "Invalid image format"
)

// ConfigurationError means the process is missing required configuration.
type ConfigurationError struct {
	Message string
}

// NewConfigurationError creates a new configuration error
func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{Message: message}
}

func (e *ConfigurationError) Error() string {
	return e.Message
}

// ValidationError means the caller sent input that must be corrected.
type ValidationError struct {
	Message string
}

// NewValidationError creates a new validation error with a user-facing message
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

func (e *ValidationError) Error() string {
	return e.Message
}

// RelayError wraps a failure of the external service or of output assembly.
type RelayError struct {
	Err error
}

// NewRelayError wraps a provider or stream failure
func NewRelayError(err error) *RelayError {
	return &RelayError{Err: err}
}

func (e *RelayError) Error() string {
	return fmt.Sprintf("relay failed: %v", e.Err)
}

// Detail is the human-readable cause reported to the caller.
func (e *RelayError) Detail() string {
	if e.Err == nil {
		return "unknown error"
	}
	return e.Err.Error()
}

func (e *RelayError) Unwrap() error {
	return e.Err
}

// DecodeError means an image could not be decoded on the client side.
type DecodeError struct {
	Err error
}

// NewDecodeError wraps an image decoding failure
func NewDecodeError(err error) *DecodeError {
	return &DecodeError{Err: err}
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode image: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}
