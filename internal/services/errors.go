package services

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Error types for device connection and control operations

// ErrorType represents the category of error that occurred
type ErrorType int

const (
	// ErrTypeConnectionFailed indicates the connection handshake did not complete
	ErrTypeConnectionFailed ErrorType = iota
	// ErrTypeCommandFailed indicates the device rejected or dropped a command
	ErrTypeCommandFailed
	// ErrTypePinVerification indicates the PIN challenge was not accepted
	ErrTypePinVerification
	// ErrTypeDeviceNotFound indicates no device answered at the recorded address
	ErrTypeDeviceNotFound
	// ErrTypeNetwork indicates a network-level error (connection refused, unreachable, etc.)
	ErrTypeNetwork
	// ErrTypeAuth indicates the device rejected stored credentials
	ErrTypeAuth
	// ErrTypeTimeout indicates an operation deadline elapsed
	ErrTypeTimeout
	// ErrTypeUnknown indicates an unknown or unexpected error
	ErrTypeUnknown
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeConnectionFailed:
		return "Connection Failed"
	case ErrTypeCommandFailed:
		return "Command Failed"
	case ErrTypePinVerification:
		return "PIN Verification Failed"
	case ErrTypeDeviceNotFound:
		return "Device Not Found"
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeUnknown:
		return "Unknown Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// TVError represents an error that occurred while talking to a TV
type TVError struct {
	Type      ErrorType // Category of error
	Message   string    // Human-readable error message
	Brand     string    // Brand of the device (for context)
	DeviceIP  string    // Device IP address (for context)
	Err       error     // Underlying error (if any)
	Retryable bool      // Whether the error is retryable
}

// Error implements the error interface
func (e *TVError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *TVError) Unwrap() error {
	return e.Err
}

// ClassifyNetworkError analyzes an error and returns a more specific error type
func ClassifyNetworkError(err error, deviceIP string) *TVError {
	if err == nil {
		return nil
	}

	if os.IsTimeout(err) {
		return &TVError{
			Type:      ErrTypeTimeout,
			Message:   "Request timed out",
			Err:       err,
			DeviceIP:  deviceIP,
			Retryable: true,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		if errors.Is(opErr.Err, syscall.ECONNREFUSED) {
			return &TVError{
				Type:      ErrTypeConnectionFailed,
				Message:   "Device refused connection",
				Err:       err,
				DeviceIP:  deviceIP,
				Retryable: true,
			}
		}
		if errors.Is(opErr.Err, syscall.EHOSTUNREACH) || errors.Is(opErr.Err, syscall.ENETUNREACH) {
			return &TVError{
				Type:      ErrTypeDeviceNotFound,
				Message:   "Device unreachable",
				Err:       err,
				DeviceIP:  deviceIP,
				Retryable: true,
			}
		}
	}

	return &TVError{
		Type:      ErrTypeNetwork,
		Message:   "Network error occurred",
		Err:       err,
		DeviceIP:  deviceIP,
		Retryable: true,
	}
}

// NewConnectionError creates a connection failure with automatic classification
func NewConnectionError(message string, err error, deviceIP string) *TVError {
	classified := ClassifyNetworkError(err, deviceIP)
	if classified != nil {
		classified.Message = message
		if classified.Type == ErrTypeNetwork {
			classified.Type = ErrTypeConnectionFailed
		}
		return classified
	}
	return &TVError{
		Type:      ErrTypeConnectionFailed,
		Message:   message,
		DeviceIP:  deviceIP,
		Retryable: true,
	}
}

// NewCommandError creates a command delivery error
func NewCommandError(message string, err error) *TVError {
	return &TVError{
		Type:      ErrTypeCommandFailed,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewPinError creates a PIN verification error
func NewPinError(message string, err error) *TVError {
	return &TVError{
		Type:      ErrTypePinVerification,
		Message:   message,
		Err:       err,
		Retryable: false,
	}
}

// NewAuthError creates an authentication error for a rejected credential
func NewAuthError(message string) *TVError {
	return &TVError{
		Type:      ErrTypeAuth,
		Message:   message,
		Retryable: false,
	}
}

// NewTimeoutError creates a deadline-elapsed error
func NewTimeoutError(message string) *TVError {
	return &TVError{
		Type:      ErrTypeTimeout,
		Message:   message,
		Retryable: true,
	}
}

// NewNotFoundError creates a device-not-found error
func NewNotFoundError(message string) *TVError {
	return &TVError{
		Type:      ErrTypeDeviceNotFound,
		Message:   message,
		Retryable: true,
	}
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	var tvErr *TVError
	if errors.As(err, &tvErr) {
		return tvErr.Type == ErrTypeAuth
	}
	return false
}

// IsPinError checks if an error is a PIN verification error
func IsPinError(err error) bool {
	var tvErr *TVError
	if errors.As(err, &tvErr) {
		return tvErr.Type == ErrTypePinVerification
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	var tvErr *TVError
	if errors.As(err, &tvErr) {
		return tvErr.Retryable
	}
	// Unknown errors are not retryable by default
	return false
}

// GetShortErrorMessage returns a concise, user-friendly error message
func GetShortErrorMessage(err error) string {
	var tvErr *TVError
	if !errors.As(err, &tvErr) {
		return err.Error()
	}

	switch tvErr.Type {
	case ErrTypeConnectionFailed:
		return "Could not connect - is the TV on?"
	case ErrTypeCommandFailed:
		return "The TV did not accept the command"
	case ErrTypePinVerification:
		return "PIN rejected - check the code on the TV screen"
	case ErrTypeDeviceNotFound:
		return "TV unreachable - check network connection"
	case ErrTypeAuth:
		return "The TV rejected the stored pairing - pair again"
	case ErrTypeTimeout:
		return "TV not responding (timeout)"
	default:
		return tvErr.Message
	}
}
