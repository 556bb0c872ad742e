package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error condition
type ErrorCode string

const (
	// Transport errors
	ErrCodeNetworkUnavailable ErrorCode = "NETWORK_UNAVAILABLE"
	ErrCodeRemoteError        ErrorCode = "REMOTE_ERROR"

	// Client-side input errors
	ErrCodeValidation ErrorCode = "VALIDATION"

	// Capture device errors
	ErrCodeDevicePermissionDenied ErrorCode = "DEVICE_PERMISSION_DENIED"
	ErrCodeDeviceNotFound         ErrorCode = "DEVICE_NOT_FOUND"
	ErrCodeDeviceInUse            ErrorCode = "DEVICE_IN_USE"
	ErrCodeDeviceNotReady         ErrorCode = "DEVICE_NOT_READY"
	ErrCodeDeviceFailed           ErrorCode = "DEVICE_FAILED"

	// Configuration errors
	ErrCodeConfigNotFound   ErrorCode = "CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid    ErrorCode = "CONFIG_INVALID"
	ErrCodeConfigValidation ErrorCode = "CONFIG_VALIDATION"

	// Session errors
	ErrCodeNoSession       ErrorCode = "NO_SESSION"
	ErrCodeUnauthenticated ErrorCode = "UNAUTHENTICATED"

	// General errors
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

// LuminError represents a structured error with context
type LuminError struct {
	Code    ErrorCode              `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
	Cause   error                  `json:"-"`
}

// Error implements the error interface
func (e *LuminError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap implements the errors.Unwrap interface
func (e *LuminError) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error
func (e *LuminError) WithDetail(key string, value interface{}) *LuminError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// ToJSON converts the error to JSON
func (e *LuminError) ToJSON() string {
	data, _ := json.MarshalIndent(e, "", "  ")
	return string(data)
}

// New creates a new LuminError
func New(code ErrorCode, message string) *LuminError {
	return &LuminError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with a LuminError
func Wrap(err error, code ErrorCode, message string) *LuminError {
	return &LuminError{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Is checks if an error is a specific LuminError code.
// The outermost LuminError in the chain decides.
func Is(err error, code ErrorCode) bool {
	return GetCode(err) == code
}

// GetCode extracts the error code from an error
func GetCode(err error) ErrorCode {
	if err == nil {
		return ""
	}

	var luminErr *LuminError
	if !stderrors.As(err, &luminErr) {
		return ""
	}
	return luminErr.Code
}

// As finds the first LuminError in err's chain.
func As(err error) (*LuminError, bool) {
	var luminErr *LuminError
	if stderrors.As(err, &luminErr) {
		return luminErr, true
	}
	return nil, false
}
