package errors

import (
	"fmt"
)

// NetworkUnavailable creates an error for a remote call that never reached a
// responding server (connection refused, unreachable, timeout).
func NetworkUnavailable(op string, cause error) *LuminError {
	return Wrap(cause, ErrCodeNetworkUnavailable, fmt.Sprintf("%s: server is offline", op)).
		WithDetail("op", op)
}

// RemoteError creates an error for a server that answered with a failure.
func RemoteError(op string, status int, message string) *LuminError {
	if message == "" {
		message = fmt.Sprintf("remote returned status %d", status)
	}
	return New(ErrCodeRemoteError, fmt.Sprintf("%s: %s", op, message)).
		WithDetail("op", op).
		WithDetail("status", status)
}

// Validation creates a client-side input error
func Validation(field, reason string) *LuminError {
	return New(ErrCodeValidation, reason).
		WithDetail("field", field)
}

// DeviceError creates a capture device error
func DeviceError(code ErrorCode, device string, cause error) *LuminError {
	var msg string
	switch code {
	case ErrCodeDevicePermissionDenied:
		msg = "camera access denied, allow camera permissions"
	case ErrCodeDeviceNotFound:
		msg = "no camera found on this device"
	case ErrCodeDeviceInUse:
		msg = "camera is already in use by another application"
	case ErrCodeDeviceNotReady:
		msg = "camera is not ready"
	default:
		code = ErrCodeDeviceFailed
		msg = "failed to access camera"
	}
	return Wrap(cause, code, msg).WithDetail("device", device)
}

// ConfigNotFound creates a configuration not found error
func ConfigNotFound(path string) *LuminError {
	return New(ErrCodeConfigNotFound, fmt.Sprintf("configuration file not found: %s", path)).
		WithDetail("path", path)
}

// ConfigInvalid creates an invalid configuration error
func ConfigInvalid(reason string) *LuminError {
	return New(ErrCodeConfigInvalid, fmt.Sprintf("invalid configuration: %s", reason))
}

// NoSession creates an error for an operation that needs an active session
func NoSession(module string) *LuminError {
	return New(ErrCodeNoSession, fmt.Sprintf("no active %s session", module)).
		WithDetail("module", module)
}

// IsNetworkUnavailable reports whether err is a connectivity failure.
func IsNetworkUnavailable(err error) bool {
	return Is(err, ErrCodeNetworkUnavailable)
}

// IsRemote reports whether err came from a reachable server answering with a failure.
func IsRemote(err error) bool {
	return Is(err, ErrCodeRemoteError)
}

// IsDevice reports whether err is any capture device error.
func IsDevice(err error) bool {
	switch GetCode(err) {
	case ErrCodeDevicePermissionDenied, ErrCodeDeviceNotFound, ErrCodeDeviceInUse,
		ErrCodeDeviceNotReady, ErrCodeDeviceFailed:
		return true
	}
	return false
}

// RemoteStatus returns the HTTP status recorded on a remote error.
func RemoteStatus(err error) (int, bool) {
	luminErr, ok := As(err)
	if !ok || luminErr.Code != ErrCodeRemoteError {
		return 0, false
	}
	status, ok := luminErr.Details["status"].(int)
	return status, ok
}
