package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/grovetools/lumin/errors"
	"github.com/grovetools/lumin/tui/theme"
)

// ErrorHandler provides user-friendly error messages
type ErrorHandler struct {
	Verbose bool
	Out     io.Writer
}

// NewErrorHandler creates a new error handler writing to stderr
func NewErrorHandler(verbose bool) *ErrorHandler {
	return &ErrorHandler{
		Verbose: verbose,
		Out:     os.Stderr,
	}
}

// Handle prints a message for err based on its code and returns err.
func (h *ErrorHandler) Handle(err error) error {
	if err == nil {
		return nil
	}
	t := theme.DefaultTheme
	fail := func(format string, args ...interface{}) {
		fmt.Fprintf(h.Out, "%s %s\n", t.Error.Render(theme.IconError), fmt.Sprintf(format, args...))
	}
	hint := func(format string, args ...interface{}) {
		fmt.Fprintln(h.Out, t.Muted.Render(fmt.Sprintf(format, args...)))
	}
	detail := func(key string) interface{} {
		if le, ok := errors.As(err); ok {
			return le.Details[key]
		}
		return nil
	}

	switch errors.GetCode(err) {
	case errors.ErrCodeValidation:
		fail("%v", err)

	case errors.ErrCodeConfigNotFound:
		fail("Configuration not found at %v", detail("path"))
		hint("Run 'lumin config schema' to see the accepted settings.")

	case errors.ErrCodeConfigInvalid, errors.ErrCodeConfigValidation:
		fail("Invalid configuration: %v", err)

	case errors.ErrCodeDevicePermissionDenied:
		fail("Camera access was denied")
		hint("Allow camera access and try again.")

	case errors.ErrCodeDeviceNotFound:
		fail("No camera found")
		hint("Connect a camera or pass --device with an available id.")

	case errors.ErrCodeDeviceInUse:
		fail("The camera is in use by another application")

	case errors.ErrCodeDeviceNotReady, errors.ErrCodeDeviceFailed:
		fail("Camera error: %v", err)

	case errors.ErrCodeNetworkUnavailable:
		fail("The backend could not be reached")
		hint("Check backend_url in lumin.yml or LUMIN_BACKEND_URL.")

	case errors.ErrCodeRemoteError:
		if status, ok := errors.RemoteStatus(err); ok {
			fail("The backend answered with status %d: %v", status, err)
		} else {
			fail("The backend reported an error: %v", err)
		}

	case errors.ErrCodeNoSession:
		fail("%v", err)

	case errors.ErrCodeUnauthenticated:
		fail("Not logged in")
		hint("Run 'lumin auth login' first.")

	default:
		fail("Error: %v", err)
	}

	if h.Verbose {
		if le, ok := errors.As(err); ok {
			fmt.Fprintf(h.Out, "\nError details:\n%s\n", le.ToJSON())
		}
	}
	return err
}
