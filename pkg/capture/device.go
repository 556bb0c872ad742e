// Package capture owns the camera: device acquisition, switching, frame
// extraction and the periodic frame loop.
package capture

import (
	"context"
	stderrors "errors"
	"image"

	"github.com/grovetools/lumin/errors"
)

// DeviceInfo describes a video input.
type DeviceInfo struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Constraints selects a device. A DeviceID wins over the other fields.
type Constraints struct {
	DeviceID   string
	FacingMode string
	Width      int
	Height     int
}

// Source enumerates and opens devices.
type Source interface {
	Devices(ctx context.Context) ([]DeviceInfo, error)
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an acquired device.
type Stream interface {
	ID() string
	// Snapshot returns the current picture. A stream that has not produced
	// a picture yet returns a zero-size image.
	Snapshot() (image.Image, error)
	Close() error
}

// Surface displays a stream, e.g. a preview pane.
type Surface interface {
	Attach(s Stream)
	Detach()
}

// Errors a Source returns for the common acquisition failures. They are
// mapped to the device error codes by the Manager.
var (
	ErrPermissionDenied = stderrors.New("permission denied")
	ErrNoDevice         = stderrors.New("no such device")
	ErrDeviceBusy       = stderrors.New("device busy")
)

// ErrStartInFlight is returned when Start or Switch is called while another
// acquisition is still running.
var ErrStartInFlight = errors.New(errors.ErrCodeDeviceInUse, "camera start already in progress")

// deviceError maps a source error to the device error taxonomy.
func deviceError(err error, device string) error {
	if err == nil {
		return nil
	}
	if errors.IsDevice(err) {
		return err
	}
	switch {
	case stderrors.Is(err, ErrPermissionDenied):
		return errors.DeviceError(errors.ErrCodeDevicePermissionDenied, device, err)
	case stderrors.Is(err, ErrNoDevice):
		return errors.DeviceError(errors.ErrCodeDeviceNotFound, device, err)
	case stderrors.Is(err, ErrDeviceBusy):
		return errors.DeviceError(errors.ErrCodeDeviceInUse, device, err)
	default:
		return errors.DeviceError(errors.ErrCodeDeviceFailed, device, err)
	}
}
