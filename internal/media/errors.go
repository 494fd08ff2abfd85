package media

import (
	"errors"
	"fmt"
)

// Device error names, as reported by capture APIs.
const (
	DeviceNotReadable = "NotReadableError"
	DeviceNotAllowed  = "NotAllowedError"
	DeviceNotFound    = "NotFoundError"
	DeviceAborted     = "AbortError"
	DeviceSecurity    = "SecurityError"
)

// Transport error codes with dedicated handling.
const (
	CodePlayNotAllowed        = 0x4043
	CodeDeviceAutoRecoverFail = 0x4044
)

// ErrDeviceMissing is returned by device checks when a required device is absent.
var ErrDeviceMissing = errors.New("capture device not available")

// DeviceError is a capture failure.
type DeviceError struct {
	Name    string
	Message string
}

func (e *DeviceError) Error() string {
	if e.Message == "" {
		return e.Name
	}
	return e.Name + ": " + e.Message
}

// Describe returns the user-facing text for a device failure.
func (e *DeviceError) Describe() string {
	switch e.Name {
	case DeviceNotReadable:
		return "camera or microphone is in use by another application"
	case DeviceNotAllowed:
		return "camera or microphone permission was denied"
	case DeviceNotFound:
		return "no camera or microphone found"
	case DeviceAborted:
		return "camera or microphone could not start"
	case DeviceSecurity:
		return "camera or microphone is blocked by security settings"
	default:
		return "camera or microphone failed"
	}
}

// TransportError is a fatal error reported by the transport.
type TransportError struct {
	Code    int
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport error 0x%x: %s", e.Code, e.Message)
}

// ErrorCode extracts the transport error code from err, or 0.
func ErrorCode(err error) int {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Code
	}
	return 0
}
