/*Package camera describes the cameras graybooth can take pictures with and
the capture session that coordinates them.

A Device is the minimal interface to a camera: it can be opened, closed, and
asked for one encoded frame.  A Session attaches one Device as its input and a
PhotoOutput which issues capture requests, one at a time, and reports their
completion through a callback.

Two devices are provided:
	DirDevice  cycles through image files in a folder, a simulated camera
	HTTPDevice fetches a frame from a remote camera server over HTTP
*/
package camera

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNoDevice is generated when no camera is available
	ErrNoDevice = errors.New("camera: no camera available")

	// ErrAttachInput is generated when the session cannot add the device as input
	ErrAttachInput = errors.New("camera: cannot add input to session")

	// ErrAttachOutput is generated when the session cannot add the photo output
	ErrAttachOutput = errors.New("camera: cannot add output to session")

	// ErrNotRunning is generated when a capture is requested of a stopped session
	ErrNotRunning = errors.New("camera: session is not running")

	// ErrCaptureInFlight is generated when a capture is requested while one is already pending
	ErrCaptureInFlight = errors.New("camera: capture already in flight")

	// ErrNoFrames is generated when a DirDevice folder holds no images
	ErrNoFrames = errors.New("camera: no image files in folder")

	// ErrFrameTooLarge is generated when a remote frame exceeds the size limit
	ErrFrameTooLarge = errors.New("camera: frame too large")
)

// Device describes a minimal camera interface with only the basics
type Device interface {
	// Name is a human readable identifier for logs
	Name() string

	// Open prepares the camera for capture.  It is called when the device is
	// attached to a session
	Open() error

	// Close releases the camera
	Close() error

	// Capture takes one picture and returns the encoded bytes, as they would
	// come off the camera (JPEG with EXIF, PNG, ...)
	Capture(context.Context) ([]byte, error)
}

// New returns the default device for a kind of camera.
//
// kind is one of "dir" (aliases "directory", "sim") or "http" (alias "remote").
// For "dir" addr is the folder of frames, for "http" the URL of a frame.
// timeout only applies to "http".
func New(kind, addr string, timeout time.Duration) (Device, error) {
	switch strings.ToLower(kind) {
	case "":
		return nil, ErrNoDevice
	case "dir", "directory", "sim":
		return &DirDevice{Dir: addr}, nil
	case "http", "remote":
		return NewHTTPDevice(addr, timeout), nil
	}
	return nil, fmt.Errorf("%w: unknown camera kind %q", ErrNoDevice, kind)
}
