package camera

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// CaptureHandler receives the outcome of one capture request.  It is called
// exactly once, from the goroutine that performed the capture.
type CaptureHandler func(raw []byte, err error)

// PhotoOutput issues capture requests against the session input.  It allows a
// single request in flight at a time.
type PhotoOutput struct {
	inFlight atomic.Bool
	attached atomic.Bool
}

// NewPhotoOutput returns a detached photo output
func NewPhotoOutput() *PhotoOutput {
	return &PhotoOutput{}
}

// Busy is true while a capture is pending
func (o *PhotoOutput) Busy() bool {
	return o.inFlight.Load()
}

// Session coordinates one input Device with one PhotoOutput.  It is safe for
// concurrent use.
type Session struct {
	mu      sync.Mutex
	input   Device
	output  *PhotoOutput
	running bool
	log     logrus.FieldLogger
}

// NewSession returns an empty session.  A nil logger discards logs.
func NewSession(log logrus.FieldLogger) *Session {
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	return &Session{log: log}
}

// CanAddInput is true when the session has no input yet
func (s *Session) CanAddInput() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input == nil
}

// AddInput opens d and makes it the session input
func (s *Session) AddInput(d Device) error {
	if d == nil {
		return ErrNoDevice
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input != nil {
		return fmt.Errorf("%w: session already has input %s", ErrAttachInput, s.input.Name())
	}
	if err := d.Open(); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAttachInput, d.Name(), err)
	}
	s.input = d
	return nil
}

// AddOutput attaches o.  The session needs an input and no other output.
func (s *Session) AddOutput(o *PhotoOutput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if o == nil || s.input == nil || s.output != nil || o.attached.Load() {
		return ErrAttachOutput
	}
	o.attached.Store(true)
	s.output = o
	return nil
}

// Configure attaches d as input and a fresh PhotoOutput.  Errors are logged
// and returned; a partially configured session is left as is.
func (s *Session) Configure(d Device) error {
	if d == nil {
		s.log.Error("no camera available")
		return ErrNoDevice
	}
	if err := s.AddInput(d); err != nil {
		s.log.WithError(err).Error("error setting up camera input")
		return err
	}
	if err := s.AddOutput(NewPhotoOutput()); err != nil {
		s.log.WithError(err).Error("error setting up photo output")
		return err
	}
	s.log.WithField("camera", d.Name()).Info("capture session configured")
	return nil
}

// Start marks the session running on a separate goroutine and returns
// immediately.  Nothing waits for it.
func (s *Session) Start() {
	go func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.input == nil {
			s.log.Warn("capture session started without input")
			return
		}
		s.running = true
		s.log.WithField("camera", s.input.Name()).Info("capture session running")
	}()
}

// Running is true once Start has taken effect and until Stop
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Busy is true while a capture issued through the session output is pending
func (s *Session) Busy() bool {
	s.mu.Lock()
	out := s.output
	s.mu.Unlock()
	return out != nil && out.Busy()
}

// InputName returns the name of the attached device, or "" without input
func (s *Session) InputName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.input == nil {
		return ""
	}
	return s.input.Name()
}

// Stop stops the session, closes and removes the input, and removes the output
func (s *Session) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	var err error
	if s.input != nil {
		err = s.input.Close()
		s.input = nil
	}
	if s.output != nil {
		s.output.attached.Store(false)
		s.output = nil
	}
	return err
}

// CapturePhoto issues one capture request.  When the request is accepted the
// return is nil and handler is called later with the result; otherwise the
// error says why and handler is never called.
func (s *Session) CapturePhoto(ctx context.Context, handler CaptureHandler) error {
	s.mu.Lock()
	dev, out, running := s.input, s.output, s.running
	s.mu.Unlock()
	if !running || dev == nil {
		return ErrNotRunning
	}
	if out == nil {
		return ErrAttachOutput
	}
	if !out.inFlight.CompareAndSwap(false, true) {
		return ErrCaptureInFlight
	}
	go func() {
		raw, err := dev.Capture(ctx)
		out.inFlight.Store(false)
		if err != nil {
			err = fmt.Errorf("camera: capture from %s: %w", dev.Name(), err)
		}
		handler(raw, err)
	}()
	return nil
}
