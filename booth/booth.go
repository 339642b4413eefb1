/*Package booth sequences one photo from shutter press to displayed result.

A Booth moves through five states:

	Idle -> CountingDown -> Capturing -> Processing -> Displaying -> Idle

Shutter starts a countdown from Idle and is refused in every other state, so
at most one capture is ever in flight.  When the countdown reaches zero the
booth asks the camera for one photo; the completion runs the transform
pipeline, hands the result to the photo library without waiting for it, and
holds the result for display until Finish.
*/
package booth

import (
	"context"
	"errors"
	"image"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/monolab/graybooth/camera"
	"github.com/monolab/graybooth/photo"
	"github.com/monolab/graybooth/photostore"
	"github.com/monolab/graybooth/transform"
)

var (
	// ErrBusy is generated by Shutter outside of Idle
	ErrBusy = errors.New("booth: a photo is already in progress")

	// ErrNotDisplaying is generated by Finish when there is no result on display
	ErrNotDisplaying = errors.New("booth: no result on display")

	// ErrClosed is generated by Shutter once the booth has been closed
	ErrClosed = errors.New("booth: closed")
)

// State is a step of the capture-to-result flow
type State int

const (
	// Idle waits for the shutter
	Idle State = iota

	// CountingDown ticks toward the capture
	CountingDown

	// Capturing waits for the camera
	Capturing

	// Processing runs the transform pipeline
	Processing

	// Displaying holds the result until Finish
	Displaying
)

var stateNames = [...]string{"idle", "counting-down", "capturing", "processing", "displaying"}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}

// Event is sent to the listener on every transition and countdown tick
type Event struct {
	// State is the state entered, or the current state for a tick
	State State

	// Remaining is the countdown value, only meaningful while CountingDown
	Remaining int

	// CaptureID identifies the photo once it has been captured
	CaptureID uuid.UUID

	// Err is set when the booth returned to Idle because something failed
	Err error
}

// Capturer issues capture requests, *camera.Session satisfies it
type Capturer interface {
	CapturePhoto(context.Context, camera.CaptureHandler) error
	InputName() string
}

// Saver persists results without blocking, *photostore.Library satisfies it
type Saver interface {
	SaveAsync(image.Image, photostore.Meta, func(string, error))
}

// Config holds the countdown settings
type Config struct {
	// Steps is the countdown start value
	Steps int

	// Interval is the time between countdown ticks
	Interval time.Duration
}

// DefaultConfig is a 3-2-1 countdown, one second per step
var DefaultConfig = Config{Steps: 3, Interval: time.Second}

// Booth owns the state of the capture flow
type Booth struct {
	cam  Capturer
	lib  Saver
	pipe transform.Pipeline
	cfg  Config
	log  logrus.FieldLogger

	ctx    context.Context
	cancel context.CancelFunc

	mu        sync.Mutex
	state     State
	remaining int
	stop      chan struct{}
	result    *transform.Result
	onEvent   func(Event)
	closed    bool
}

// New returns an idle booth.  lib may be nil to skip saving, log may be nil
// to discard logs.
func New(cam Capturer, lib Saver, pipe transform.Pipeline, cfg Config, log logrus.FieldLogger) *Booth {
	if cfg.Steps < 0 {
		cfg.Steps = 0
	}
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultConfig.Interval
	}
	if log == nil {
		l := logrus.New()
		l.Out = io.Discard
		log = l
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Booth{
		cam:    cam,
		lib:    lib,
		pipe:   pipe,
		cfg:    cfg,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
}

// OnEvent installs the listener.  It is called from whichever goroutine made
// the transition and must not block for long.
func (b *Booth) OnEvent(fn func(Event)) {
	b.mu.Lock()
	b.onEvent = fn
	b.mu.Unlock()
}

func (b *Booth) emit(ev Event) {
	b.mu.Lock()
	fn := b.onEvent
	b.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

// State returns the current state
func (b *Booth) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Remaining returns the countdown value, zero outside of CountingDown
func (b *Booth) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != CountingDown {
		return 0
	}
	return b.remaining
}

// Result returns the result on display
func (b *Booth) Result() (transform.Result, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state != Displaying || b.result == nil {
		return transform.Result{}, false
	}
	return *b.result, true
}

// Shutter starts the countdown.  Outside of Idle nothing happens and ErrBusy
// is returned, after Close ErrClosed.
func (b *Booth) Shutter() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	if b.state != Idle {
		b.mu.Unlock()
		return ErrBusy
	}
	if b.cfg.Steps == 0 {
		b.state = Capturing
		b.mu.Unlock()
		b.emit(Event{State: Capturing})
		b.capture()
		return nil
	}
	b.state = CountingDown
	b.remaining = b.cfg.Steps
	stop := make(chan struct{})
	b.stop = stop
	b.mu.Unlock()

	b.log.WithField("steps", b.cfg.Steps).Debug("countdown started")
	b.emit(Event{State: CountingDown, Remaining: b.cfg.Steps})
	go b.countdown(stop)
	return nil
}

func (b *Booth) countdown(stop <-chan struct{}) {
	t := time.NewTicker(b.cfg.Interval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
		}
		b.mu.Lock()
		if b.state != CountingDown {
			b.mu.Unlock()
			return
		}
		b.remaining--
		rem := b.remaining
		if rem > 0 {
			b.mu.Unlock()
			b.emit(Event{State: CountingDown, Remaining: rem})
			continue
		}
		b.state = Capturing
		b.stop = nil
		b.mu.Unlock()
		b.emit(Event{State: Capturing})
		b.capture()
		return
	}
}

// toIdle abandons the current photo
func (b *Booth) toIdle(err error) {
	b.mu.Lock()
	b.state = Idle
	b.result = nil
	b.mu.Unlock()
	b.emit(Event{State: Idle, Err: err})
}

func (b *Booth) capture() {
	err := b.cam.CapturePhoto(b.ctx, b.process)
	if err != nil {
		b.log.WithError(err).Error("unable to request capture")
		b.toIdle(err)
	}
}

// process is the capture completion
func (b *Booth) process(raw []byte, err error) {
	b.mu.Lock()
	b.state = Processing
	b.mu.Unlock()
	b.emit(Event{State: Processing})

	if err != nil {
		b.log.WithError(err).Error("error capturing photo")
		b.toIdle(err)
		return
	}
	c, err := photo.Decode(raw)
	if err != nil {
		b.log.WithError(err).Error("unable to decode captured photo")
		b.toIdle(err)
		return
	}
	log := b.log.WithFields(logrus.Fields{
		"capture":     c.ID,
		"orientation": c.Orientation,
	})

	res, err := b.pipe.Run(c)
	if err != nil {
		log.WithError(err).Error("processing failed")
		b.toIdle(err)
		return
	}
	for _, f := range res.Failures {
		log.WithError(f.Err).WithField("stage", f.Stage).Warn("stage skipped, passing image through")
	}

	b.save(res, log)

	b.mu.Lock()
	b.state = Displaying
	b.result = &res
	b.mu.Unlock()
	log.Info("photo ready")
	b.emit(Event{State: Displaying, CaptureID: c.ID})
}

// save hands the result to the library; the outcome is only logged
func (b *Booth) save(res transform.Result, log logrus.FieldLogger) {
	if b.lib == nil {
		return
	}
	meta := photostore.Meta{
		ID:          res.Captured.ID,
		Taken:       res.Captured.Taken,
		Camera:      b.cam.InputName(),
		Orientation: res.Captured.Orientation.String(),
		Degraded:    res.Degraded(),
	}
	b.lib.SaveAsync(res.Output, meta, func(fn string, err error) {
		switch {
		case errors.Is(err, photostore.ErrDisabled):
			log.Debug("photo library disabled, not saved")
		case err != nil:
			log.WithError(err).Error("error saving photo")
		default:
			log.WithField("path", fn).Info("photo saved")
		}
	})
}

// Finish drops the displayed result and returns to Idle
func (b *Booth) Finish() error {
	b.mu.Lock()
	if b.state != Displaying {
		b.mu.Unlock()
		return ErrNotDisplaying
	}
	b.state = Idle
	b.result = nil
	b.mu.Unlock()
	b.emit(Event{State: Idle})
	return nil
}

// Close stops a running countdown and cancels a pending capture.  The booth
// cannot take further photos once closed.
func (b *Booth) Close() {
	b.cancel()
	b.mu.Lock()
	b.closed = true
	if b.stop != nil {
		close(b.stop)
		b.stop = nil
	}
	wasCounting := b.state == CountingDown
	if wasCounting {
		b.state = Idle
	}
	b.mu.Unlock()
	if wasCounting {
		b.emit(Event{State: Idle, Err: context.Canceled})
	}
}
