package camera

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultTimeout bounds a remote capture when no timeout is configured
	DefaultTimeout = 10 * time.Second

	// DefaultMaxFrameBytes bounds the size of a remote frame when MaxBytes is not set
	DefaultMaxFrameBytes = 64 << 20
)

// HTTPDevice is a camera served by another process, for example an instrument
// server exposing GET /image?fmt=jpg.  Each capture is one GET of URL.
type HTTPDevice struct {
	// URL is the full address of the frame endpoint
	URL string

	// Client performs the requests
	Client *http.Client

	// MaxBytes is the largest frame accepted.  Zero means DefaultMaxFrameBytes
	MaxBytes int64
}

// NewHTTPDevice returns a remote camera with a client bounded by timeout
func NewHTTPDevice(addr string, timeout time.Duration) *HTTPDevice {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPDevice{URL: addr, Client: &http.Client{Timeout: timeout}}
}

// Name returns the URL
func (h *HTTPDevice) Name() string {
	return h.URL
}

// Open validates the URL; the remote is not contacted
func (h *HTTPDevice) Open() error {
	u, err := url.Parse(h.URL)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("no host in %q", h.URL)
	}
	return nil
}

// Close is a no-op, HTTP connections are pooled by the client
func (h *HTTPDevice) Close() error {
	return nil
}

// Capture GETs one frame
func (h *HTTPDevice) Capture(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("remote camera replied %s: %s", resp.Status, body)
	}
	limit := h.MaxBytes
	if limit <= 0 {
		limit = DefaultMaxFrameBytes
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(raw)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFrameTooLarge, limit)
	}
	return raw, nil
}
