package camera

import (
	"errors"
	"net/http"

	"github.com/monolab/graybooth/generichttp"
)

// HTTPWrapper exposes a capture session over HTTP.  The frame route bypasses
// the booth: it returns the raw bytes of a fresh capture without countdown or
// processing, which is handy to aim the camera.
type HTTPWrapper struct {
	*Session

	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a wrapper with the route table populated
func NewHTTPWrapper(s *Session) HTTPWrapper {
	w := HTTPWrapper{Session: s}
	w.RouteTable = generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodGet, Path: "/camera/name"}:    generichttp.GetString(w.name),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/camera/running"}: generichttp.GetBool(w.running),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/camera/busy"}:    generichttp.GetBool(w.busy),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/camera/frame"}:   w.GetFrame,
	}
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

func (h HTTPWrapper) name() (string, error) {
	return h.Session.InputName(), nil
}

func (h HTTPWrapper) running() (bool, error) {
	return h.Session.Running(), nil
}

func (h HTTPWrapper) busy() (bool, error) {
	return h.Session.Busy(), nil
}

// GetFrame takes a picture and returns the bytes as the camera produced them
func (h HTTPWrapper) GetFrame(w http.ResponseWriter, r *http.Request) {
	type outcome struct {
		raw []byte
		err error
	}
	done := make(chan outcome, 1)
	err := h.Session.CapturePhoto(r.Context(), func(raw []byte, err error) {
		done <- outcome{raw, err}
	})
	if errors.Is(err, ErrCaptureInFlight) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	res := <-done
	if res.err != nil {
		http.Error(w, res.err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", http.DetectContentType(res.raw))
	w.WriteHeader(http.StatusOK)
	w.Write(res.raw)
}
