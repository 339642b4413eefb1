package booth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/monolab/graybooth/generichttp"
)

var contentTypes = map[imaging.Format]string{
	imaging.JPEG: "image/jpeg",
	imaging.PNG:  "image/png",
	imaging.GIF:  "image/gif",
	imaging.TIFF: "image/tiff",
	imaging.BMP:  "image/bmp",
}

// Status is the JSON reply of GET /status
type Status struct {
	State     string   `json:"state"`
	Remaining int      `json:"remaining"`
	CaptureID string   `json:"captureId,omitempty"`
	Degraded  bool     `json:"degraded"`
	Failures  []string `json:"failures,omitempty"`
}

// HTTPWrapper provides HTTP bindings on top of a Booth
type HTTPWrapper struct {
	*Booth

	// RouteTable maps method-paths to http handlers
	RouteTable generichttp.RouteTable
}

// NewHTTPWrapper returns a new HTTP wrapper with the route table pre-configured
func NewHTTPWrapper(b *Booth) HTTPWrapper {
	w := HTTPWrapper{Booth: b}
	w.RouteTable = generichttp.RouteTable{
		generichttp.MethodPath{Method: http.MethodPost, Path: "/shutter"}:  w.Shutter,
		generichttp.MethodPath{Method: http.MethodPost, Path: "/finish"}:   w.Finish,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/state"}:     generichttp.GetString(w.stateString),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/countdown"}: generichttp.GetInt(w.remaining),
		generichttp.MethodPath{Method: http.MethodGet, Path: "/status"}:    w.GetStatus,
		generichttp.MethodPath{Method: http.MethodGet, Path: "/result"}:    w.GetResult,
	}
	return w
}

// RT satisfies generichttp.HTTPer
func (h HTTPWrapper) RT() generichttp.RouteTable {
	return h.RouteTable
}

func (h HTTPWrapper) stateString() (string, error) {
	return h.Booth.State().String(), nil
}

func (h HTTPWrapper) remaining() (int, error) {
	return h.Booth.Remaining(), nil
}

// Shutter starts the countdown, replying 202, 409 if a photo is in progress or 503 once closed
func (h HTTPWrapper) Shutter(w http.ResponseWriter, r *http.Request) {
	err := h.Booth.Shutter()
	if errors.Is(err, ErrBusy) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if errors.Is(err, ErrClosed) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

// Finish dismisses the result on display, replying 409 if there is none
func (h HTTPWrapper) Finish(w http.ResponseWriter, r *http.Request) {
	err := h.Booth.Finish()
	if err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// GetStatus replies with the state, countdown and result summary as JSON
func (h HTTPWrapper) GetStatus(w http.ResponseWriter, r *http.Request) {
	st := Status{State: h.Booth.State().String(), Remaining: h.Booth.Remaining()}
	if res, ok := h.Booth.Result(); ok {
		st.CaptureID = res.Captured.ID.String()
		st.Degraded = res.Degraded()
		for _, f := range res.Failures {
			st.Failures = append(st.Failures, f.Stage+": "+f.Err.Error())
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	err := json.NewEncoder(w).Encode(st)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// GetResult sends the result on display as an image.
//
// the image format may be specified in a query parameter fmt; default to png.
// maxdim, if given, shrinks the image to fit in a maxdim x maxdim square.
func (h HTTPWrapper) GetResult(w http.ResponseWriter, r *http.Request) {
	res, ok := h.Booth.Result()
	if !ok {
		http.Error(w, ErrNotDisplaying.Error(), http.StatusNotFound)
		return
	}
	q := r.URL.Query()
	format := q.Get("fmt")
	if format == "" {
		format = "png"
	}
	ifmt, err := imaging.FormatFromExtension(format)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	img := res.Output
	if s := q.Get("maxdim"); s != "" {
		maxdim, err := strconv.Atoi(s)
		if err != nil || maxdim <= 0 {
			http.Error(w, "maxdim must be a positive integer", http.StatusBadRequest)
			return
		}
		img = imaging.Fit(img, maxdim, maxdim, imaging.Lanczos)
	}
	w.Header().Set("Content-Type", contentTypes[ifmt])
	w.WriteHeader(http.StatusOK)
	if err := imaging.Encode(w, img, ifmt); err != nil {
		// the status line is gone, the client sees a truncated body
		h.Booth.log.WithError(err).WithField("fmt", format).Warn("error sending result")
	}
}
