package photostore

import (
	"errors"
	"net/http"
	"path/filepath"

	"github.com/monolab/graybooth/generichttp"
	"github.com/monolab/graybooth/server"
)

// HTTPWrapper is an HTTP wrapper around a library that allows the folder,
// prefix and format to be changed on the fly.
//
// it does not implement generichttp.HTTPer, offering an Inject method allowing
// it to be injected into another HTTPer
type HTTPWrapper struct {
	*Library
}

// NewHTTPWrapper returns an HTTP wrapper around a library
func NewHTTPWrapper(l *Library) HTTPWrapper {
	return HTTPWrapper{l}
}

// GetLatest replies with the most recently saved file
func (h HTTPWrapper) GetLatest(w http.ResponseWriter, r *http.Request) {
	fn, err := h.Library.Latest()
	if errors.Is(err, ErrNothingSaved) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	server.ReplyWithFile(w, r, filepath.Base(fn), filepath.Dir(fn))
}

// Inject adds GET and POST routes for /library/root, /library/prefix,
// /library/format and /library/enabled, and GET /library/latest, to the HTTPer
func (h HTTPWrapper) Inject(other generichttp.HTTPer) {
	l := h.Library
	rt := other.RT()
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/library/root"}] = generichttp.GetString(func() (string, error) { return l.Root(), nil })
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/library/root"}] = generichttp.SetString(l.SetRoot)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/library/prefix"}] = generichttp.GetString(func() (string, error) { return l.Prefix(), nil })
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/library/prefix"}] = generichttp.SetString(l.SetPrefix)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/library/format"}] = generichttp.GetString(func() (string, error) { return l.Format(), nil })
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/library/format"}] = generichttp.SetString(l.SetFormat)
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/library/enabled"}] = generichttp.GetBool(func() (bool, error) { return l.Enabled(), nil })
	rt[generichttp.MethodPath{Method: http.MethodPost, Path: "/library/enabled"}] = generichttp.SetBool(func(b bool) error {
		l.SetEnabled(b)
		return nil
	})
	rt[generichttp.MethodPath{Method: http.MethodGet, Path: "/library/latest"}] = h.GetLatest
}
