// Package throttle provides an HTTP middleware which rate limits requests, returning 429 (too many requests)
package throttle

import (
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Throttle wraps a token bucket shared by every request it checks
type Throttle struct {
	lim *rate.Limiter
}

// New returns a throttle allowing one request per interval with the given burst.
// An interval <= 0 disables the throttle.
func New(interval time.Duration, burst int) *Throttle {
	if burst < 1 {
		burst = 1
	}
	if interval <= 0 {
		return &Throttle{lim: rate.NewLimiter(rate.Inf, burst)}
	}
	return &Throttle{lim: rate.NewLimiter(rate.Every(interval), burst)}
}

// Allow reports whether a request may proceed now, consuming a token if so
func (t *Throttle) Allow() bool {
	return t.lim.Allow()
}

// Check is an HTTP middleware that returns http.StatusTooManyRequests when the bucket is empty
func (t *Throttle) Check(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !t.Allow() {
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Wrap applies Check to a single handler func
func (t *Throttle) Wrap(fcn http.HandlerFunc) http.HandlerFunc {
	return t.Check(fcn).ServeHTTP
}
