package throttle_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/monolab/graybooth/server/middleware/throttle"
)

func ok(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

func TestCheck(t *testing.T) {
	h := throttle.New(time.Hour, 2).Wrap(ok)
	codes := []int{}
	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h(rec, httptest.NewRequest(http.MethodPost, "/shutter", nil))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestDisabled(t *testing.T) {
	th := throttle.New(0, 0)
	for i := 0; i < 100; i++ {
		assert.True(t, th.Allow())
	}
}
