package generichttp_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monolab/graybooth/generichttp"
)

func TestSubMuxSanitize(t *testing.T) {
	for in, want := range map[string]string{
		"":         "/",
		"/":        "/",
		"booth":    "/booth",
		"/booth/":  "/booth",
		"/booth/*": "/booth",
		"a/b":      "/a/b",
	} {
		assert.Equal(t, want, generichttp.SubMuxSanitize(in), in)
	}
}

func TestEndpointsAndMerge(t *testing.T) {
	nop := func(w http.ResponseWriter, r *http.Request) {}
	rt := generichttp.RouteTable{
		{Method: http.MethodPost, Path: "/shutter"}: nop,
		{Method: http.MethodGet, Path: "/state"}:    nop,
	}
	rt.Merge(generichttp.RouteTable{{Method: http.MethodGet, Path: "/camera/name"}: nop})
	assert.Equal(t, []string{"GET /camera/name", "GET /state", "POST /shutter"}, rt.Endpoints())

	rec := httptest.NewRecorder()
	generichttp.ListEndpoints(rt)(rec, httptest.NewRequest(http.MethodGet, "/endpoints", nil))
	var got []string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, rt.Endpoints(), got)
}

func TestGettersAndSetters(t *testing.T) {
	var (
		name    = "booth"
		enabled bool
	)
	rt := generichttp.RouteTable{
		{Method: http.MethodGet, Path: "/name"}:  generichttp.GetString(func() (string, error) { return name, nil }),
		{Method: http.MethodPost, Path: "/name"}: generichttp.SetString(func(s string) error { name = s; return nil }),
		{Method: http.MethodGet, Path: "/on"}:    generichttp.GetBool(func() (bool, error) { return enabled, nil }),
		{Method: http.MethodPost, Path: "/on"}:   generichttp.SetBool(func(b bool) error { enabled = b; return nil }),
		{Method: http.MethodGet, Path: "/n"}:     generichttp.GetInt(func() (int, error) { return 0, errors.New("no count") }),
	}
	mux := chi.NewRouter()
	rt.Bind(mux)

	do := func(method, path, body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest(method, path, strings.NewReader(body)))
		return rec
	}

	assert.JSONEq(t, `{"str":"booth"}`, do(http.MethodGet, "/name", "").Body.String())
	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/name", `{"str":"lobby"}`).Code)
	assert.Equal(t, "lobby", name)
	assert.Equal(t, http.StatusBadRequest, do(http.MethodPost, "/name", `{`).Code)

	assert.Equal(t, http.StatusOK, do(http.MethodPost, "/on", `{"bool":true}`).Code)
	assert.JSONEq(t, `{"bool":true}`, do(http.MethodGet, "/on", "").Body.String())

	assert.Equal(t, http.StatusInternalServerError, do(http.MethodGet, "/n", "").Code)
	assert.Equal(t, http.StatusMethodNotAllowed, do(http.MethodDelete, "/n", "").Code)
}
