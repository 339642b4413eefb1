package server_test

import (
	"go/types"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monolab/graybooth/server"
)

func TestHumanPayload(t *testing.T) {
	cases := []struct {
		hp   server.HumanPayload
		want string
	}{
		{server.HumanPayload{T: types.Bool, Bool: true}, `{"bool":true}`},
		{server.HumanPayload{T: types.Int, Int: 3}, `{"int":3}`},
		{server.HumanPayload{T: types.String, String: "idle"}, `{"str":"idle"}`},
	}
	for _, c := range cases {
		rec := httptest.NewRecorder()
		c.hp.EncodeAndRespond(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, c.want, rec.Body.String())
	}

	rec := httptest.NewRecorder()
	server.HumanPayload{T: types.Float64}.EncodeAndRespond(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestReplyWithFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o666))

	rec := httptest.NewRecorder()
	server.ReplyWithFile(rec, httptest.NewRequest(http.MethodGet, "/", nil), "a.txt", dir)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "hello", rec.Body.String())

	rec = httptest.NewRecorder()
	server.ReplyWithFile(rec, httptest.NewRequest(http.MethodGet, "/", nil), "b.txt", dir)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
