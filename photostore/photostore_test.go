package photostore_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/astrogo/fitsio"
	"github.com/go-chi/chi"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monolab/graybooth/generichttp"
	"github.com/monolab/graybooth/photostore"
)

var taken = time.Date(2024, 10, 6, 12, 0, 0, 0, time.Local)

func gray(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x*10 + y)
			img.SetNRGBA(x, y, color.NRGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func library(t *testing.T, format string) *photostore.Library {
	t.Helper()
	l, err := photostore.New(t.TempDir(), "mono", format)
	require.NoError(t, err)
	require.NoError(t, l.Authorize())
	return l
}

func TestSaveIncrementsCounter(t *testing.T) {
	l := library(t, "png")
	meta := photostore.Meta{ID: uuid.New(), Taken: taken}

	first, err := l.Save(gray(4, 3), meta)
	require.NoError(t, err)
	second, err := l.Save(gray(4, 3), meta)
	require.NoError(t, err)

	day := filepath.Join(l.Root(), "2024-10-06")
	assert.Equal(t, filepath.Join(day, "mono000001.png"), first)
	assert.Equal(t, filepath.Join(day, "mono000002.png"), second)

	f, err := os.Open(second)
	require.NoError(t, err)
	defer f.Close()
	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 4, 3), img.Bounds())

	latest, err := l.Latest()
	require.NoError(t, err)
	assert.Equal(t, second, latest)
}

func TestCounterResumesFromFolder(t *testing.T) {
	l := library(t, "jpg")
	day := filepath.Join(l.Root(), "2024-10-06")
	require.NoError(t, os.MkdirAll(day, 0o777))
	require.NoError(t, os.WriteFile(filepath.Join(day, "mono000041.jpg"), nil, 0o666))
	require.NoError(t, os.WriteFile(filepath.Join(day, "other000099.jpg"), nil, 0o666))

	fn, err := l.Save(gray(2, 2), photostore.Meta{Taken: taken})
	require.NoError(t, err)
	assert.Equal(t, "mono000042.jpg", filepath.Base(fn))
}

func TestConcurrentSavesGetDistinctNames(t *testing.T) {
	l := library(t, "png")
	var wg sync.WaitGroup
	names := make(chan string, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		l.SaveAsync(gray(2, 2), photostore.Meta{Taken: taken}, func(fn string, err error) {
			defer wg.Done()
			assert.NoError(t, err)
			names <- fn
		})
	}
	wg.Wait()
	close(names)
	seen := map[string]bool{}
	for fn := range names {
		assert.False(t, seen[fn], fn)
		seen[fn] = true
	}
	assert.Len(t, seen, 8)
}

func TestFits(t *testing.T) {
	l := library(t, "fits")
	id := uuid.New()
	fn, err := l.Save(gray(5, 3), photostore.Meta{ID: id, Taken: taken, Camera: "sim", Orientation: "rotate-90-cw"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(fn, ".fits"))

	r, err := os.Open(fn)
	require.NoError(t, err)
	defer r.Close()
	f, err := fitsio.Open(r)
	require.NoError(t, err)
	defer f.Close()
	hdr := f.HDU(0).Header()
	assert.Equal(t, []int{5, 3}, hdr.Axes())
	assert.Equal(t, 8, hdr.Bitpix())
	card := hdr.Get("CAPTID")
	require.NotNil(t, card)
	assert.Equal(t, id.String(), card.Value)
}

func TestDisabledAndDenied(t *testing.T) {
	l := library(t, "png")
	l.SetEnabled(false)
	_, err := l.Save(gray(1, 1), photostore.Meta{})
	assert.ErrorIs(t, err, photostore.ErrDisabled)

	l.SetEnabled(true)
	// a file where the root folder should be
	blocker := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o666))
	l2, err := photostore.New(blocker, "mono", "png")
	require.NoError(t, err)
	assert.ErrorIs(t, l2.Authorize(), photostore.ErrAccessDenied)
	_, err = l2.Save(gray(1, 1), photostore.Meta{})
	assert.ErrorIs(t, err, photostore.ErrAccessDenied)

	_, err = photostore.New("", "", "")
	assert.Error(t, err)
}

func TestSetters(t *testing.T) {
	l := library(t, "png")
	assert.NoError(t, l.SetFormat("JPEG"))
	assert.Equal(t, "jpg", l.Format())
	assert.ErrorIs(t, l.SetFormat("psd"), photostore.ErrFormat)
	assert.Error(t, l.SetPrefix("a/b"))
	_, err := l.Latest()
	assert.ErrorIs(t, err, photostore.ErrNothingSaved)
}

type table struct{ rt generichttp.RouteTable }

func (t table) RT() generichttp.RouteTable { return t.rt }

func TestHTTPWrapper(t *testing.T) {
	l := library(t, "png")
	tbl := table{generichttp.RouteTable{}}
	photostore.NewHTTPWrapper(l).Inject(tbl)
	mux := chi.NewRouter()
	tbl.rt.Bind(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/library/latest")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, err = http.Post(srv.URL+"/library/prefix", "application/json", strings.NewReader(`{"str":"bw"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "bw", l.Prefix())

	_, err = l.Save(gray(3, 3), photostore.Meta{Taken: taken})
	require.NoError(t, err)
	resp, err = http.Get(srv.URL + "/library/latest")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	buf := &bytes.Buffer{}
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	_, err = png.Decode(buf)
	assert.NoError(t, err)
}
