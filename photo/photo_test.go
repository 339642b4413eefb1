package photo_test

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/monolab/graybooth/photo"
)

func solid(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 200, G: 40, B: 10, A: 255})
		}
	}
	return img
}

// exifApp1 builds a minimal little-endian APP1 segment holding only an
// orientation tag in IFD0
func exifApp1(o uint16) []byte {
	tiff := []byte{
		'I', 'I', 0x2a, 0x00, 0x08, 0x00, 0x00, 0x00, // header, IFD0 at 8
		0x01, 0x00, // one entry
		0x12, 0x01, 0x03, 0x00, 0x01, 0x00, 0x00, 0x00, byte(o), byte(o >> 8), 0x00, 0x00,
		0x00, 0x00, 0x00, 0x00, // no next IFD
	}
	payload := append([]byte("Exif\x00\x00"), tiff...)
	n := len(payload) + 2
	seg := []byte{0xff, 0xe1, byte(n >> 8), byte(n)}
	return append(seg, payload...)
}

func TestOrientationAxes(t *testing.T) {
	swaps := map[photo.Orientation]bool{
		photo.Unspecified:      false,
		photo.Upright:          false,
		photo.MirrorHorizontal: false,
		photo.Rotate180:        false,
		photo.MirrorVertical:   false,
		photo.Transpose:        true,
		photo.Rotate90CW:       true,
		photo.Transverse:       true,
		photo.Rotate270CW:      true,
	}
	for o, want := range swaps {
		assert.Equal(t, want, o.SwapsAxes(), o.String())
		assert.True(t, o.Valid())
	}
	assert.False(t, photo.Orientation(9).Valid())
	assert.Equal(t, "orientation(9)", photo.Orientation(9).String())
	assert.True(t, photo.Unspecified.IsUpright())
	assert.False(t, photo.Rotate180.IsUpright())
}

func TestDisplaySize(t *testing.T) {
	c := photo.New(solid(400, 300), photo.Rotate90CW)
	w, h := c.DisplaySize()
	assert.Equal(t, 300, w)
	assert.Equal(t, 400, h)

	c = photo.New(solid(400, 300), photo.Rotate180)
	w, h = c.DisplaySize()
	assert.Equal(t, 400, w)
	assert.Equal(t, 300, h)
}

func TestDecodePNGIsUnspecified(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, solid(8, 4)))

	c, err := photo.Decode(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, photo.Unspecified, c.Orientation)
	w, h := c.Size()
	assert.Equal(t, 8, w)
	assert.Equal(t, 4, h)
	assert.NotEqual(t, c.ID.String(), "")
}

func TestDecodeJPEGReadsOrientation(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, jpeg.Encode(buf, solid(16, 8), nil))
	jpg := buf.Bytes()

	raw := append([]byte{}, jpg[:2]...)
	raw = append(raw, exifApp1(uint16(photo.Rotate90CW))...)
	raw = append(raw, jpg[2:]...)

	c, err := photo.Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, photo.Rotate90CW, c.Orientation)
	w, h := c.DisplaySize()
	assert.Equal(t, 8, w)
	assert.Equal(t, 16, h)
}

func TestDecodeErrors(t *testing.T) {
	_, err := photo.Decode(nil)
	assert.ErrorIs(t, err, photo.ErrEmpty)

	_, err = photo.Decode([]byte("definitely not an image"))
	assert.Error(t, err)
}
