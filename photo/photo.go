/*Package photo describes the images that flow through graybooth.

A Captured photo is produced once per shutter press from the raw bytes the
camera returns.  It carries the decoded pixels together with the orientation
flag the camera stored alongside them; the pixels themselves are never rotated
by this package.
*/
package photo

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"time"

	// decoders registered with image.Decode
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/google/uuid"
)

var (
	// ErrEmpty is generated when Decode is handed no bytes
	ErrEmpty = errors.New("photo: no image data")
)

// Orientation is the EXIF orientation flag (tag 0x0112).  It describes how the
// stored pixels must be transformed to be displayed the right way up.
type Orientation uint16

const (
	// Unspecified is reported when no orientation tag is present, it is displayed as Upright
	Unspecified Orientation = iota

	// Upright needs no transform
	Upright

	// MirrorHorizontal is mirrored left to right
	MirrorHorizontal

	// Rotate180 is upside down
	Rotate180

	// MirrorVertical is mirrored top to bottom
	MirrorVertical

	// Transpose is mirrored left to right and then rotated 270 degrees clockwise
	Transpose

	// Rotate90CW must be rotated 90 degrees clockwise to display
	Rotate90CW

	// Transverse is mirrored left to right and then rotated 90 degrees clockwise
	Transverse

	// Rotate270CW must be rotated 270 degrees clockwise (90 counter-clockwise) to display
	Rotate270CW
)

var orientationNames = [...]string{
	"unspecified",
	"upright",
	"mirror-horizontal",
	"rotate-180",
	"mirror-vertical",
	"transpose",
	"rotate-90-cw",
	"transverse",
	"rotate-270-cw",
}

// String returns a short name for the orientation
func (o Orientation) String() string {
	if int(o) < len(orientationNames) {
		return orientationNames[o]
	}
	return fmt.Sprintf("orientation(%d)", uint16(o))
}

// Valid is true for the nine defined values, Unspecified included
func (o Orientation) Valid() bool {
	return o <= Rotate270CW
}

// IsUpright is true when no transform is needed to display the pixels
func (o Orientation) IsUpright() bool {
	return o == Upright || o == Unspecified
}

// SwapsAxes is true when the displayed width is the stored height
func (o Orientation) SwapsAxes() bool {
	return o >= Transpose && o <= Rotate270CW
}

// Captured is a photo as it came off the camera
type Captured struct {
	// ID identifies the capture in logs and saved metadata
	ID uuid.UUID

	// Image holds the stored pixels
	Image image.Image

	// Orientation is the transform needed to display Image
	Orientation Orientation

	// Taken is when the capture was decoded
	Taken time.Time
}

// New wraps an already decoded image
func New(img image.Image, o Orientation) Captured {
	return Captured{
		ID:          uuid.New(),
		Image:       img,
		Orientation: o,
		Taken:       time.Now(),
	}
}

// Size returns the stored (W, H)
func (c Captured) Size() (int, int) {
	if c.Image == nil {
		return 0, 0
	}
	b := c.Image.Bounds()
	return b.Dx(), b.Dy()
}

// DisplaySize returns the (W, H) the photo has once its orientation is applied
func (c Captured) DisplaySize() (int, int) {
	w, h := c.Size()
	if c.Orientation.SwapsAxes() {
		return h, w
	}
	return w, h
}

// Decode converts raw encoded bytes from a camera into a Captured photo.
// The orientation is read from EXIF data when the bytes carry any.
func Decode(raw []byte) (Captured, error) {
	if len(raw) == 0 {
		return Captured{}, ErrEmpty
	}
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return Captured{}, fmt.Errorf("photo: decode: %w", err)
	}
	return New(img, ReadOrientation(raw)), nil
}
