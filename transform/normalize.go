// Package transform contains the two image transforms at the heart of
// graybooth, orientation normalization and monochrome conversion, and the
// Pipeline that chains them.
//
// The transforms never swallow failures; they return the error and leave the
// decision of what to show the user to the Pipeline's Policy.
package transform

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/gift"

	"github.com/monolab/graybooth/photo"
)

// DefaultMaxPixels bounds the canvas allocated by Normalize, 64 MP
const DefaultMaxPixels = 64 << 20

var (
	// ErrCanvas is generated when the canvas for a re-rendered image cannot be allocated
	ErrCanvas = errors.New("transform: unable to allocate canvas")

	// ErrOrientation is generated for orientation flags outside the EXIF range
	ErrOrientation = errors.New("transform: unsupported orientation")
)

// Normalizer re-renders photos into upright orientation
type Normalizer struct {
	// MaxPixels is the largest canvas Normalize will allocate.  Zero means DefaultMaxPixels
	MaxPixels int
}

// orientationFilter returns the gift operator which undoes o
func orientationFilter(o photo.Orientation) (gift.Filter, error) {
	switch o {
	case photo.MirrorHorizontal:
		return gift.FlipHorizontal(), nil
	case photo.Rotate180:
		return gift.Rotate180(), nil
	case photo.MirrorVertical:
		return gift.FlipVertical(), nil
	case photo.Transpose:
		return gift.Transpose(), nil
	case photo.Rotate90CW:
		// gift rotates counter-clockwise
		return gift.Rotate270(), nil
	case photo.Transverse:
		return gift.Transverse(), nil
	case photo.Rotate270CW:
		return gift.Rotate90(), nil
	}
	return nil, fmt.Errorf("%w: %v", ErrOrientation, o)
}

// Normalize returns c re-rendered so that its stored pixels are the displayed
// pixels.  Upright input is returned as-is.  On error the input is returned
// unchanged alongside the reason.
func (n Normalizer) Normalize(c photo.Captured) (photo.Captured, error) {
	if c.Orientation.IsUpright() {
		return c, nil
	}
	if c.Image == nil {
		return c, fmt.Errorf("%w: no image", ErrCanvas)
	}
	filter, err := orientationFilter(c.Orientation)
	if err != nil {
		return c, err
	}

	g := gift.New(filter)
	bounds := g.Bounds(c.Image.Bounds())
	if bounds.Empty() {
		return c, fmt.Errorf("%w: empty bounds %v", ErrCanvas, bounds)
	}
	limit := n.MaxPixels
	if limit <= 0 {
		limit = DefaultMaxPixels
	}
	if bounds.Dx()*bounds.Dy() > limit {
		return c, fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrCanvas, bounds.Dx(), bounds.Dy(), limit)
	}

	canvas := image.NewNRGBA(bounds)
	g.Draw(canvas, c.Image)
	return photo.Captured{
		ID:          c.ID,
		Image:       canvas,
		Orientation: photo.Upright,
		Taken:       c.Taken,
	}, nil
}
