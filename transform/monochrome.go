package transform

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/disintegration/gift"

	"github.com/monolab/graybooth/util"
)

var (
	// ErrFilter is generated when the monochrome filter cannot be constructed
	ErrFilter = errors.New("transform: unable to construct monochrome filter")

	// ErrEmptyOutput is generated when the filter would produce no pixels
	ErrEmptyOutput = errors.New("transform: filter produced no output")
)

// DefaultMonochrome is pure luminance: black tint at full intensity
var DefaultMonochrome = Monochrome{Tint: color.Black, Intensity: 1}

// Monochrome desaturates an image toward a single hue
type Monochrome struct {
	// Tint is the target hue.  Black yields plain luminance (R=G=B)
	Tint color.Color

	// Intensity blends the monochrome result with the original, 1 is fully monochrome
	Intensity float64
}

// luma is the Rec. 601 luminance of normalized RGB
func luma(r, g, b float32) float32 {
	return 0.299*r + 0.587*g + 0.114*b
}

func clamp01(f float32) float32 {
	return float32(util.Clamp(float64(f), 0, 1))
}

// Filter builds the gift operator for m
func (m Monochrome) Filter() (gift.Filter, error) {
	if m.Tint == nil {
		return nil, fmt.Errorf("%w: no tint", ErrFilter)
	}
	if math.IsNaN(m.Intensity) || m.Intensity < 0 || m.Intensity > 1 {
		return nil, fmt.Errorf("%w: intensity %v outside [0, 1]", ErrFilter, m.Intensity)
	}
	tint := color.NRGBAModel.Convert(m.Tint).(color.NRGBA)
	tr, tg, tb := float32(tint.R)/255, float32(tint.G)/255, float32(tint.B)/255
	tl := luma(tr, tg, tb)
	dr, dg, db := tr-tl, tg-tl, tb-tl
	k := float32(m.Intensity)

	return gift.ColorFunc(func(r0, g0, b0, a0 float32) (r, g, b, a float32) {
		y := luma(r0, g0, b0)
		r = r0*(1-k) + clamp01(y+dr)*k
		g = g0*(1-k) + clamp01(y+dg)*k
		b = b0*(1-k) + clamp01(y+db)*k
		return r, g, b, a0
	}), nil
}

// Convert renders img through the monochrome filter into a new bitmap of the
// same size.  img is never modified.
func (m Monochrome) Convert(img image.Image) (*image.NRGBA, error) {
	filter, err := m.Filter()
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, fmt.Errorf("%w: no image", ErrEmptyOutput)
	}
	g := gift.New(filter)
	bounds := g.Bounds(img.Bounds())
	if bounds.Empty() {
		return nil, fmt.Errorf("%w: empty extent %v", ErrEmptyOutput, img.Bounds())
	}
	dst := image.NewNRGBA(bounds)
	g.Draw(dst, img)
	return dst, nil
}

// ParseHexColor parses "#rrggbb" or "rrggbb" into an opaque color
func ParseHexColor(s string) (color.Color, error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) != 6 {
		return nil, fmt.Errorf("transform: color %q is not rrggbb", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return nil, fmt.Errorf("transform: color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
