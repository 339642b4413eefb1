package photostore

import (
	"image"
	"image/color"
	"io"
	"time"

	"github.com/astrogo/fitsio"
)

// WriteFits streams img as an 8-bit grayscale FITS file to w, with the
// metadata as header cards.  FITS rows run bottom to top, so the image is
// written flipped vertically to display the right way up in FITS viewers.
func WriteFits(w io.Writer, img image.Image, meta Meta) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	fits, err := fitsio.Create(w)
	if err != nil {
		return err
	}
	defer fits.Close()

	im := fitsio.NewImage(8, []int{width, height})
	defer im.Close()
	cards := []fitsio.Card{
		{Name: "CAPTID", Value: meta.ID.String(), Comment: "capture identifier"},
		{Name: "DATE-OBS", Value: meta.Taken.UTC().Format(time.RFC3339), Comment: "capture time"},
		{Name: "CAMERA", Value: meta.Camera, Comment: "capture device"},
		{Name: "ORIENT", Value: meta.Orientation, Comment: "orientation as captured"},
		{Name: "DEGRADED", Value: meta.Degraded, Comment: "a processing stage was skipped"},
	}
	err = im.Header().Append(cards...)
	if err != nil {
		return err
	}

	pix := make([]byte, width*height)
	for y := 0; y < height; y++ {
		row := (height - 1 - y) * width
		for x := 0; x < width; x++ {
			pix[row+x] = color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray).Y
		}
	}
	err = im.Write(pix)
	if err != nil {
		return err
	}
	return fits.Write(im)
}
