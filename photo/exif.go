package photo

import (
	exif "github.com/dsoprea/go-exif/v3"
)

const orientationTag = 0x0112

// ReadOrientation extracts the orientation flag from EXIF data embedded in raw.
// Unspecified is returned when there is no EXIF block or no orientation tag.
func ReadOrientation(raw []byte) Orientation {
	rawExif, err := exif.SearchAndExtractExif(raw)
	if err != nil {
		return Unspecified
	}
	tags, _, err := exif.GetFlatExifData(rawExif, nil)
	if err != nil {
		return Unspecified
	}
	for _, tag := range tags {
		if tag.TagId != orientationTag {
			continue
		}
		var o Orientation
		switch v := tag.Value.(type) {
		case []uint16:
			if len(v) == 0 {
				return Unspecified
			}
			o = Orientation(v[0])
		case []uint32:
			if len(v) == 0 {
				return Unspecified
			}
			o = Orientation(v[0])
		default:
			return Unspecified
		}
		if !o.Valid() {
			return Unspecified
		}
		return o
	}
	return Unspecified
}
