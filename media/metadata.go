package media

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
)

// ErrUndecodable marks image bytes that no registered decoder accepts.
// It is the only metadata failure that aborts the pipeline; a decodable
// image with no EXIF block yields a partial Metadata instead.
var ErrUndecodable = errors.New("media: image is not decodable")

// helper to safely get a string tag, trimming null terminators
func getString(exifData *exif.Exif, tagName exif.FieldName) *string {
	tag, err := exifData.Get(tagName)
	if err != nil || tag == nil {
		return nil
	}
	val := strings.Trim(strings.TrimRight(tag.String(), "\x00"), "\"")
	if val == "" {
		return nil
	}
	return &val
}

// getAltitude reads GPSAltitude, applying the below-sea-level reference
func getAltitude(exifData *exif.Exif) *float64 {
	tag, err := exifData.Get(exif.GPSAltitude)
	if err != nil || tag == nil {
		return nil
	}
	num, den, err := tag.Rat2(0)
	if err != nil || den == 0 {
		return nil
	}
	alt := float64(num) / float64(den)

	if refTag, err := exifData.Get(exif.GPSAltitudeRef); err == nil && refTag != nil {
		if ref, err := refTag.Int(0); err == nil && ref == 1 {
			alt = -alt
		}
	}
	return &alt
}

// ExtractMetadata extracts dimensions, format, capture timestamp, GPS
// coordinates, and camera identification from raw image bytes. It is
// side-effect-free. Missing EXIF data is tolerated: the returned record
// simply omits those fields. Only bytes that cannot be decoded at all
// produce an error (ErrUndecodable).
func ExtractMetadata(data []byte) (*Metadata, error) {
	config, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	w, h := config.Width, config.Height
	meta := &Metadata{
		Width:  &w,
		Height: &h,
		Format: &format,
	}

	exifData, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		// not an error, the file might just lack EXIF data
		log.Printf("media: no EXIF data found (format: %s): %v", format, err)
		return meta, nil
	}

	meta.CameraMake = getString(exifData, exif.Make)
	meta.CameraModel = getString(exifData, exif.Model)

	if dt, err := exifData.DateTime(); err == nil {
		ts := dt.Unix()
		meta.CapturedAt = &ts
	}

	if lat, lng, err := exifData.LatLong(); err == nil {
		meta.GPSLatitude = &lat
		meta.GPSLongitude = &lng
	}
	meta.GPSAltitude = getAltitude(exifData)

	return meta, nil
}
