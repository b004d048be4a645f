package media

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

const (
	// CropPadding is the fraction of the box size added on each side so
	// the classifier sees some context around the detection.
	CropPadding = 0.1

	CropJpegQuality = 95
)

// CropRegion cuts a normalized bounding box (x, y, w, h in [0,1]) out of
// the image with padding, clamped to the image boundaries, and returns it
// re-encoded as JPEG for the classifier.
func CropRegion(data []byte, x, y, w, h float64) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	bounds := img.Bounds()
	imgW := float64(bounds.Dx())
	imgH := float64(bounds.Dy())

	px := x * imgW
	py := y * imgH
	pw := w * imgW
	ph := h * imgH

	padX := pw * CropPadding
	padY := ph * CropPadding

	left := int(px - padX)
	top := int(py - padY)
	right := int(px + pw + padX)
	bottom := int(py + ph + padY)

	if left < 0 {
		left = 0
	}
	if top < 0 {
		top = 0
	}
	if right > bounds.Dx() {
		right = bounds.Dx()
	}
	if bottom > bounds.Dy() {
		bottom = bounds.Dy()
	}
	if right <= left || bottom <= top {
		return nil, fmt.Errorf("bounding box [%.3f %.3f %.3f %.3f] produces an empty crop", x, y, w, h)
	}

	cropped := imaging.Crop(img, image.Rect(left, top, right, bottom))

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, cropped, imaging.JPEG, imaging.JPEGQuality(CropJpegQuality)); err != nil {
		return nil, fmt.Errorf("failed to encode crop: %w", err)
	}
	return buf.Bytes(), nil
}
