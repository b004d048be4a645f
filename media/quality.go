package media

import (
	"bytes"
	"fmt"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// qualitySampleSize caps the analysis resolution; full-resolution
	// trail camera frames carry no extra signal for these metrics.
	qualitySampleSize = 512

	// sharpnessNormalization is the Laplacian variance treated as fully
	// sharp; typical camera-trap images fall in 0-500.
	sharpnessNormalization = 500.0
)

// ComputeQuality calculates brightness, sharpness, and an overall quality
// score for an image, all in [0,1]. Brightness is the mean luma; sharpness
// is the normalized variance of the Laplacian; the overall score penalizes
// very dark or very bright images and weights sharpness higher.
func ComputeQuality(data []byte) (*Quality, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}

	gray := imaging.Grayscale(imaging.Fit(img, qualitySampleSize, qualitySampleSize, imaging.Box))
	bounds := gray.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return &Quality{Brightness: 0.5, Sharpness: 0.5, Overall: 0.5}, nil
	}

	// grayscale NRGBA stores identical R/G/B, read the red channel as luma
	luma := make([][]float64, height)
	var sum float64
	for y := 0; y < height; y++ {
		row := make([]float64, width)
		for x := 0; x < width; x++ {
			v := float64(gray.NRGBAAt(bounds.Min.X+x, bounds.Min.Y+y).R)
			row[x] = v
			sum += v
		}
		luma[y] = row
	}
	brightness := sum / float64(width*height) / 255.0

	// Laplacian variance over interior pixels
	n := float64((width - 2) * (height - 2))
	var lapSum float64
	lap := make([]float64, 0, int(n))
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			v := luma[y-1][x] + luma[y+1][x] + luma[y][x-1] + luma[y][x+1] - 4*luma[y][x]
			lap = append(lap, v)
			lapSum += v
		}
	}
	mean := lapSum / n
	var variance float64
	for _, v := range lap {
		d := v - mean
		variance += d * d
	}
	variance /= n

	sharpness := math.Min(variance/sharpnessNormalization, 1.0)
	brightnessQuality := 1.0 - math.Abs(brightness-0.5)*2
	overall := brightnessQuality*0.3 + sharpness*0.7

	return &Quality{
		Brightness: round4(brightness),
		Sharpness:  round4(sharpness),
		Overall:    round4(overall),
	}, nil
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
