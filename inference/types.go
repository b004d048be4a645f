package inference

import "errors"

// Sentinel errors splitting the adapter failure taxonomy. Transient
// service failures are retried by the pipeline; bad input surfaces as an
// image-level failure immediately.
var (
	// ErrUnavailable marks transient failures (network, service down).
	ErrUnavailable = errors.New("inference: service unavailable")
	// ErrBadInput marks permanent failures (input rejected by the model).
	ErrBadInput = errors.New("inference: malformed input")
)

// Detector class labels.
const (
	ClassAnimal  = "animal"
	ClassPerson  = "person"
	ClassVehicle = "vehicle"
)

// BBox is a normalized bounding box: x, y, width, height all in [0,1]
// relative to the image dimensions, origin top-left.
type BBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Detection is one detector result above the confidence threshold.
type Detection struct {
	Class      string  `json:"class"` // animal, person, vehicle
	BBox       BBox    `json:"bbox"`
	Confidence float64 `json:"confidence"`
}

// Prediction is one ranked species candidate from the classifier.
type Prediction struct {
	ScientificName string  `json:"scientific_name"`
	CommonName     string  `json:"common_name,omitempty"`
	Confidence     float64 `json:"confidence"`
}
