package inference

import "context"

// Detector locates animals, people, and vehicles in a camera-trap image.
// Implementations must discard candidates below the threshold themselves
// so callers can rely on receiving only qualifying detections. Backends
// are swappable: a local DNN runtime, a remote service, or a test stub.
type Detector interface {
	Detect(ctx context.Context, image []byte, threshold float64) ([]Detection, error)
}

// Classifier ranks species candidates for a cropped animal region. The
// result is ordered by confidence descending, holds at most five entries,
// and is empty when no candidate clears the threshold. It is only ever
// invoked for detections of class animal.
type Classifier interface {
	Classify(ctx context.Context, crop []byte, threshold float64) ([]Prediction, error)
}
