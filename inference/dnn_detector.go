package inference

import (
	"context"
	"fmt"
	"image"
	"log"
	"sync"

	"gocv.io/x/gocv"
)

// class indices in the MegaDetector output, 0-based
var detectorClasses = []string{ClassAnimal, ClassPerson, ClassVehicle}

// DNNDetector runs a MegaDetector-style YOLO network locally through the
// OpenCV DNN runtime. A single network handle is shared, so Detect is
// serialized with a mutex; run one detector per worker for parallelism.
type DNNDetector struct {
	net     gocv.Net
	enabled bool
	mu      sync.Mutex

	InputSize    int
	IoUThreshold float64
}

// NewDNNDetector loads the detector model. An empty model path yields a
// disabled detector whose Detect always fails permanent, letting a
// deployment run with a remote backend only.
func NewDNNDetector(modelPath string) *DNNDetector {
	if modelPath == "" {
		log.Println("detector(dnn): model path is empty, disabling local detector")
		return &DNNDetector{enabled: false}
	}

	log.Printf("detector(dnn): loading model: %s", modelPath)

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		log.Printf("detector(dnn): ERROR - ReadNet returned an empty network, check file path and integrity")
		return &DNNDetector{enabled: false}
	}

	// prefer CUDA when the build supports it
	cudaBackendErr := net.SetPreferableBackend(gocv.NetBackendCUDA)
	cudaTargetErr := net.SetPreferableTarget(gocv.NetTargetCUDA)
	if cudaBackendErr == nil && cudaTargetErr == nil {
		log.Println("detector(dnn): set backend/target to CUDA")
	} else {
		net.SetPreferableBackend(gocv.NetBackendDefault)
		net.SetPreferableTarget(gocv.NetTargetCPU)
		log.Println("detector(dnn): set backend/target to CPU (default)")
	}

	return &DNNDetector{
		net:          net,
		enabled:      true,
		InputSize:    640,
		IoUThreshold: 0.45,
	}
}

// Enabled reports whether the model loaded successfully
func (d *DNNDetector) Enabled() bool {
	return d != nil && d.enabled
}

func (d *DNNDetector) Close() {
	if d != nil && d.enabled {
		d.net.Close()
		d.enabled = false
		log.Println("detector(dnn): closed network")
	}
}

// Detect runs the network on the image and returns detections above the
// threshold with normalized bounding boxes. Overlapping boxes of the same
// class are suppressed by IoU inside the backend; downstream layers do no
// further deduplication.
func (d *DNNDetector) Detect(ctx context.Context, imageBytes []byte, threshold float64) ([]Detection, error) {
	if !d.Enabled() {
		return nil, fmt.Errorf("%w: local detector is disabled", ErrBadInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(imageBytes, gocv.IMReadColor)
	if err != nil || img.Empty() {
		return nil, fmt.Errorf("%w: failed to decode image: %v", ErrBadInput, err)
	}
	defer img.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(d.InputSize, d.InputSize),
		gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	d.net.SetInput(blob, "")
	output := d.net.Forward("")
	defer output.Close()

	detections := d.parseOutput(output, threshold)
	detections = nonMaxSuppression(detections, d.IoUThreshold)

	log.Printf("detector(dnn): %d detections above threshold %.2f", len(detections), threshold)
	return detections, nil
}

// parseOutput reads YOLO rows [cx, cy, w, h, objectness, cls...] in input
// pixel space and converts qualifying rows to normalized detections.
func (d *DNNDetector) parseOutput(output gocv.Mat, threshold float64) []Detection {
	dims := output.Size()
	if len(dims) < 3 {
		log.Printf("detector(dnn): unexpected output shape %v", dims)
		return nil
	}
	rows := dims[1]
	cols := dims[2]
	if cols < 5+len(detectorClasses) {
		log.Printf("detector(dnn): output row width %d too small", cols)
		return nil
	}

	data := output.Reshape(1, rows)
	defer data.Close()

	inputSize := float32(d.InputSize)
	var detections []Detection
	for i := 0; i < rows; i++ {
		objectness := data.GetFloatAt(i, 4)

		bestClass := -1
		bestScore := float32(0)
		for c := 0; c < len(detectorClasses); c++ {
			score := data.GetFloatAt(i, 5+c)
			if score > bestScore {
				bestScore = score
				bestClass = c
			}
		}
		confidence := float64(objectness * bestScore)
		if bestClass < 0 || confidence < threshold {
			continue
		}

		cx := data.GetFloatAt(i, 0) / inputSize
		cy := data.GetFloatAt(i, 1) / inputSize
		w := data.GetFloatAt(i, 2) / inputSize
		h := data.GetFloatAt(i, 3) / inputSize

		bbox := BBox{
			X: clamp01(float64(cx - w/2)),
			Y: clamp01(float64(cy - h/2)),
			W: clamp01(float64(w)),
			H: clamp01(float64(h)),
		}
		if bbox.X+bbox.W > 1 {
			bbox.W = 1 - bbox.X
		}
		if bbox.Y+bbox.H > 1 {
			bbox.H = 1 - bbox.Y
		}
		if bbox.W <= 0 || bbox.H <= 0 {
			continue
		}

		detections = append(detections, Detection{
			Class:      detectorClasses[bestClass],
			BBox:       bbox,
			Confidence: confidence,
		})
	}
	return detections
}

// nonMaxSuppression removes same-class boxes overlapping a kept box by
// more than the IoU threshold, keeping the highest confidence first
func nonMaxSuppression(detections []Detection, iouThreshold float64) []Detection {
	if len(detections) == 0 {
		return detections
	}

	// sort by confidence (highest first)
	for i := 0; i < len(detections)-1; i++ {
		for j := i + 1; j < len(detections); j++ {
			if detections[i].Confidence < detections[j].Confidence {
				detections[i], detections[j] = detections[j], detections[i]
			}
		}
	}

	var result []Detection
	used := make([]bool, len(detections))

	for i := 0; i < len(detections); i++ {
		if used[i] {
			continue
		}
		result = append(result, detections[i])
		used[i] = true

		for j := i + 1; j < len(detections); j++ {
			if used[j] || detections[j].Class != detections[i].Class {
				continue
			}
			if intersectionOverUnion(detections[i].BBox, detections[j].BBox) > iouThreshold {
				used[j] = true
			}
		}
	}

	return result
}

// intersectionOverUnion computes IoU between two normalized boxes
func intersectionOverUnion(a, b BBox) float64 {
	x1 := maxFloat(a.X, b.X)
	y1 := maxFloat(a.Y, b.Y)
	x2 := minFloat(a.X+a.W, b.X+b.W)
	y2 := minFloat(a.Y+a.H, b.Y+b.H)

	if x2 <= x1 || y2 <= y1 {
		return 0.0
	}

	intersection := (x2 - x1) * (y2 - y1)
	union := a.W*a.H + b.W*b.H - intersection
	if union <= 0 {
		return 0.0
	}
	return intersection / union
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
