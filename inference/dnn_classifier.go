package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"log"
	"math"
	"os"
	"sort"
	"sync"

	"gocv.io/x/gocv"
)

// TopK is the number of ranked species candidates returned per crop.
const TopK = 5

// taxonomyEntry maps one classifier output index to a species.
type taxonomyEntry struct {
	ScientificName string `json:"scientific_name"`
	CommonName     string `json:"common_name"`
}

// DNNClassifier runs a species classification network locally through the
// OpenCV DNN runtime, with a JSON taxonomy file mapping class indices to
// species names.
type DNNClassifier struct {
	net      gocv.Net
	enabled  bool
	taxonomy map[string]taxonomyEntry
	mu       sync.Mutex

	InputSize int
}

// NewDNNClassifier loads the classifier model and its taxonomy mapping.
// An empty model path yields a disabled classifier.
func NewDNNClassifier(modelPath, taxonomyPath string) *DNNClassifier {
	if modelPath == "" {
		log.Println("classifier(dnn): model path is empty, disabling local classifier")
		return &DNNClassifier{enabled: false}
	}

	log.Printf("classifier(dnn): loading model: %s", modelPath)

	net := gocv.ReadNet(modelPath, "")
	if net.Empty() {
		log.Printf("classifier(dnn): ERROR - ReadNet returned an empty network, check file path and integrity")
		return &DNNClassifier{enabled: false}
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	taxonomy := map[string]taxonomyEntry{}
	if taxonomyPath != "" {
		raw, err := os.ReadFile(taxonomyPath)
		if err != nil {
			log.Printf("classifier(dnn): WARNING - failed to read taxonomy file %s: %v", taxonomyPath, err)
		} else if err := json.Unmarshal(raw, &taxonomy); err != nil {
			log.Printf("classifier(dnn): WARNING - failed to parse taxonomy file %s: %v", taxonomyPath, err)
			taxonomy = map[string]taxonomyEntry{}
		} else {
			log.Printf("classifier(dnn): loaded taxonomy for %d classes", len(taxonomy))
		}
	}

	return &DNNClassifier{
		net:       net,
		enabled:   true,
		taxonomy:  taxonomy,
		InputSize: 224,
	}
}

// Enabled reports whether the model loaded successfully
func (c *DNNClassifier) Enabled() bool {
	return c != nil && c.enabled
}

func (c *DNNClassifier) Close() {
	if c != nil && c.enabled {
		c.net.Close()
		c.enabled = false
		log.Println("classifier(dnn): closed network")
	}
}

// Classify runs the network on a cropped animal region and returns up to
// TopK species candidates above the threshold, ranked by confidence
// descending. An empty result means no candidate cleared the threshold.
func (c *DNNClassifier) Classify(ctx context.Context, crop []byte, threshold float64) ([]Prediction, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("%w: local classifier is disabled", ErrBadInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, err := gocv.IMDecode(crop, gocv.IMReadColor)
	if err != nil || img.Empty() {
		return nil, fmt.Errorf("%w: failed to decode crop: %v", ErrBadInput, err)
	}
	defer img.Close()

	c.mu.Lock()
	defer c.mu.Unlock()

	// ImageNet-style normalization baked into the exported model; here we
	// only scale to [0,1] and subtract the channel means
	blob := gocv.BlobFromImage(img, 1.0/255.0, image.Pt(c.InputSize, c.InputSize),
		gocv.NewScalar(0.485*255, 0.456*255, 0.406*255, 0), true, false)
	defer blob.Close()

	c.net.SetInput(blob, "")
	output := c.net.Forward("")
	defer output.Close()

	flat := output.Reshape(1, 1)
	defer flat.Close()

	numClasses := flat.Cols()
	logits := make([]float64, numClasses)
	for i := 0; i < numClasses; i++ {
		logits[i] = float64(flat.GetFloatAt(0, i))
	}
	probs := softmax(logits)

	indices := make([]int, numClasses)
	for i := range indices {
		indices[i] = i
	}
	sort.Slice(indices, func(a, b int) bool { return probs[indices[a]] > probs[indices[b]] })

	var predictions []Prediction
	for _, idx := range indices {
		if len(predictions) >= TopK {
			break
		}
		if probs[idx] < threshold {
			break // sorted descending, nothing further qualifies
		}
		entry, ok := c.taxonomy[fmt.Sprintf("%d", idx)]
		if !ok {
			entry = taxonomyEntry{ScientificName: fmt.Sprintf("Unknown_%d", idx), CommonName: "Unknown"}
		}
		predictions = append(predictions, Prediction{
			ScientificName: entry.ScientificName,
			CommonName:     entry.CommonName,
			Confidence:     probs[idx],
		})
	}

	if len(predictions) == 0 {
		log.Printf("classifier(dnn): no predictions above threshold %.2f", threshold)
	}
	return predictions, nil
}

func softmax(logits []float64) []float64 {
	maxLogit := math.Inf(-1)
	for _, v := range logits {
		if v > maxLogit {
			maxLogit = v
		}
	}
	var sum float64
	out := make([]float64, len(logits))
	for i, v := range logits {
		out[i] = math.Exp(v - maxLogit)
		sum += out[i]
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
