package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// HTTPDetector calls a remote detection service. The service accepts the
// raw image body and a threshold query parameter and returns the JSON
// detection list; it applies the threshold itself so the contract of
// "only qualifying detections returned" holds end to end.
type HTTPDetector struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPDetector creates a remote detector adapter
func NewHTTPDetector(endpoint string) *HTTPDetector {
	return &HTTPDetector{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Detect posts the image to the remote service
func (d *HTTPDetector) Detect(ctx context.Context, image []byte, threshold float64) ([]Detection, error) {
	var detections []Detection
	if err := postInference(ctx, d.Client, d.Endpoint, image, threshold, &detections); err != nil {
		return nil, err
	}

	// defensive re-filter in case the remote service ignores the threshold
	filtered := detections[:0]
	for _, det := range detections {
		if det.Confidence >= threshold {
			filtered = append(filtered, det)
		}
	}
	return filtered, nil
}

// HTTPClassifier calls a remote species classification service.
type HTTPClassifier struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPClassifier creates a remote classifier adapter
func NewHTTPClassifier(endpoint string) *HTTPClassifier {
	return &HTTPClassifier{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Classify posts the crop to the remote service
func (c *HTTPClassifier) Classify(ctx context.Context, crop []byte, threshold float64) ([]Prediction, error) {
	var predictions []Prediction
	if err := postInference(ctx, c.Client, c.Endpoint, crop, threshold, &predictions); err != nil {
		return nil, err
	}

	filtered := predictions[:0]
	for _, p := range predictions {
		if p.Confidence >= threshold {
			filtered = append(filtered, p)
		}
	}
	if len(filtered) > TopK {
		filtered = filtered[:TopK]
	}
	return filtered, nil
}

// postInference sends image bytes and decodes the JSON response, mapping
// transport and 5xx failures to ErrUnavailable (retryable) and 4xx to
// ErrBadInput (permanent).
func postInference(ctx context.Context, client *http.Client, endpoint string, body []byte, threshold float64, out interface{}) error {
	u, err := url.Parse(endpoint)
	if err != nil {
		return fmt.Errorf("%w: invalid endpoint %s: %v", ErrBadInput, endpoint, err)
	}
	q := u.Query()
	q.Set("threshold", fmt.Sprintf("%g", threshold))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build inference request: %w", err)
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: service returned %s", ErrUnavailable, resp.Status)
	case resp.StatusCode >= 400:
		return fmt.Errorf("%w: service returned %s", ErrBadInput, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode inference response: %w", err)
	}
	return nil
}
