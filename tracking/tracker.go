package tracking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Tracking statuses mirrored to the external store. These are
// process-wide, fire-and-forget signals outside the transactional core.
const (
	StatusProcessing = "PROCESSING"
	StatusComplete   = "DETECTION_COMPLETE"
	StatusFailed     = "DETECTION_FAILED"
)

// Tracker publishes per-key processing status to an external tracking
// store. Updates are best-effort: a tracker failure must never block or
// revert a completed pipeline result.
type Tracker interface {
	SetStatus(key, status string, detail map[string]interface{}) error
}

// LogTracker writes status updates to the process log only. Used when no
// tracking endpoint is configured.
type LogTracker struct{}

func (LogTracker) SetStatus(key, status string, detail map[string]interface{}) error {
	log.Printf("tracking: %s -> %s %v", key, status, detail)
	return nil
}

// HTTPTracker publishes status updates to a remote tracking endpoint.
type HTTPTracker struct {
	Endpoint string
	Client   *http.Client
}

// NewHTTPTracker creates a tracker posting to the given endpoint
func NewHTTPTracker(endpoint string) *HTTPTracker {
	return &HTTPTracker{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetStatus puts one status item to the tracking store
func (t *HTTPTracker) SetStatus(key, status string, detail map[string]interface{}) error {
	item := map[string]interface{}{
		"file_key":          key,
		"processing_status": status,
		"updated_at":        time.Now().UTC().Format(time.RFC3339),
	}
	for k, v := range detail {
		item[k] = v
	}

	payload, err := json.Marshal(item)
	if err != nil {
		return fmt.Errorf("failed to marshal tracking update for %s: %w", key, err)
	}

	resp, err := t.Client.Post(t.Endpoint, "application/json", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to post tracking update for %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("tracking store returned %s for %s", resp.Status, key)
	}
	return nil
}
