package tracking

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPTrackerPostsStatusItem(t *testing.T) {
	var mu sync.Mutex
	var received []map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var item map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &item))
		mu.Lock()
		received = append(received, item)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tracker := NewHTTPTracker(server.URL)
	err := tracker.SetStatus("wildwatch/CAM-001/IMG_1.JPG", StatusComplete, map[string]interface{}{
		"detection_count": 2,
	})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "wildwatch/CAM-001/IMG_1.JPG", received[0]["file_key"])
	assert.Equal(t, StatusComplete, received[0]["processing_status"])
	assert.EqualValues(t, 2, received[0]["detection_count"])
	assert.NotEmpty(t, received[0]["updated_at"])
}

func TestHTTPTrackerErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}))
	defer server.Close()

	tracker := NewHTTPTracker(server.URL)
	err := tracker.SetStatus("key", StatusProcessing, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
}

type countingTracker struct {
	mu    sync.Mutex
	calls int
}

func (c *countingTracker) SetStatus(key, status string, detail map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return nil
}

func (c *countingTracker) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func TestAsyncTrackerFlushesOnStop(t *testing.T) {
	inner := &countingTracker{}
	tracker := NewAsyncTracker(inner, 10)

	for i := 0; i < 5; i++ {
		require.NoError(t, tracker.SetStatus("key", StatusProcessing, nil))
	}
	tracker.Stop()

	assert.Equal(t, 5, inner.count())
}

func TestAsyncTrackerNeverBlocksCaller(t *testing.T) {
	inner := &countingTracker{}
	tracker := &AsyncTracker{
		inner:      inner,
		queue:      make(chan update, 1),
		stopChan:   make(chan struct{}),
		maxRetries: 0,
	}

	// no run loop draining; the second update must be dropped, not block
	require.NoError(t, tracker.SetStatus("a", StatusProcessing, nil))
	require.NoError(t, tracker.SetStatus("b", StatusProcessing, nil))
	assert.Len(t, tracker.queue, 1)
}
