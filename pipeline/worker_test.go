package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fernwick/camtrapbackend/database"
)

func TestProcessorRunsQueuedJob(t *testing.T) {
	detector := &stubDetector{}
	f := newPipelineFixture(t, map[string][]byte{testKey: testJPEG(t)}, detector, &stubClassifier{})

	proc := NewProcessor(f.orch, 10, 2)
	defer proc.Stop()

	accepted := proc.QueueNotification(Notification{Bucket: "uploads", Key: testKey})
	assert.True(t, accepted)

	deadline := time.Now().Add(5 * time.Second)
	for {
		img, err := f.images.GetByKey(testKey)
		if err == nil && database.IsTerminalStatus(img.ProcessingStatus) {
			assert.Equal(t, database.StatusCompleted, img.ProcessingStatus)
			break
		}
		require.True(t, time.Now().Before(deadline), "image never reached a terminal state")
		time.Sleep(20 * time.Millisecond)
	}
}

func TestQueueNotificationDeduplicates(t *testing.T) {
	f := newPipelineFixture(t, map[string][]byte{}, &stubDetector{}, &stubClassifier{})

	// no workers are draining, so the pending map stays populated
	proc := &Processor{
		JobQueue:     make(chan Notification, 10),
		Orchestrator: f.orch,
		StopChan:     make(chan struct{}),
		Pending:      map[string]bool{},
	}

	assert.True(t, proc.QueueNotification(Notification{Bucket: "uploads", Key: testKey}))
	assert.False(t, proc.QueueNotification(Notification{Bucket: "uploads", Key: testKey}))
	assert.Len(t, proc.JobQueue, 1)
}

func TestQueueNotificationDropsWhenFull(t *testing.T) {
	f := newPipelineFixture(t, map[string][]byte{}, &stubDetector{}, &stubClassifier{})

	proc := &Processor{
		JobQueue:     make(chan Notification, 1),
		Orchestrator: f.orch,
		StopChan:     make(chan struct{}),
		Pending:      map[string]bool{},
	}

	assert.True(t, proc.QueueNotification(Notification{Bucket: "uploads", Key: "a.jpg"}))
	assert.False(t, proc.QueueNotification(Notification{Bucket: "uploads", Key: "b.jpg"}))

	// a dropped key must not stay marked pending
	assert.False(t, proc.Pending["b.jpg"])
}
