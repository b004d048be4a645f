package tracking

import (
	"log"
	"sync"
	"time"
)

type update struct {
	key    string
	status string
	detail map[string]interface{}
}

// AsyncTracker wraps another Tracker with a bounded queue and a
// background retry loop. SetStatus never blocks the caller and never
// returns the wrapped tracker's error; failed updates are retried a few
// times and then dropped with a log line.
type AsyncTracker struct {
	inner      Tracker
	queue      chan update
	stopChan   chan struct{}
	wg         sync.WaitGroup
	maxRetries int
	retryDelay time.Duration
}

// NewAsyncTracker starts the background delivery loop
func NewAsyncTracker(inner Tracker, queueSize int) *AsyncTracker {
	if queueSize <= 0 {
		queueSize = 100
	}
	t := &AsyncTracker{
		inner:      inner,
		queue:      make(chan update, queueSize),
		stopChan:   make(chan struct{}),
		maxRetries: 3,
		retryDelay: 2 * time.Second,
	}
	t.wg.Add(1)
	go t.run()
	return t
}

// SetStatus enqueues the update; it is dropped with a warning when the
// queue is full rather than blocking the pipeline.
func (t *AsyncTracker) SetStatus(key, status string, detail map[string]interface{}) error {
	select {
	case t.queue <- update{key: key, status: status, detail: detail}:
	default:
		log.Printf("tracking: WARNING - queue full, dropping update %s -> %s", key, status)
	}
	return nil
}

func (t *AsyncTracker) run() {
	defer t.wg.Done()
	for {
		select {
		case u, ok := <-t.queue:
			if !ok {
				return
			}
			t.deliver(u)
		case <-t.stopChan:
			// drain what is already queued before exiting
			for {
				select {
				case u := <-t.queue:
					t.deliver(u)
				default:
					return
				}
			}
		}
	}
}

func (t *AsyncTracker) deliver(u update) {
	var err error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(t.retryDelay)
		}
		if err = t.inner.SetStatus(u.key, u.status, u.detail); err == nil {
			return
		}
		log.Printf("tracking: attempt %d failed for %s -> %s: %v", attempt+1, u.key, u.status, err)
	}
	log.Printf("tracking: ERROR - giving up on update %s -> %s: %v", u.key, u.status, err)
}

// Stop flushes queued updates and stops the delivery loop
func (t *AsyncTracker) Stop() {
	close(t.stopChan)
	t.wg.Wait()
}
