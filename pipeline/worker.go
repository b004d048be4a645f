package pipeline

import (
	"context"
	"log"
	"sync"
)

// Processor fans notifications out to a fixed pool of pipeline workers.
// The pending map deduplicates keys that are queued or in flight within
// this process; cross-process ownership is settled by the database claim.
type Processor struct {
	JobQueue     chan Notification
	Orchestrator *Orchestrator
	Wg           sync.WaitGroup
	StopChan     chan struct{}
	Pending      map[string]bool
	Mutex        sync.Mutex
}

// NewProcessor starts numWorkers goroutines consuming the queue
func NewProcessor(orch *Orchestrator, queueSize, numWorkers int) *Processor {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	if queueSize <= 0 {
		queueSize = 100
	}
	proc := &Processor{
		JobQueue:     make(chan Notification, queueSize),
		Orchestrator: orch,
		StopChan:     make(chan struct{}),
		Pending:      make(map[string]bool),
	}
	proc.Wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go proc.worker(i)
	}
	log.Printf("Started %d pipeline worker(s) with queue size %d", numWorkers, queueSize)
	return proc
}

func (p *Processor) worker(id int) {
	defer p.Wg.Done()

	log.Printf("Pipeline worker %d started", id)
	for {
		select {
		case job, ok := <-p.JobQueue:
			if !ok {
				log.Printf("Pipeline worker %d stopping: job queue closed", id)
				return
			}

			log.Printf("Worker %d: processing %s/%s", id, job.Bucket, job.Key)
			if err := p.Orchestrator.Process(context.Background(), job); err != nil {
				log.Printf("Worker %d: ERROR processing %s: %v", id, job.Key, err)
			}

			p.Mutex.Lock()
			delete(p.Pending, job.Key)
			p.Mutex.Unlock()

		case <-p.StopChan:
			log.Printf("Pipeline worker %d stopping: stop signal received", id)
			return
		}
	}
}

// QueueNotification enqueues a notification unless the same key is
// already queued or in flight. Returns true if the job was accepted.
func (p *Processor) QueueNotification(n Notification) bool {
	p.Mutex.Lock()
	if p.Pending[n.Key] {
		p.Mutex.Unlock()
		log.Printf("Skipping queue for %s: already pending", n.Key)
		return false
	}
	p.Pending[n.Key] = true
	p.Mutex.Unlock()

	select {
	case p.JobQueue <- n:
		return true
	default:
		p.Mutex.Lock()
		delete(p.Pending, n.Key)
		p.Mutex.Unlock()
		log.Printf("WARNING: pipeline queue full, dropping notification for %s", n.Key)
		return false
	}
}

// Stop signals all workers to finish and waits for them
func (p *Processor) Stop() {
	log.Println("Stopping pipeline workers...")
	close(p.StopChan)
	p.Wg.Wait()
	log.Println("All pipeline workers stopped")
}
