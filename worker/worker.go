package worker

import (
	"context"
	"log"
	"time"
)

// Job is one sweep pass. Jobs must be idempotent: the scheduler guarantees
// periodic execution, not exactly-once execution.
type Job func(ctx context.Context) error

// Worker runs a named job on a fixed interval in a background goroutine.
// The first pass fires immediately on Start, then on every tick.
type Worker struct {
	name     string
	interval time.Duration
	timeout  time.Duration
	job      Job
	stopChan chan struct{}
	running  bool
}

// New creates a new interval worker. timeout bounds a single pass; a pass
// that overruns is cancelled through its context and resumes on the next tick.
func New(name string, interval, timeout time.Duration, job Job) *Worker {
	return &Worker{
		name:     name,
		interval: interval,
		timeout:  timeout,
		job:      job,
		stopChan: make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Worker) Start() {
	if w.running {
		log.Printf("[WORKER] %s already running", w.name)
		return
	}
	w.running = true
	log.Printf("[WORKER] Starting %s (interval: %v)", w.name, w.interval)
	go w.run()
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	if !w.running {
		return
	}
	log.Printf("[WORKER] Stopping %s...", w.name)
	close(w.stopChan)
	w.running = false
}

func (w *Worker) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.pass()

	for {
		select {
		case <-ticker.C:
			w.pass()
		case <-w.stopChan:
			log.Printf("[WORKER] %s stopped", w.name)
			return
		}
	}
}

// pass executes one job run under the pass timeout
func (w *Worker) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.job(ctx); err != nil {
		log.Printf("[WORKER] %s pass failed: %v", w.name, err)
		return
	}
	log.Printf("[WORKER] %s pass completed in %v", w.name, time.Since(start).Round(time.Millisecond))
}
