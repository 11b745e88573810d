package worker

import (
	"context"
	"log"
	"time"
)

// DailyWorker runs a named job once per day at a fixed UTC hour. Unlike the
// interval Worker there is no immediate first pass; the job waits for its
// scheduled hour.
type DailyWorker struct {
	name     string
	hourUTC  int
	timeout  time.Duration
	job      Job
	stopChan chan struct{}
	running  bool

	now func() time.Time
}

// NewDaily creates a worker that fires daily at hourUTC (0-23)
func NewDaily(name string, hourUTC int, timeout time.Duration, job Job) *DailyWorker {
	return &DailyWorker{
		name:     name,
		hourUTC:  hourUTC,
		timeout:  timeout,
		job:      job,
		stopChan: make(chan struct{}),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Start begins the background worker
func (w *DailyWorker) Start() {
	if w.running {
		log.Printf("[WORKER] %s already running", w.name)
		return
	}
	w.running = true
	log.Printf("[WORKER] Starting %s (daily at %02d:00 UTC)", w.name, w.hourUTC)
	go w.run()
}

// Stop gracefully stops the worker
func (w *DailyWorker) Stop() {
	if !w.running {
		return
	}
	log.Printf("[WORKER] Stopping %s...", w.name)
	close(w.stopChan)
	w.running = false
}

func (w *DailyWorker) run() {
	for {
		wait := w.untilNextFire()
		timer := time.NewTimer(wait)

		select {
		case <-timer.C:
			w.pass()
		case <-w.stopChan:
			timer.Stop()
			log.Printf("[WORKER] %s stopped", w.name)
			return
		}
	}
}

// untilNextFire computes the delay until the next scheduled hour
func (w *DailyWorker) untilNextFire() time.Duration {
	now := w.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), w.hourUTC, 0, 0, 0, time.UTC)
	if !next.After(now) {
		next = next.Add(24 * time.Hour)
	}
	return next.Sub(now)
}

// pass executes one job run under the pass timeout
func (w *DailyWorker) pass() {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	start := time.Now()
	if err := w.job(ctx); err != nil {
		log.Printf("[WORKER] %s pass failed: %v", w.name, err)
		return
	}
	log.Printf("[WORKER] %s pass completed in %v", w.name, time.Since(start).Round(time.Millisecond))
}
