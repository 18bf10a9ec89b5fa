package job

import (
	"sync"
	"time"
)

type Job interface {
	Execute()
}

// Dispatcher owns a job queue and the workers draining it. Used for work
// that must not block a settlement response, like event publication.
type Dispatcher struct {
	queue   chan Job
	workers int

	mu      sync.Mutex
	stopped bool
}

func NewDispatcher(workers int, buffer int) *Dispatcher {
	return &Dispatcher{
		queue:   make(chan Job, buffer),
		workers: workers,
	}
}

// Dispatch enqueues a job after the given delay without blocking the caller.
func (d *Dispatcher) Dispatch(job Job, delay time.Duration) {
	go func() {
		if delay > 0 {
			<-time.After(delay)
		}
		d.enqueue(job)
	}()
}

// enqueue drops the job when the dispatcher has stopped or the queue is
// full. Everything going through here is best-effort delivery; losing an
// event must never panic or block a settlement.
func (d *Dispatcher) enqueue(job Job) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	select {
	case d.queue <- job:
	default:
	}
}

func (d *Dispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		go d.work()
	}
}

// Stop lets running workers drain what is already queued and exit. Dispatches
// racing or following Stop are dropped, not panicked on.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.stopped = true
	close(d.queue)
}

func (d *Dispatcher) work() {
	for job := range d.queue {
		job.Execute()
	}
}
