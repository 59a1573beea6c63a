package runtime

import "sync"

// AsyncRuntime is the job queue the VM schedules promise reactions and
// generator resumptions on. Implementations decide when queued jobs run; the
// VM only drains them through RunUntilIdle.
type AsyncRuntime interface {
	// ScheduleMicrotask queues a job to run after the current job completes.
	ScheduleMicrotask(job func())

	// RunUntilIdle runs the jobs queued at the time of the call, in FIFO
	// order, and reports whether any ran. Jobs queued while running are left
	// for the next call.
	RunUntilIdle() bool

	// Pending returns the number of queued jobs.
	Pending() int

	// Reset drops all queued jobs.
	Reset()
}

// DefaultAsyncRuntime is a FIFO microtask queue.
type DefaultAsyncRuntime struct {
	mu         sync.Mutex
	microtasks []func()
}

// NewDefaultAsyncRuntime creates an empty queue.
func NewDefaultAsyncRuntime() *DefaultAsyncRuntime {
	return &DefaultAsyncRuntime{microtasks: make([]func(), 0, 16)}
}

func (rt *DefaultAsyncRuntime) ScheduleMicrotask(job func()) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.microtasks = append(rt.microtasks, job)
}

func (rt *DefaultAsyncRuntime) RunUntilIdle() bool {
	rt.mu.Lock()
	tasks := rt.microtasks
	rt.microtasks = make([]func(), 0, 16)
	rt.mu.Unlock()

	if len(tasks) == 0 {
		return false
	}
	for _, task := range tasks {
		task()
	}
	return true
}

func (rt *DefaultAsyncRuntime) Pending() int {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	return len(rt.microtasks)
}

func (rt *DefaultAsyncRuntime) Reset() {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.microtasks = make([]func(), 0, 16)
}
