// Package cleanup runs delayed, cancellable resource cleanups bound to the
// process lifetime. Shutdown either flushes pending tasks or drops them, so no
// task is left running behind the process.
package cleanup

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"
)

// ErrClosed is returned when scheduling after Shutdown.
var ErrClosed = errors.New("cleanup scheduler closed")

type task struct {
	name  string
	fn    func()
	timer *time.Timer
}

// Scheduler owns pending cleanup timers.
type Scheduler struct {
	mu     sync.Mutex
	tasks  map[uint64]*task
	nextID uint64
	closed bool
	// inflight counts scheduled tasks not yet run, cancelled or dropped.
	inflight sync.WaitGroup
}

// New creates an empty scheduler.
func New() *Scheduler {
	return &Scheduler{tasks: make(map[uint64]*task)}
}

// Schedule runs fn once after delay. The returned cancel func stops the task if
// it has not started and reports whether it did so.
func (s *Scheduler) Schedule(delay time.Duration, name string, fn func()) (cancel func() bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	s.nextID++
	id := s.nextID
	t := &task{name: name, fn: fn}
	s.tasks[id] = t
	s.inflight.Add(1)
	t.timer = time.AfterFunc(delay, func() { s.fire(id) })

	return func() bool { return s.cancel(id) }, nil
}

func (s *Scheduler) fire(id uint64) {
	s.mu.Lock()
	t, ok := s.tasks[id]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(s.tasks, id)
	s.mu.Unlock()

	defer s.inflight.Done()
	s.run(t)
}

func (s *Scheduler) cancel(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || !t.timer.Stop() {
		// Already run, or fired and about to run.
		return false
	}
	delete(s.tasks, id)
	s.inflight.Done()
	return true
}

func (s *Scheduler) run(t *task) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ERROR: cleanup task %s panicked: %v", t.name, r)
		}
	}()
	t.fn()
}

// Pending returns the number of tasks that have not started.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

// Shutdown stops accepting tasks. With flush, pending tasks run immediately;
// otherwise they are dropped. It then waits for running tasks or ctx.
func (s *Scheduler) Shutdown(ctx context.Context, flush bool) error {
	s.mu.Lock()
	s.closed = true
	pending := make([]*task, 0, len(s.tasks))
	for id, t := range s.tasks {
		// A timer that already fired is left for fire to run.
		if t.timer.Stop() {
			pending = append(pending, t)
			delete(s.tasks, id)
		}
	}
	s.mu.Unlock()

	if !flush && len(pending) > 0 {
		log.Printf("WARN: dropped %d pending cleanup tasks on shutdown", len(pending))
	}
	for _, t := range pending {
		if flush {
			s.run(t)
		}
		s.inflight.Done()
	}

	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
