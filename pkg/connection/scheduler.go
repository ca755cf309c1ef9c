package connection

import (
	"sync"
	"time"
)

// Scheduler runs at most one delayed task at a time. Scheduling a new task
// replaces the pending one; Cancel discards it.
type Scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
	token uint64
}

// NewScheduler creates an idle scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule runs fn after delay, replacing any pending task.
func (s *Scheduler) Schedule(delay time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.token++
	token := s.token

	s.timer = time.AfterFunc(delay, func() {
		s.mu.Lock()
		if s.token != token {
			// Cancelled or replaced after the timer fired.
			s.mu.Unlock()
			return
		}
		s.timer = nil
		s.mu.Unlock()

		fn()
	})
}

// Cancel discards the pending task. A task whose fn has already started is
// not interrupted; every later firing is suppressed.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Pending reports whether a task is waiting to run.
func (s *Scheduler) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.timer != nil
}
