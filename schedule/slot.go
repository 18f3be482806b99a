// Package schedule provides a cancellable single-shot task slot: at most one
// task is pending at any time and arming a new one supersedes the old.
package schedule

import (
	"sync"
	"time"
)

// Timer is a handle to a pending task.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Clock schedules on the runtime timer.
type Clock struct{}

var _ Scheduler = Clock{}

func (Clock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Slot owns at most one pending task.
type Slot struct {
	mu        sync.Mutex
	scheduler Scheduler
	current   Timer
	gen       uint64
}

// NewSlot returns a slot on scheduler, or on Clock when scheduler is nil.
func NewSlot(scheduler Scheduler) *Slot {
	if scheduler == nil {
		scheduler = Clock{}
	}
	return &Slot{scheduler: scheduler}
}

// Arm cancels any pending task and schedules f after d. A task that was
// superseded never runs, even when its timer had already fired.
func (s *Slot) Arm(d time.Duration, f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Stop()
	}
	s.gen++
	gen := s.gen
	s.current = s.scheduler.AfterFunc(d, func() {
		if !s.claim(gen) {
			return
		}
		f()
	})
}

// Cancel stops the pending task, if any.
func (s *Slot) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		s.current.Stop()
		s.current = nil
	}
	s.gen++
}

// Pending reports whether a task is armed and has not yet started.
func (s *Slot) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// claim marks the task of generation gen as started if it is still current.
func (s *Slot) claim(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.current == nil {
		return false
	}
	s.current = nil
	return true
}
