package schedulefake

import (
	"sync"
	"time"

	"github.com/jrsteele09/ilumina-session/schedule"
)

var _ schedule.Scheduler = (*FakeScheduler)(nil)

// FakeScheduler records scheduled tasks and runs them only when told to.
type FakeScheduler struct {
	lock   sync.Mutex
	timers []*FakeTimer
}

// FakeTimer is a task recorded by FakeScheduler.
type FakeTimer struct {
	Delay   time.Duration
	f       func()
	stopped bool
	fired   bool
	owner   *FakeScheduler
}

func NewFakeScheduler() *FakeScheduler {
	return &FakeScheduler{}
}

func (s *FakeScheduler) AfterFunc(d time.Duration, f func()) schedule.Timer {
	s.lock.Lock()
	defer s.lock.Unlock()

	t := &FakeTimer{Delay: d, f: f, owner: s}
	s.timers = append(s.timers, t)
	return t
}

func (t *FakeTimer) Stop() bool {
	t.owner.lock.Lock()
	defer t.owner.lock.Unlock()

	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Active returns the timers that are neither stopped nor fired.
func (s *FakeScheduler) Active() []*FakeTimer {
	s.lock.Lock()
	defer s.lock.Unlock()

	active := make([]*FakeTimer, 0)
	for _, t := range s.timers {
		if !t.stopped && !t.fired {
			active = append(active, t)
		}
	}
	return active
}

// Scheduled returns every timer ever created, in order.
func (s *FakeScheduler) Scheduled() []*FakeTimer {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]*FakeTimer(nil), s.timers...)
}

// FireNext runs the oldest active timer on the caller's goroutine. It returns
// false when nothing is pending.
func (s *FakeScheduler) FireNext() bool {
	active := s.Active()
	if len(active) == 0 {
		return false
	}
	active[0].Fire()
	return true
}

// Fire runs the task regardless of whether it was stopped, like a runtime
// timer whose Stop lost the race with expiry.
func (t *FakeTimer) Fire() {
	t.owner.lock.Lock()
	t.fired = true
	f := t.f
	t.owner.lock.Unlock()

	f()
}
