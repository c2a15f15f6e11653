package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// PhaseScheduler paces phases. At most one sequence (ticking or one-shot) is active;
// starting one cancels the previous. Callbacks run through the bound dispatch function.
type PhaseScheduler interface {
	// Bind sets the function used to run callbacks, normally the engine's queue.
	Bind(dispatch func(func()))
	// StartTicking decrements *remaining once per interval and calls onTick with the
	// new value. When it reaches zero onExpire runs once and the sequence stops.
	StartTicking(interval time.Duration, remaining *int, onTick func(int), onExpire func())
	// After runs fn once after d.
	After(d time.Duration, fn func())
	// Cancel stops the active sequence. Safe to call when nothing is active.
	Cancel()
}

// Scheduler is the clockwork-backed PhaseScheduler.
type Scheduler struct {
	clock clockwork.Clock

	mu       sync.Mutex
	dispatch func(func())
	gen      uint64
	stop     chan struct{}
}

func NewScheduler(clock clockwork.Clock) *Scheduler {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Scheduler{
		clock:    clock,
		dispatch: func(fn func()) { fn() },
	}
}

func (s *Scheduler) Bind(dispatch func(func())) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dispatch = dispatch
}

func (s *Scheduler) StartTicking(interval time.Duration, remaining *int, onTick func(int), onExpire func()) {
	gen, stop, dispatch := s.begin()

	if *remaining <= 0 {
		go dispatch(func() {
			if s.finish(gen) && onExpire != nil {
				onExpire()
			}
		})
		return
	}

	ticker := s.clock.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.Chan():
				dispatch(func() { s.tick(gen, remaining, onTick, onExpire) })
			}
		}
	}()
}

func (s *Scheduler) After(d time.Duration, fn func()) {
	gen, stop, dispatch := s.begin()

	timer := s.clock.NewTimer(d)
	go func() {
		select {
		case <-stop:
			stopAndDrainTimer(timer)
		case <-timer.Chan():
			dispatch(func() {
				if s.finish(gen) && fn != nil {
					fn()
				}
			})
		}
	}()
}

func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// tick runs on the dispatch context; stale generations are dropped.
func (s *Scheduler) tick(gen uint64, remaining *int, onTick func(int), onExpire func()) {
	if !s.current(gen) {
		return
	}
	*remaining--
	if *remaining < 0 {
		*remaining = 0
	}
	if onTick != nil {
		onTick(*remaining)
	}
	if *remaining == 0 && s.finish(gen) && onExpire != nil {
		onExpire()
	}
}

func (s *Scheduler) begin() (uint64, chan struct{}, func(func())) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	s.gen++
	s.stop = make(chan struct{})
	return s.gen, s.stop, s.dispatch
}

func (s *Scheduler) current(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil && s.gen == gen
}

// finish ends sequence gen if it is still the active one.
func (s *Scheduler) finish(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil || s.gen != gen {
		return false
	}
	s.cancelLocked()
	return true
}

func (s *Scheduler) cancelLocked() {
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.gen++
}

func stopAndDrainTimer(timer clockwork.Timer) {
	if !timer.Stop() {
		select {
		case <-timer.Chan():
		default:
		}
	}
}
