// Package mletimer multiplexes millisecond-resolution one-shot timers over
// a single hardware alarm. All of it runs on the dispatch goroutine; there
// is no internal locking.
package mletimer

// Handler is invoked when a [Timer] fires.  It runs on the single dispatch
// goroutine and may re-arm itself or any other timer.
type Handler func()

// Timer is a single scheduled callback.  Callers treat the zero value as
// "not scheduled" and must not mutate fields directly after [Service.Add].
type Timer struct {
	t0      uint32
	dt      uint32
	handler Handler

	scheduled bool
}

// NewTimer creates an unscheduled timer bound to handler.
func NewTimer(handler Handler) *Timer {
	return &Timer{handler: handler}
}

// FireTime returns t0+dt, the wrap-aware millisecond tick at which the
// timer is due.
func (t *Timer) FireTime() uint32 {
	return t.t0 + t.dt
}

// timeABeforeB compares two wrap-aware millisecond ticks:
// (a-b) as a signed 32-bit delta is negative iff a is before b.
func timeABeforeB(a, b uint32) bool {
	return int32(a-b) < 0
}

// Service is the ordered list of scheduled timers backing a single
// simulated hardware alarm.  It is not safe for concurrent use; callers run
// it from a single dispatch goroutine.
type Service struct {
	// now returns the current millisecond tick; overridden in tests.
	now func() uint32

	// armAlarm reprograms the (simulated) hardware alarm to fire at the
	// given tick.  nil means "no timer pending".
	armAlarm func(fireTime *uint32)

	timers []*Timer
}

// NewService creates a timer service. now must return a monotonically
// increasing millisecond tick (wrap is fine, see timeABeforeB). armAlarm,
// if non-nil, is invoked every time the earliest pending fire time changes.
func NewService(now func() uint32, armAlarm func(fireTime *uint32)) *Service {
	return &Service{now: now, armAlarm: armAlarm}
}

// Add schedules t to fire after dt milliseconds from now, inserting it into
// the list ordered by ascending fire time, then reprograms the alarm if t
// became the new head.
func (s *Service) Add(t *Timer, dt uint32) {
	s.remove(t)

	t.t0 = s.now()
	t.dt = dt
	t.scheduled = true

	fireTime := t.FireTime()
	idx := len(s.timers)
	for i, other := range s.timers {
		if timeABeforeB(fireTime, other.FireTime()) {
			idx = i
			break
		}
	}

	s.timers = append(s.timers, nil)
	copy(s.timers[idx+1:], s.timers[idx:])
	s.timers[idx] = t

	if idx == 0 {
		s.reprogram()
	}
}

// Remove unschedules t if it is pending. A timer already popped off the
// list for firing (including by its own handler calling Remove on itself)
// is a no-op here: a removed timer is never invoked again within the same
// fire sweep.
func (s *Service) Remove(t *Timer) {
	s.remove(t)
}

func (s *Service) remove(t *Timer) {
	if !t.scheduled {
		return
	}

	wasHead := len(s.timers) > 0 && s.timers[0] == t
	for i, other := range s.timers {
		if other == t {
			s.timers = append(s.timers[:i], s.timers[i+1:]...)
			break
		}
	}
	t.scheduled = false

	if wasHead {
		s.reprogram()
	}
}

func (s *Service) reprogram() {
	if s.armAlarm == nil {
		return
	}
	if len(s.timers) == 0 {
		s.armAlarm(nil)
		return
	}
	ft := s.timers[0].FireTime()
	s.armAlarm(&ft)
}

// FireTimers is the alarm callback: it repeatedly pops and invokes any
// timer whose fire time has passed, in non-decreasing fire-time order with
// ties broken by original insertion order, then reprograms the alarm to
// the new head. Handlers may re-arm themselves or other timers from inside
// the callback.
func (s *Service) FireTimers() {
	now := s.now()

	for len(s.timers) > 0 {
		head := s.timers[0]
		if timeABeforeB(now, head.FireTime()) {
			break
		}

		s.timers = s.timers[1:]
		head.scheduled = false

		head.handler()
	}

	s.reprogram()
}

// Len reports the number of currently scheduled timers, for tests and
// diagnostics.
func (s *Service) Len() int {
	return len(s.timers)
}
