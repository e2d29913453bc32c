package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Order    uint8 // Tie-break for timers due on the same tick (lower runs first)
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

// Scheduler is a sorted timer list dispatched once per control tick
type Scheduler struct {
	list *Timer
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Schedule adds a timer to the schedule
func (s *Scheduler) Schedule(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	s.insert(t)
}

// Every registers fn to run every period ticks starting at first.
// Timers due on the same tick run in ascending order.
func (s *Scheduler) Every(first, period uint32, order uint8, fn func()) *Timer {
	t := &Timer{
		WakeTime: first,
		Order:    order,
		Handler: func(t *Timer) uint8 {
			fn()
			t.WakeTime += period
			return SF_RESCHEDULE
		},
	}
	s.Schedule(t)
	return t
}

// Cancel removes a timer if it is still pending
func (s *Scheduler) Cancel(t *Timer) bool {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	if s.list == t {
		s.list = t.Next
		t.Next = nil
		return true
	}
	for cur := s.list; cur != nil; cur = cur.Next {
		if cur.Next == t {
			cur.Next = t.Next
			t.Next = nil
			return true
		}
	}
	return false
}

// Pending returns the number of scheduled timers
func (s *Scheduler) Pending() int {
	n := 0
	for cur := s.list; cur != nil; cur = cur.Next {
		n++
	}
	return n
}

// before orders timers by wake time, then by Order
func before(a, b *Timer) bool {
	if a.WakeTime != b.WakeTime {
		return timerIsBefore(a.WakeTime, b.WakeTime)
	}
	return a.Order < b.Order
}

// insert inserts a timer in sorted order
func (s *Scheduler) insert(t *Timer) {
	if s.list == nil || before(t, s.list) {
		t.Next = s.list
		s.list = t
		return
	}

	current := s.list
	for current.Next != nil && !before(t, current.Next) {
		current = current.Next
	}

	t.Next = current.Next
	current.Next = t
}

// Dispatch runs every timer due at or before now
func (s *Scheduler) Dispatch(now uint32) {
	for {
		state := disableInterrupts()
		timer := s.list
		if timer == nil || timerIsBefore(now, timer.WakeTime) {
			restoreInterrupts(state)
			return
		}
		s.list = timer.Next
		timer.Next = nil
		restoreInterrupts(state)

		// Handlers run with interrupts enabled so encoder edges are not lost
		if timer.Handler(timer) == SF_RESCHEDULE {
			s.Schedule(timer)
		}
	}
}
