package core

import "testing"

func TestSchedulerOrder(t *testing.T) {
	s := NewScheduler()
	var order []string

	s.Every(1, 1, 2, func() { order = append(order, "c") })
	s.Every(1, 1, 0, func() { order = append(order, "a") })
	s.Every(1, 1, 1, func() { order = append(order, "b") })

	s.Dispatch(1)
	if len(order) != 3 || order[0] != "a" || order[1] != "b" || order[2] != "c" {
		t.Errorf("Expected a b c, got %v", order)
	}
}

func TestSchedulerPeriods(t *testing.T) {
	s := NewScheduler()
	fast, slow := 0, 0
	s.Every(1, 1, 0, func() { fast++ })
	s.Every(10, 10, 1, func() { slow++ })

	for now := uint32(1); now <= 30; now++ {
		s.Dispatch(now)
	}
	if fast != 30 || slow != 3 {
		t.Errorf("Expected 30 fast and 3 slow runs, got %d/%d", fast, slow)
	}
	if s.Pending() != 2 {
		t.Errorf("Expected 2 pending timers, got %d", s.Pending())
	}
}

func TestSchedulerWraparound(t *testing.T) {
	s := NewScheduler()
	runs := 0
	s.Every(0xFFFFFFFE, 2, 0, func() { runs++ })

	s.Dispatch(0xFFFFFFFE)
	s.Dispatch(0xFFFFFFFF)
	s.Dispatch(0)
	if runs != 2 {
		t.Errorf("Expected 2 runs across wraparound, got %d", runs)
	}
}

func TestSchedulerOneShotAndCancel(t *testing.T) {
	s := NewScheduler()
	runs := 0
	s.Schedule(&Timer{WakeTime: 5, Handler: func(*Timer) uint8 {
		runs++
		return SF_DONE
	}})
	cancelled := s.Every(3, 1, 0, func() { t.Error("Cancelled timer ran") })

	if !s.Cancel(cancelled) {
		t.Fatal("Expected Cancel to find the timer")
	}
	if s.Cancel(cancelled) {
		t.Error("Expected second Cancel to fail")
	}

	s.Dispatch(4)
	if runs != 0 {
		t.Error("Timer ran early")
	}
	s.Dispatch(6)
	s.Dispatch(7)
	if runs != 1 || s.Pending() != 0 {
		t.Errorf("Expected one run and empty schedule, got %d runs, %d pending", runs, s.Pending())
	}
}
