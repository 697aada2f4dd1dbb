package scheduler

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestQueueInvokesProcessRepeatedly(t *testing.T) {
	s := New()
	s.Start()
	defer s.Stop()

	var calls atomic.Int32
	if _, err := s.Queue(20, func() { calls.Add(1) }); err != nil {
		t.Fatalf("Queue: %v", err)
	}

	time.Sleep(120 * time.Millisecond)
	if got := calls.Load(); got < 2 {
		t.Fatalf("expected at least 2 invocations, got %d", got)
	}
}

func TestCancelStopsFurtherInvocations(t *testing.T) {
	s := New()
	s.Start()
	defer s.Stop()

	var calls atomic.Int32
	id, err := s.Queue(20, func() { calls.Add(1) })
	if err != nil {
		t.Fatalf("Queue: %v", err)
	}

	time.Sleep(50 * time.Millisecond)
	s.Cancel(id)
	after := calls.Load()

	time.Sleep(80 * time.Millisecond)
	if calls.Load() > after+1 {
		t.Fatalf("expected no further invocations after cancel, got %d more", calls.Load()-after)
	}
}

func TestQueueRejectsNonPositiveInterval(t *testing.T) {
	s := New()
	if _, err := s.Queue(0, func() {}); err == nil {
		t.Fatal("expected error for zero interval")
	}
	if _, err := s.Queue(-5, func() {}); err == nil {
		t.Fatal("expected error for negative interval")
	}
}

func TestLenReflectsQueuedTasks(t *testing.T) {
	s := New()
	if s.Len() != 0 {
		t.Fatalf("expected empty scheduler, got %d", s.Len())
	}
	id, _ := s.Queue(1000, func() {})
	if s.Len() != 1 {
		t.Fatalf("expected 1 task queued, got %d", s.Len())
	}
	s.Cancel(id)
	if s.Len() != 0 {
		t.Fatalf("expected 0 tasks after cancel, got %d", s.Len())
	}
}
