package reload

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebouncerCollapsesRapidTriggers(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	cb := func() { calls.Add(1) }

	for i := 0; i < 5; i++ {
		d.Trigger(cb)
		time.Sleep(20 * time.Millisecond)
	}

	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Errorf("expected callback called once, got %d", got)
	}
}

func TestDebouncerStopCancelsPendingCallback(t *testing.T) {
	d := NewDebouncer(100 * time.Millisecond)

	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })

	d.Stop()

	time.Sleep(150 * time.Millisecond)

	if got := calls.Load(); got != 0 {
		t.Errorf("expected no callback after Stop, got %d", got)
	}
}
