package clock

import "testing"

func TestTickAddEternity(t *testing.T) {
	if got := TickAdd(TickEternity, 500); got != TickEternity {
		t.Fatalf("expected TickEternity to stay eternal, got %d", got)
	}
	if got := TickAdd(Tick(100), 50); got != Tick(150) {
		t.Fatalf("expected 150, got %d", got)
	}
}

func TestTickFirst(t *testing.T) {
	if got := TickFirst(Tick(10), Tick(20)); got != Tick(10) {
		t.Fatalf("expected 10, got %d", got)
	}
	if got := TickFirst(TickEternity, Tick(20)); got != Tick(20) {
		t.Fatalf("expected 20 to win over eternity, got %d", got)
	}
	if got := TickFirst(TickEternity, TickEternity); got != TickEternity {
		t.Fatalf("expected eternity, got %d", got)
	}
}

func TestTickRemain(t *testing.T) {
	if got := TickRemain(Tick(100), Tick(150)); got != Tick(50) {
		t.Fatalf("expected 50, got %d", got)
	}
	if got := TickRemain(Tick(200), Tick(150)); got != 0 {
		t.Fatalf("expected 0 once expired, got %d", got)
	}
	if got := TickRemain(Tick(200), TickEternity); got != TickEternity {
		t.Fatalf("expected eternity to never remain bounded, got %d", got)
	}
}

func TestFreeze(t *testing.T) {
	Freeze(Tick(12345))
	defer Freeze(0)

	if got := Now(); got != Tick(12345) {
		t.Fatalf("expected frozen tick 12345, got %d", got)
	}
}
