package routing

import "testing"

type fakeServer struct {
	id     string
	weight int
	conns  int
	up     bool
}

func (f *fakeServer) ID() string       { return f.id }
func (f *fakeServer) Weight() int      { return f.weight }
func (f *fakeServer) ActiveConns() int { return f.conns }
func (f *fakeServer) IsUp() bool       { return f.up }

func TestRoundRobinDistributesByWeight(t *testing.T) {
	s1 := &fakeServer{id: "s1", weight: 1, up: true}
	s2 := &fakeServer{id: "s2", weight: 2, up: true}
	strat := NewRoundRobinStrategy()

	counts := map[string]int{}
	for i := 0; i < 30; i++ {
		sv, err := strat.SelectServer([]ServerView{s1, s2}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		counts[sv.ID()]++
	}

	if counts["s2"] <= counts["s1"] {
		t.Fatalf("expected s2 (weight 2) to receive more picks than s1, got %v", counts)
	}
}

func TestRoundRobinSkipsDownServers(t *testing.T) {
	s1 := &fakeServer{id: "s1", weight: 1, up: false}
	s2 := &fakeServer{id: "s2", weight: 1, up: true}
	strat := NewRoundRobinStrategy()

	for i := 0; i < 5; i++ {
		sv, err := strat.SelectServer([]ServerView{s1, s2}, "")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sv.ID() != "s2" {
			t.Fatalf("expected s2, got %s", sv.ID())
		}
	}
}

func TestRoundRobinNoServersAvailable(t *testing.T) {
	strat := NewRoundRobinStrategy()
	if _, err := strat.SelectServer(nil, ""); err != ErrNoServersAvailable {
		t.Fatalf("expected ErrNoServersAvailable, got %v", err)
	}
}

func TestLeastConnectionsPicksLowestRatio(t *testing.T) {
	s1 := &fakeServer{id: "s1", weight: 1, conns: 10, up: true}
	s2 := &fakeServer{id: "s2", weight: 1, conns: 2, up: true}
	strat := NewLeastConnectionsStrategy()

	sv, err := strat.SelectServer([]ServerView{s1, s2}, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sv.ID() != "s2" {
		t.Fatalf("expected s2, got %s", sv.ID())
	}
}

func TestStickyPinsToKnownServer(t *testing.T) {
	cache := NewStickyCache(0, 0)
	defer cache.Close()
	fallback := NewRoundRobinStrategy()
	strat := NewStickyStrategy(cache, fallback)

	s1 := &fakeServer{id: "s1", weight: 1, up: true}
	s2 := &fakeServer{id: "s2", weight: 1, up: true}

	first, err := strat.SelectServer([]ServerView{s1, s2}, "cookie-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	for i := 0; i < 5; i++ {
		sv, err := strat.SelectServer([]ServerView{s1, s2}, "cookie-a")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sv.ID() != first.ID() {
			t.Fatalf("expected sticky pin to %s, got %s", first.ID(), sv.ID())
		}
	}
}

func TestStickyFallsBackWhenPinnedServerDown(t *testing.T) {
	cache := NewStickyCache(0, 0)
	defer cache.Close()
	cache.Set("cookie-a", "s1")
	fallback := NewRoundRobinStrategy()
	strat := NewStickyStrategy(cache, fallback)

	s1 := &fakeServer{id: "s1", weight: 1, up: false}
	s2 := &fakeServer{id: "s2", weight: 1, up: true}

	sv, err := strat.SelectServer([]ServerView{s1, s2}, "cookie-a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sv.ID() != "s2" {
		t.Fatalf("expected fallback to s2, got %s", sv.ID())
	}
}
