package idset

import "testing"

func TestNextIDFillsGaps(t *testing.T) {
	s := New()
	for _, id := range []int{0, 1, 2, 5} {
		s.Insert(id)
	}

	got := s.NextID(0)
	if got != 3 {
		t.Fatalf("expected 3, got %d", got)
	}
	if !s.Has(3) {
		t.Fatal("expected 3 to be reserved after NextID")
	}
}

func TestNextIDRespectsSeed(t *testing.T) {
	s := New()
	got := s.NextID(10)
	if got != 10 {
		t.Fatalf("expected 10, got %d", got)
	}
}

func TestNextIDNeverReturnsPresentValue(t *testing.T) {
	s := New()
	seen := map[int]bool{}
	for i := 0; i < 50; i++ {
		id := s.NextID(0)
		if seen[id] {
			t.Fatalf("NextID returned duplicate id %d", id)
		}
		seen[id] = true
	}
}

func TestRemoveAllowsReuse(t *testing.T) {
	s := New()
	id := s.NextID(0)
	s.Remove(id)
	if s.Has(id) {
		t.Fatal("expected id to be removed")
	}
	got := s.NextID(0)
	if got != id {
		t.Fatalf("expected reclaimed id %d to be reused, got %d", id, got)
	}
}
