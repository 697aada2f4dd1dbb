package backend

import "testing"

func TestNewServerStartsInMaintainChecked(t *testing.T) {
	s, err := New("web1", 1, "127.0.0.1:8080", "", DefaultTemplate())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if !s.State().Has(StateMaintain) || !s.State().Has(StateChecked) {
		t.Fatalf("expected MAINTAIN|CHECKED, got %v", s.State())
	}
	if s.IsUp() {
		t.Fatal("expected server not up before SetUp")
	}
}

func TestNewServerRejectsEmptyIDOrAddr(t *testing.T) {
	if _, err := New("", 1, "127.0.0.1:80", "", DefaultTemplate()); err == nil {
		t.Fatal("expected error for empty id")
	}
	if _, err := New("web1", 1, "", "", DefaultTemplate()); err == nil {
		t.Fatal("expected error for empty addr")
	}
}

func TestSetUpTransitionsOutOfMaintain(t *testing.T) {
	s, _ := New("web1", 1, "127.0.0.1:8080", "", DefaultTemplate())
	s.SetUp()
	if !s.IsUp() {
		t.Fatal("expected server up after SetUp")
	}
	if s.State().Has(StateMaintain) {
		t.Fatal("expected MAINTAIN cleared after SetUp")
	}
}

func TestSetDownForcesMaintain(t *testing.T) {
	s, _ := New("web1", 1, "127.0.0.1:8080", "", DefaultTemplate())
	s.SetUp()
	s.SetDown()
	if s.IsUp() {
		t.Fatal("expected server down after SetDown")
	}
	if !s.State().Has(StateMaintain) {
		t.Fatal("expected MAINTAIN set after SetDown")
	}
}

func TestIncrDecrConns(t *testing.T) {
	s, _ := New("web1", 1, "127.0.0.1:8080", "", DefaultTemplate())
	s.IncrConns()
	s.IncrConns()
	if s.ActiveConns() != 2 {
		t.Fatalf("expected 2 active conns, got %d", s.ActiveConns())
	}
	s.DecrConns()
	if s.ActiveConns() != 1 {
		t.Fatalf("expected 1 active conn, got %d", s.ActiveConns())
	}
}

func TestDecrConnsNeverGoesNegative(t *testing.T) {
	s, _ := New("web1", 1, "127.0.0.1:8080", "", DefaultTemplate())
	s.DecrConns()
	if s.ActiveConns() != 0 {
		t.Fatalf("expected 0, got %d", s.ActiveConns())
	}
}

func TestWeightReflectsTemplate(t *testing.T) {
	tmpl := DefaultTemplate()
	tmpl.Weight = 5
	s, _ := New("web1", 1, "127.0.0.1:8080", "", tmpl)
	if s.Weight() != 5 {
		t.Fatalf("expected weight 5, got %d", s.Weight())
	}
}

func TestSetCheckTaskRoundTrips(t *testing.T) {
	s, _ := New("web1", 1, "127.0.0.1:8080", "", DefaultTemplate())
	if _, ok := s.CheckTask(); ok {
		t.Fatal("expected no check task before wiring")
	}
	s.SetCheckTask(42)
	id, ok := s.CheckTask()
	if !ok || id != 42 {
		t.Fatalf("expected task id 42, got %d ok=%v", id, ok)
	}
}
