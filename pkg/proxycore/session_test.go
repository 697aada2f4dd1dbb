package proxycore

import "testing"

func TestSessionSetBackendAttachesTimeoutsAndCounters(t *testing.T) {
	r := newTestRegistry(t)
	be, _ := r.AddBackend("be")
	ParseTimeoutKeyword(be, "server", "5000")
	ParseTimeoutKeyword(be, "connect", "1000")

	sess := &Session{}
	ok := SessionSetBackend(sess, be)
	if !ok {
		t.Fatal("expected success")
	}
	if sess.BE != be {
		t.Fatal("expected session.BE set")
	}
	if sess.WriteTimeout != 5000 {
		t.Fatalf("expected WriteTimeout 5000, got %d", sess.WriteTimeout)
	}
	if sess.ConnectTimeout != 1000 {
		t.Fatalf("expected ConnectTimeout 1000, got %d", sess.ConnectTimeout)
	}
	if be.BEConn() != 1 {
		t.Fatalf("expected beconn=1, got %d", be.BEConn())
	}
}

func TestSessionSetBackendIsIdempotent(t *testing.T) {
	r := newTestRegistry(t)
	be1, _ := r.AddBackend("be1")
	be2, _ := r.AddBackend("be2")

	sess := &Session{}
	SessionSetBackend(sess, be1)
	SessionSetBackend(sess, be2)

	if sess.BE != be1 {
		t.Fatal("expected second call to be a no-op")
	}
	if be2.BEConn() != 0 {
		t.Fatalf("expected be2 beconn to stay 0, got %d", be2.BEConn())
	}
}

func TestSessionSetBackendMasksListenerAnalysers(t *testing.T) {
	r := newTestRegistry(t)
	be, _ := r.AddBackend("be") // ModeHTTP by default

	sess := &Session{ListenerAnalysers: beRequestAnalysers(ModeHTTP)}
	SessionSetBackend(sess, be)

	if sess.AnalyserMask != 0 {
		t.Fatalf("expected analyser mask fully masked off, got %d", sess.AnalyserMask)
	}
}

func TestRecordFrontendSessionIncrementsCounters(t *testing.T) {
	r := newTestRegistry(t)
	fe, _ := r.AddFrontend("fe", []string{"127.0.0.1:0"})

	fe.RecordFrontendSession()
	if fe.FEConn() != 1 {
		t.Fatalf("expected feconn=1, got %d", fe.FEConn())
	}

	fe.mu.Lock()
	rate := fe.feSessPerSec.Rate()
	fe.mu.Unlock()
	if rate != 1 {
		t.Fatalf("expected feSessPerSec rate=1, got %d", rate)
	}
}

func TestReleaseFrontendSessionDecrementsFEConn(t *testing.T) {
	r := newTestRegistry(t)
	fe, _ := r.AddFrontend("fe", []string{"127.0.0.1:0"})

	fe.RecordFrontendSession()
	fe.RecordFrontendSession()
	fe.ReleaseFrontendSession()

	if fe.FEConn() != 1 {
		t.Fatalf("expected feconn=1 after one release, got %d", fe.FEConn())
	}
}

func TestReleaseFrontendSessionFloorsAtZero(t *testing.T) {
	r := newTestRegistry(t)
	fe, _ := r.AddFrontend("fe", []string{"127.0.0.1:0"})

	fe.ReleaseFrontendSession()
	if fe.FEConn() != 0 {
		t.Fatalf("expected feconn to floor at 0, got %d", fe.FEConn())
	}
}
