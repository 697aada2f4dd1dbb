// Package scheduler implements haproxy's task_new/task_queue/task_delete
// task scheduler on top of github.com/robfig/cron/v3
// (cron.AddFunc/Start/Stop). A Task here is a recurring cron entry of
// the form "@every <N>ms" — a natural fit since a server's health check
// is a fixed-interval recurrence, not a one-shot alarm. The lifecycle
// controller's admission sweep does not use this package; cmd/proxycore
// drives it from a time.Ticker.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"
)

// TaskID identifies a scheduled task so it can be cancelled later.
type TaskID = cron.EntryID

// Scheduler wraps a cron.Cron instance as the process-wide task queue.
// Safe for concurrent use.
type Scheduler struct {
	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// New creates a new, unstarted Scheduler.
func New() *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
		))),
	}
}

// Start begins dispatching scheduled tasks. Safe to call once; subsequent
// calls are no-ops.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.cron.Start()
	slog.Info("scheduler started")
}

// Stop halts dispatch and waits for any in-flight task callback to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

// Queue enqueues a recurring task (task_new + task_queue): process is
// invoked every intervalMS milliseconds. intervalMS must be > 0. Returns a
// TaskID usable with Cancel.
func (s *Scheduler) Queue(intervalMS int64, process func()) (TaskID, error) {
	if intervalMS <= 0 {
		return 0, fmt.Errorf("scheduler: interval must be positive, got %dms", intervalMS)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	spec := fmt.Sprintf("@every %dms", intervalMS)
	id, err := s.cron.AddFunc(spec, process)
	if err != nil {
		return 0, fmt.Errorf("scheduler: failed to queue task: %w", err)
	}
	return id, nil
}

// Cancel removes a previously queued task (task_delete + task_free). It is
// a no-op if the task is unknown (already cancelled).
func (s *Scheduler) Cancel(id TaskID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cron.Remove(id)
}

// Len returns the number of currently scheduled tasks.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cron.Entries())
}
