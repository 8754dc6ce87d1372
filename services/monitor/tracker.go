package monitor

import (
	"context"
	"sync"
)

// Tracker serializes cycle execution and records the most recent
// result. The scheduler and the manual HTTP trigger both go through
// it, so two cycles can never run at the same time no matter where
// they were started from.
type Tracker struct {
	mu      sync.Mutex
	running bool
	last    *CycleResult
	monitor *Monitor
}

func NewTracker(m *Monitor) *Tracker {
	return &Tracker{monitor: m}
}

// Run executes one cycle unless one is already in flight. The second
// return value is false when the run was refused.
func (t *Tracker) Run(ctx context.Context) (CycleResult, bool) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		return CycleResult{}, false
	}
	t.running = true
	t.mu.Unlock()

	result := t.monitor.RunOnce(ctx)

	t.mu.Lock()
	t.running = false
	t.last = &result
	t.mu.Unlock()
	return result, true
}

// Last returns the most recent cycle result, if any cycle has
// completed yet.
func (t *Tracker) Last() (CycleResult, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.last == nil {
		return CycleResult{}, false
	}
	return *t.last, true
}

// Running reports whether a cycle is currently executing.
func (t *Tracker) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.running
}
