// internal/scheduler/task.go
package scheduler

import (
	"context"
	"sync"
	"time"
)

// Work is one unit of periodic work. The context carries the invocation
// deadline; implementations should return promptly once it expires.
type Work func(ctx context.Context) error

// TaskSnapshot is a point-in-time view of one task's bookkeeping.
// Timestamps are epoch seconds, durations plain seconds, zero when the
// task has not run yet.
type TaskSnapshot struct {
	Name            string  `json:"name"`
	Running         bool    `json:"running"`
	LastRun         float64 `json:"last_run"`
	NextRun         float64 `json:"next_run"`
	Interval        float64 `json:"interval"`
	BaseInterval    float64 `json:"base_interval"`
	SuccessCount    uint64  `json:"success_count"`
	ErrorCount      uint64  `json:"error_count"`
	LastError       string  `json:"last_error,omitempty"`
	AverageDuration float64 `json:"avg_duration"`
}

// task carries one registration plus its mutable bookkeeping. The
// bookkeeping is guarded by its own mutex so Status never waits on
// another task or on in-flight work.
type task struct {
	name    string
	base    time.Duration
	floor   time.Duration
	timeout time.Duration
	shrink  float64
	relax   float64
	work    Work
	urgent  func() bool // nil for fixed-cadence tasks

	mu        sync.Mutex
	current   time.Duration
	inFlight  bool
	lastRun   time.Time
	nextRun   time.Time
	successes uint64
	failures  uint64
	lastError string
	avgDur    time.Duration
}

func (t *task) interval() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

func (t *task) armed(next time.Time) {
	t.mu.Lock()
	t.nextRun = next
	t.mu.Unlock()
}

// begin marks an invocation in flight. It reports false when the
// previous invocation is still running, in which case the tick is
// skipped: no success, no failure, nothing recorded.
func (t *task) begin() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.inFlight {
		return false
	}
	t.inFlight = true
	return true
}

func (t *task) end() {
	t.mu.Lock()
	t.inFlight = false
	t.mu.Unlock()
}

// recordSuccess folds the elapsed time into the running mean and clears
// the failure message. Only successful invocations contribute to the
// average.
func (t *task) recordSuccess(elapsed time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.successes++
	t.lastRun = time.Now()
	t.lastError = ""
	t.avgDur += (elapsed - t.avgDur) / time.Duration(t.successes)
}

// recordFailure counts the failure and keeps the average untouched.
// Counters only ever grow; the message stands until the next success.
func (t *task) recordFailure(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.failures++
	t.lastRun = time.Now()
	t.lastError = err.Error()
}

// adapt moves the live interval one step: toward the floor while the
// urgency probe fires, back toward the base interval otherwise. The
// result always stays inside [floor, base].
func (t *task) adapt() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.urgent != nil && t.urgent() {
		next := time.Duration(float64(t.current) * t.shrink)
		if next < t.floor {
			next = t.floor
		}
		t.current = next
		return
	}

	next := time.Duration(float64(t.current) * t.relax)
	if next > t.base {
		next = t.base
	}
	t.current = next
}

func (t *task) snapshot() TaskSnapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := TaskSnapshot{
		Name:            t.name,
		Running:         t.inFlight,
		Interval:        t.current.Seconds(),
		BaseInterval:    t.base.Seconds(),
		SuccessCount:    t.successes,
		ErrorCount:      t.failures,
		LastError:       t.lastError,
		AverageDuration: t.avgDur.Seconds(),
	}
	if !t.lastRun.IsZero() {
		snap.LastRun = float64(t.lastRun.UnixNano()) / float64(time.Second)
	}
	if !t.nextRun.IsZero() {
		snap.NextRun = float64(t.nextRun.UnixNano()) / float64(time.Second)
	}
	return snap
}
