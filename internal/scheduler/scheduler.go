// internal/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// State is the scheduler lifecycle state reported by Start and Stop.
type State string

const (
	StateRunning State = "running"
	StateStopped State = "stopped"
)

const (
	DefaultMinInterval = 1 * time.Second
	DefaultTimeout     = 10 * time.Second
	DefaultShrink      = 0.5
	DefaultRelax       = 1.5
)

// Config tunes the scheduler. Zero fields fall back to the defaults
// above; the factors apply to every adaptive task.
type Config struct {
	MinInterval  time.Duration // floor the live interval can shrink to
	TaskTimeout  time.Duration // per-invocation work budget
	ShrinkFactor float64       // interval multiplier while urgent, 0 < f < 1
	RelaxFactor  float64       // interval multiplier while calm, f > 1
	Logger       *zap.Logger
}

// Scheduler runs named tasks on independent, self-adjusting cadences.
// Each task gets its own goroutine; invocations of the same task never
// overlap, and a failing task keeps its slot forever.
type Scheduler struct {
	cfg    Config
	logger *zap.Logger

	mu      sync.Mutex
	tasks   map[string]*task
	order   []string
	running bool
	sealed  bool          // set on first Start; registration closes for good
	stopCh  chan struct{} // recreated on every Start
	wg      sync.WaitGroup
}

// New creates a stopped scheduler with no tasks.
func New(cfg Config) *Scheduler {
	if cfg.MinInterval <= 0 {
		cfg.MinInterval = DefaultMinInterval
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTimeout
	}
	if cfg.ShrinkFactor <= 0 || cfg.ShrinkFactor >= 1 {
		cfg.ShrinkFactor = DefaultShrink
	}
	if cfg.RelaxFactor <= 1 {
		cfg.RelaxFactor = DefaultRelax
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cfg:    cfg,
		logger: logger.Named("scheduler"),
		tasks:  make(map[string]*task),
	}
}

// Register adds a fixed-cadence task. It fails with a ConfigurationError
// on a duplicate name, a non-positive interval, or once Start has been
// called.
func (s *Scheduler) Register(name string, interval time.Duration, work Work) error {
	return s.register(name, interval, work, nil)
}

// RegisterAdaptive adds a task whose live interval shrinks toward the
// configured floor while urgent() reports true and relaxes back to the
// base interval otherwise. The probe is called after every invocation
// and must be cheap and non-blocking.
func (s *Scheduler) RegisterAdaptive(name string, interval time.Duration, work Work, urgent func() bool) error {
	return s.register(name, interval, work, urgent)
}

func (s *Scheduler) register(name string, interval time.Duration, work Work, urgent func() bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return &ConfigurationError{Op: "register " + name, Reason: "scheduler already started"}
	}
	if name == "" {
		return &ConfigurationError{Op: "register", Reason: "task name is empty"}
	}
	if interval <= 0 {
		return &ConfigurationError{Op: "register " + name, Reason: "interval must be positive"}
	}
	if _, dup := s.tasks[name]; dup {
		return &ConfigurationError{Op: "register " + name, Reason: "task already registered"}
	}
	if work == nil {
		return &ConfigurationError{Op: "register " + name, Reason: "work func is nil"}
	}

	floor := s.cfg.MinInterval
	if floor > interval {
		floor = interval
	}

	s.tasks[name] = &task{
		name:    name,
		base:    interval,
		floor:   floor,
		timeout: s.cfg.TaskTimeout,
		shrink:  s.cfg.ShrinkFactor,
		relax:   s.cfg.RelaxFactor,
		work:    work,
		urgent:  urgent,
		current: interval,
	}
	s.order = append(s.order, name)

	s.logger.Debug("📋 Task registered",
		zap.String("task", name),
		zap.Duration("interval", interval),
		zap.Bool("adaptive", urgent != nil))
	return nil
}

// Start launches one loop goroutine per registered task and returns the
// resulting state. Calling Start on a running scheduler is a no-op.
func (s *Scheduler) Start() (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return StateRunning, nil
	}

	s.sealed = true
	s.running = true
	s.stopCh = make(chan struct{})
	for _, name := range s.order {
		t := s.tasks[name]
		s.wg.Add(1)
		go s.loop(t, s.stopCh)
	}

	s.logger.Info("🚀 Scheduler started", zap.Int("tasks", len(s.order)))
	return StateRunning, nil
}

// Stop signals every loop and blocks until they have drained. Work
// already in flight is allowed to finish; only the sleep between ticks
// is interrupted. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() State {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return StateStopped
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.logger.Info("🛑 Scheduler stopping, draining task loops...")
	s.wg.Wait()
	s.logger.Info("✅ Scheduler stopped")
	return StateStopped
}

// State reports the current lifecycle state without blocking.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return StateRunning
	}
	return StateStopped
}

// Status returns a snapshot of every task in registration order. It
// only touches bookkeeping, never in-flight work, so it cannot block
// behind a slow task.
func (s *Scheduler) Status() []TaskSnapshot {
	s.mu.Lock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	tasks := make([]*task, 0, len(names))
	for _, name := range names {
		tasks = append(tasks, s.tasks[name])
	}
	s.mu.Unlock()

	snaps := make([]TaskSnapshot, 0, len(tasks))
	for _, t := range tasks {
		snaps = append(snaps, t.snapshot())
	}
	return snaps
}

// Snapshot returns the bookkeeping for a single task, by name.
func (s *Scheduler) Snapshot(name string) (TaskSnapshot, bool) {
	s.mu.Lock()
	t, ok := s.tasks[name]
	s.mu.Unlock()
	if !ok {
		return TaskSnapshot{}, false
	}
	return t.snapshot(), true
}

// TaskNames returns the registered task names sorted alphabetically.
func (s *Scheduler) TaskNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, len(s.order))
	copy(names, s.order)
	sort.Strings(names)
	return names
}

// loop is the per-task goroutine: sleep, guard, invoke, adapt, repeat.
// It exits only when stopCh closes during the sleep.
func (s *Scheduler) loop(t *task, stopCh <-chan struct{}) {
	defer s.wg.Done()

	s.logger.Debug("task loop started", zap.String("task", t.name))
	timer := time.NewTimer(t.interval())
	defer timer.Stop()

	for {
		interval := t.interval()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(interval)
		t.armed(time.Now().Add(interval))

		select {
		case <-stopCh:
			s.logger.Debug("task loop stopped", zap.String("task", t.name))
			return
		case <-timer.C:
		}

		if !t.begin() {
			// The previous invocation ran past its timeout and is
			// still going; this tick is neither success nor failure.
			s.logger.Debug("previous invocation still running, tick skipped",
				zap.String("task", t.name))
			continue
		}
		s.invoke(t)
		t.adapt()
	}
}

// invoke runs one invocation under the task's work budget. On timeout
// the invocation is abandoned: the failure is recorded immediately and
// a reaper clears the in-flight guard once the stray goroutine returns,
// so overlapping invocations stay impossible even after abandonment.
func (s *Scheduler) invoke(t *task) {
	ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
	defer cancel()

	start := time.Now()
	done := make(chan error, 1)
	go func() {
		done <- t.work(ctx)
	}()

	select {
	case err := <-done:
		elapsed := time.Since(start)
		if err != nil {
			t.recordFailure(err)
			s.logger.Warn("⚠️ Task failed",
				zap.String("task", t.name),
				zap.Duration("elapsed", elapsed),
				zap.Error(err))
		} else {
			t.recordSuccess(elapsed)
			s.logger.Debug("task completed",
				zap.String("task", t.name),
				zap.Duration("elapsed", elapsed))
		}
		t.end()

	case <-ctx.Done():
		terr := &TimeoutError{Task: t.name, Limit: t.timeout}
		t.recordFailure(terr)
		s.logger.Warn("⚠️ Task timed out, invocation abandoned",
			zap.String("task", t.name),
			zap.Duration("limit", t.timeout))
		go func() {
			<-done
			t.end()
		}()
	}
}
