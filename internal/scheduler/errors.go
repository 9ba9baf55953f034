package scheduler

import (
	"fmt"
	"time"
)

// ConfigurationError reports an invalid registration or lifecycle misuse:
// duplicate task name, non-positive interval, registering after start.
type ConfigurationError struct {
	Op     string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("scheduler: %s: %s", e.Op, e.Reason)
}

// TimeoutError reports an invocation that exceeded its work budget. The
// invocation is abandoned and counted as a failure; the goroutine running
// it is left to finish on its own and its result is discarded.
type TimeoutError struct {
	Task  string
	Limit time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("task %q timed out after %s", e.Task, e.Limit)
}
