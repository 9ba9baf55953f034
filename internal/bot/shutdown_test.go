// internal/bot/shutdown_test.go
package bot

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestShutdownRunsLIFO(t *testing.T) {
	h := NewShutdownHandler(zaptest.NewLogger(t), time.Second)

	var order []string
	h.AddFunc("first", func() error { order = append(order, "first"); return nil })
	h.AddFunc("second", func() error { order = append(order, "second"); return nil })
	h.AddFunc("third", func() error { order = append(order, "third"); return nil })

	require.NoError(t, h.ShutdownAll())
	assert.Equal(t, []string{"third", "second", "first"}, order)
}

func TestShutdownCollectsFailures(t *testing.T) {
	h := NewShutdownHandler(zaptest.NewLogger(t), time.Second)

	var closed []string
	h.AddFunc("good", func() error { closed = append(closed, "good"); return nil })
	h.AddFunc("bad", func() error { return errors.New("boom") })

	err := h.ShutdownAll()
	require.ErrorContains(t, err, "shutdown incomplete: bad")
	assert.Equal(t, []string{"good"}, closed, "a failing service must not stop the teardown")
}

func TestShutdownAbandonsHungCloser(t *testing.T) {
	h := NewShutdownHandler(zaptest.NewLogger(t), 50*time.Millisecond)

	unblock := make(chan struct{})
	// LIFO order closes "fast" before the deadline can expire on "hung".
	h.AddFunc("hung", func() error { <-unblock; return nil })
	h.AddFunc("fast", func() error { return nil })

	start := time.Now()
	err := h.ShutdownAll()
	close(unblock)

	require.ErrorContains(t, err, "shutdown incomplete: hung")
	assert.Less(t, time.Since(start), 5*time.Second, "a hung closer must not block forever")
}

func TestShutdownDefaultTimeout(t *testing.T) {
	h := NewShutdownHandler(zaptest.NewLogger(t), 0)
	assert.Equal(t, 30*time.Second, h.timeout)
}
