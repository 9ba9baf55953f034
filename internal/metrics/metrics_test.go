package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBotRunningGauge(t *testing.T) {
	SetBotRunning(true)
	assert.Equal(t, 1.0, testutil.ToFloat64(botRunning))

	SetBotRunning(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(botRunning))
}

func TestDeltaSnapshotGauges(t *testing.T) {
	SetDeltaSnapshot(5000.0, 5000.0, 0.75, true)

	assert.Equal(t, 5000.0, testutil.ToFloat64(netDelta))
	assert.Equal(t, 5000.0, testutil.ToFloat64(hedgeAmount))
	assert.Equal(t, 0.75, testutil.ToFloat64(confidence))
	assert.Equal(t, 1.0, testutil.ToFloat64(hedgeNeeded))

	SetDeltaSnapshot(-12.5, 0, 1.0, false)
	assert.Equal(t, -12.5, testutil.ToFloat64(netDelta))
	assert.Equal(t, 0.0, testutil.ToFloat64(hedgeNeeded))
}

func TestTaskCollectors(t *testing.T) {
	SetTaskRunning("delta_check", true)
	assert.Equal(t, 1.0, testutil.ToFloat64(taskRunning.WithLabelValues("delta_check")))

	SetTaskErrors("delta_check", 3)
	assert.Equal(t, 3.0, testutil.ToFloat64(taskErrors.WithLabelValues("delta_check")))

	before := testutil.ToFloat64(taskRuns.WithLabelValues("delta_check", "success"))
	IncTaskRun("delta_check", "success")
	IncTaskRun("delta_check", "success")
	assert.Equal(t, before+2, testutil.ToFloat64(taskRuns.WithLabelValues("delta_check", "success")))

	ObserveTaskDuration("delta_check", 0.042)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(taskDuration), 1)
}
