// Package metrics holds the Prometheus collectors the hedger updates while
// running:
//
//	hedger_bot_running                   control loop state (1 running, 0 stopped)
//	hedger_positions_count               LP positions tracked
//	hedger_total_lp_value                portfolio value in USD
//	hedger_net_delta                     net hedge-token exposure in USD
//	hedger_hedge_needed                  1 when |net delta| exceeds the threshold
//	hedger_hedge_amount                  recommended hedge size in USD
//	hedger_confidence                    confidence of the latest calculation
//	hedger_task_running{task}            1 while a task invocation is in flight
//	hedger_task_errors{task}             task failures since start
//	hedger_task_runs_total{task,result}  invocations by outcome (success|error|timeout)
//	hedger_task_duration_seconds{task}   execution time histogram
//
// Collectors are registered in init() and served by the dashboard API at
// /metrics in the Prometheus text exposition format.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	botRunning = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hedger_bot_running",
			Help: "Whether the hedger control loop is running (1) or stopped (0).",
		},
	)

	positionsCount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hedger_positions_count",
			Help: "Number of LP positions currently tracked.",
		},
	)

	totalLPValue = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hedger_total_lp_value",
			Help: "Total value of all tracked LP positions in USD.",
		},
	)

	netDelta = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hedger_net_delta",
			Help: "Net hedge-token exposure across all positions in USD.",
		},
	)

	hedgeNeeded = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hedger_hedge_needed",
			Help: "1 when the absolute net delta exceeds the configured threshold.",
		},
	)

	hedgeAmount = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hedger_hedge_amount",
			Help: "Recommended hedge size in USD (0 when no hedge is needed).",
		},
	)

	confidence = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hedger_confidence",
			Help: "Confidence of the latest delta calculation, 0 to 1.",
		},
	)

	taskRunning = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hedger_task_running",
			Help: "1 while a task invocation is in flight.",
		},
		[]string{"task"},
	)

	taskErrors = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "hedger_task_errors",
			Help: "Task failures since the scheduler started. Never reset.",
		},
		[]string{"task"},
	)

	taskRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hedger_task_runs_total",
			Help: "Task invocations by outcome.",
		},
		[]string{"task", "result"}, // result: success|error|timeout
	)

	taskDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hedger_task_duration_seconds",
			Help:    "Wall-clock task execution time in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"task"},
	)
)

func init() {
	prometheus.MustRegister(botRunning, positionsCount, totalLPValue)
	prometheus.MustRegister(netDelta, hedgeNeeded, hedgeAmount, confidence)
	prometheus.MustRegister(taskRunning, taskErrors, taskRuns, taskDuration)
}

func SetBotRunning(running bool) {
	if running {
		botRunning.Set(1)
	} else {
		botRunning.Set(0)
	}
}

func SetPositionsCount(n int)   { positionsCount.Set(float64(n)) }
func SetTotalLPValue(v float64) { totalLPValue.Set(v) }

// SetDeltaSnapshot mirrors the latest delta calculation onto the gauges.
func SetDeltaSnapshot(net, amount, conf float64, needed bool) {
	netDelta.Set(net)
	hedgeAmount.Set(amount)
	confidence.Set(conf)
	if needed {
		hedgeNeeded.Set(1)
	} else {
		hedgeNeeded.Set(0)
	}
}

func SetTaskRunning(task string, running bool) {
	if running {
		taskRunning.WithLabelValues(task).Set(1)
	} else {
		taskRunning.WithLabelValues(task).Set(0)
	}
}

func SetTaskErrors(task string, n uint64) { taskErrors.WithLabelValues(task).Set(float64(n)) }
func IncTaskRun(task, result string)      { taskRuns.WithLabelValues(task, result).Inc() }

func ObserveTaskDuration(task string, seconds float64) {
	taskDuration.WithLabelValues(task).Observe(seconds)
}
