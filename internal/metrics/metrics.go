package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ymlint = "ymlint"

	lintAttemptsTotal  = "lint_attempts_total"
	lintOutcomesTotal  = "lint_outcomes_total"
	lintRunDuration    = "lint_run_duration_seconds"
	jobsTotal          = "jobs_total"
	websocketClients   = "websocket_clients"
	recoveredJobsTotal = "recovered_jobs_total"

	// Labels
	attemptResultLabel = "result"
	outcomeKindLabel   = "kind"
	jobStateLabel      = "state"
	recoveryLabel      = "action"
)

// Attempt results.
const (
	AttemptSucceeded = "success"
	AttemptFailed    = "failure"
)

// Job states recorded by the API server.
const (
	JobQueued   = "queued"
	JobRejected = "rejected"
	JobFailed   = "publish_failed"
)

// Recovery actions.
const (
	RecoveryRequeued   = "requeued"
	RecoveryDeadLetter = "dead_letter"
)

/**
* Metrics definition
**/
var lintAttemptsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: ymlint,
		Name:      lintAttemptsTotal,
		Help:      "number of POSTs made to the lint endpoint",
	},
	[]string{attemptResultLabel},
)

var lintOutcomesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: ymlint,
		Name:      lintOutcomesTotal,
		Help:      "number of lint runs by outcome",
	},
	[]string{outcomeKindLabel},
)

var lintRunDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Subsystem: ymlint,
		Name:      lintRunDuration,
		Help:      "wall-clock time of a lint run, retries included",
		Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
	},
)

var jobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: ymlint,
		Name:      jobsTotal,
		Help:      "number of lint jobs received by the API",
	},
	[]string{jobStateLabel},
)

var websocketClientsMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: ymlint,
		Name:      websocketClients,
		Help:      "number of connected result streams",
	},
)

var recoveredJobsTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: ymlint,
		Name:      recoveredJobsTotal,
		Help:      "number of stale jobs reclaimed by the recovery routine",
	},
	[]string{recoveryLabel},
)

func IncreaseLintAttemptsMetric(result string) {
	lintAttemptsTotalMetric.With(prometheus.Labels{attemptResultLabel: result}).Inc()
}

func IncreaseLintOutcomesMetric(kind string) {
	lintOutcomesTotalMetric.With(prometheus.Labels{outcomeKindLabel: kind}).Inc()
}

func ObserveLintRunDuration(d time.Duration) {
	lintRunDurationMetric.Observe(d.Seconds())
}

func IncreaseJobsTotalMetric(state string) {
	jobsTotalMetric.With(prometheus.Labels{jobStateLabel: state}).Inc()
}

func UpdateWebsocketClientsMetric(count int) {
	websocketClientsMetric.Set(float64(count))
}

func IncreaseRecoveredJobsMetric(action string) {
	recoveredJobsTotalMetric.With(prometheus.Labels{recoveryLabel: action}).Inc()
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(lintAttemptsTotalMetric)
	prometheus.MustRegister(lintOutcomesTotalMetric)
	prometheus.MustRegister(lintRunDurationMetric)
	prometheus.MustRegister(jobsTotalMetric)
	prometheus.MustRegister(websocketClientsMetric)
	prometheus.MustRegister(recoveredJobsTotalMetric)
}
