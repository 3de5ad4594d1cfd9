// Package metrics exposes Prometheus metrics for compile runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	compileTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stackplan_compile_total",
		Help: "Total number of template compile runs",
	}, []string{"result"})

	compileDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stackplan_compile_duration_seconds",
		Help:    "Duration of template compile runs",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 14), // 0.1ms to ~0.8s
	}, []string{"result"})

	violationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stackplan_violations_total",
		Help: "Total number of validation violations by kind",
	}, []string{"kind"})

	planSteps = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "stackplan_plan_steps",
		Help:    "Number of steps in emitted execution plans",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10), // 1 to 512
	})
)

func init() {
	prometheus.MustRegister(
		compileTotal,
		compileDuration,
		violationsTotal,
		planSteps,
	)
}

// Compile run results
const (
	ResultSuccess    = "success"
	ResultParseError = "parse_error"
	ResultInvalid    = "invalid"
	ResultInternal   = "internal_error"
)

// RecordCompile records the outcome and duration of one compile run
func RecordCompile(result string, duration time.Duration) {
	compileTotal.WithLabelValues(result).Inc()
	compileDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// RecordViolations records validation violations by kind
func RecordViolations(countsByKind map[string]int) {
	for kind, count := range countsByKind {
		violationsTotal.WithLabelValues(kind).Add(float64(count))
	}
}

// RecordPlanSize records the step count of an emitted plan
func RecordPlanSize(steps int) {
	planSteps.Observe(float64(steps))
}
