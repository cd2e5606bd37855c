package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	stageOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dr_failover_stage_outcomes_total",
			Help: "Failover stage outcomes by stage and outcome kind",
		},
		[]string{"stage", "outcome"},
	)

	itemOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dr_failover_item_outcomes_total",
			Help: "Per-item outcomes inside failover stages (groups, services, target groups)",
		},
		[]string{"stage", "outcome"},
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dr_failover_stage_duration_seconds",
			Help:    "Failover stage duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		},
		[]string{"stage"},
	)

	targetsRegisteredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dr_failover_targets_registered_total",
			Help: "Targets registered with load balancer target groups",
		},
	)

	awsCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dr_failover_aws_calls_total",
			Help: "AWS API calls by service, operation and result",
		},
		[]string{"service", "operation", "result"},
	)

	awsCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dr_failover_aws_call_duration_seconds",
			Help:    "AWS API call duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation"},
	)

	activityDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dr_failover_activity_duration_seconds",
			Help:    "Temporal activity duration in seconds by activity and result",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 1800},
		},
		[]string{"activity", "result"},
	)
)

// ObserveStage records the outcome and duration of one failover stage.
func ObserveStage(stage, outcome string, d time.Duration) {
	stageOutcomesTotal.WithLabelValues(stage, outcome).Inc()
	stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// ObserveItem records the outcome of one item inside a stage.
func ObserveItem(stage, outcome string) {
	itemOutcomesTotal.WithLabelValues(stage, outcome).Inc()
}

// AddTargetsRegistered counts targets registered with a target group.
func AddTargetsRegistered(n int) {
	targetsRegisteredTotal.Add(float64(n))
}

// ObserveAWSCall records one AWS API call.
func ObserveAWSCall(service, operation string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	awsCallsTotal.WithLabelValues(service, operation, result).Inc()
	awsCallDuration.WithLabelValues(service, operation).Observe(d.Seconds())
}

// ObserveActivity records one Temporal activity execution.
func ObserveActivity(name string, err error, d time.Duration) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	activityDuration.WithLabelValues(name, result).Observe(d.Seconds())
}
