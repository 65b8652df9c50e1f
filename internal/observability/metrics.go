// Package observability exposes Prometheus metrics for the tracker.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	workoutsLogged = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "workouts",
		Name:      "logged_total",
		Help:      "Workouts constructed from a validated form submission.",
	}, []string{"type"})
	validationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "workouts",
		Name:      "validation_failures_total",
		Help:      "Form submissions rejected by validation.",
	}, []string{"reason"})
	snapshotSaves = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "snapshot",
		Name:      "saves_total",
		Help:      "Whole-store snapshots written to the workouts slot.",
	})
	snapshotLoadFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mapty",
		Subsystem: "snapshot",
		Name:      "load_failures_total",
		Help:      "Persisted snapshots discarded as malformed.",
	})
	snapshotBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "snapshot",
		Name:      "size_bytes",
		Help:      "Size of the most recently written snapshot.",
	})
	storedWorkouts = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mapty",
		Subsystem: "snapshot",
		Name:      "workouts",
		Help:      "Workouts contained in the most recently written snapshot.",
	})
)

func init() {
	prometheus.MustRegister(workoutsLogged, validationFailures, snapshotSaves,
		snapshotLoadFailures, snapshotBytes, storedWorkouts)
}

// RecordWorkoutLogged counts a constructed workout of the given type.
func RecordWorkoutLogged(workoutType string) {
	workoutsLogged.WithLabelValues(workoutType).Inc()
}

// RecordValidationFailure counts a rejected submission.
func RecordValidationFailure(reason string) {
	validationFailures.WithLabelValues(reason).Inc()
}

// RecordSnapshotSaved updates the snapshot counters after a successful write.
func RecordSnapshotSaved(workouts, size int) {
	snapshotSaves.Inc()
	snapshotBytes.Set(float64(size))
	storedWorkouts.Set(float64(workouts))
}

// RecordSnapshotLoadFailed counts a discarded snapshot.
func RecordSnapshotLoadFailed() {
	snapshotLoadFailures.Inc()
}
