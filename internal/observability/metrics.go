// Package observability holds the Prometheus collectors for the activity registry.
package observability

import "github.com/prometheus/client_golang/prometheus"

var (
	enrollmentChanges = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_directory",
		Subsystem: "registry",
		Name:      "enrollment_changes_total",
		Help:      "Number of successful sign ups and unregistrations, labeled by operation and activity.",
	}, []string{"operation", "activity"})

	rejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_directory",
		Subsystem: "registry",
		Name:      "rejections_total",
		Help:      "Number of sign up and unregister requests rejected, labeled by operation and reason.",
	}, []string{"operation", "reason"})

	participantsGauge = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "activity_directory",
		Subsystem: "registry",
		Name:      "participants",
		Help:      "Current number of participants enrolled per activity.",
	}, []string{"activity"})
)

func init() {
	prometheus.MustRegister(enrollmentChanges, rejections, participantsGauge)
}

// RecordEnrollmentChange counts a successful operation and updates the participant gauge.
func RecordEnrollmentChange(operation, activityID string, participants int) {
	enrollmentChanges.WithLabelValues(operation, activityID).Inc()
	participantsGauge.WithLabelValues(activityID).Set(float64(participants))
}

// RecordRejection counts a rejected operation.
func RecordRejection(operation, reason string) {
	rejections.WithLabelValues(operation, reason).Inc()
}

// SetParticipants sets the participant gauge, used when the registry is seeded.
func SetParticipants(activityID string, participants int) {
	participantsGauge.WithLabelValues(activityID).Set(float64(participants))
}
