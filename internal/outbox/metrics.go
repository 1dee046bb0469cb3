package outbox

import "github.com/prometheus/client_golang/prometheus"

var (
	enqueuedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity_directory",
		Subsystem: "outbox",
		Name:      "events_enqueued_total",
		Help:      "Number of enrollment events accepted into the outbox.",
	})

	droppedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity_directory",
		Subsystem: "outbox",
		Name:      "events_dropped_total",
		Help:      "Number of enrollment events rejected because the outbox was full.",
	})

	deliveredCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity_directory",
		Subsystem: "outbox",
		Name:      "events_delivered_total",
		Help:      "Number of outbox events successfully published to Kafka.",
	})

	failedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "activity_directory",
		Subsystem: "outbox",
		Name:      "events_failed_total",
		Help:      "Number of outbox event deliveries that failed; failed batches are retried.",
	})

	batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "activity_directory",
		Subsystem: "outbox",
		Name:      "batch_duration_seconds",
		Help:      "Time spent encoding and delivering outbox batches.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	})

	backlogGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity_directory",
		Subsystem: "outbox",
		Name:      "backlog",
		Help:      "Number of enrollment events waiting for delivery.",
	})
)

func init() {
	prometheus.MustRegister(enqueuedCounter, droppedCounter, deliveredCounter, failedCounter, batchDuration, backlogGauge)
}
