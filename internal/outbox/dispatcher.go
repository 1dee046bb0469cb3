// Package outbox buffers enrollment events and delivers them to Kafka.
package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"example.com/extracurricular/internal/events"
)

// DefaultPollInterval is used when NewDispatcher receives a non-positive interval.
const DefaultPollInterval = 2 * time.Second

type messageWriter interface {
	WriteMessages(context.Context, string, ...kafka.Message) error
}

// Option configures optional behaviour for the Dispatcher.
type Option func(*Dispatcher)

// WithLogger overrides the logger used to report delivery errors.
func WithLogger(logger *log.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// WithFlushTimeout bounds the final drain performed when the dispatcher stops.
func WithFlushTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.flushTimeout = timeout
	}
}

// Dispatcher drains the outbox and delivers events to a single Kafka topic.
type Dispatcher struct {
	outbox           *Outbox
	producer         messageWriter
	topic            string
	pollInterval     time.Duration
	batchSize        int
	flushTimeout     time.Duration
	logger           *log.Logger
	shutdownComplete chan struct{}
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(outbox *Outbox, producer messageWriter, topic string, pollInterval time.Duration, batchSize int, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		outbox:           outbox,
		producer:         producer,
		topic:            topic,
		pollInterval:     pollInterval,
		batchSize:        batchSize,
		flushTimeout:     5 * time.Second,
		logger:           log.New(log.Writer(), "[outbox] ", log.LstdFlags),
		shutdownComplete: make(chan struct{}),
	}
	if d.pollInterval <= 0 {
		d.pollInterval = DefaultPollInterval
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the polling loop. It should be called in a goroutine.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.pollInterval)
	defer func() {
		ticker.Stop()
		close(d.shutdownComplete)
	}()

	for {
		if err := d.processBatch(ctx); err != nil && !errors.Is(err, context.Canceled) {
			d.logger.Printf("dispatch error: %v", err)
		}

		select {
		case <-ctx.Done():
			d.flush()
			return
		case <-ticker.C:
		}
	}
}

// Wait waits until dispatcher stops.
func (d *Dispatcher) Wait() {
	<-d.shutdownComplete
}

// flush makes a last attempt to deliver whatever is still queued.
func (d *Dispatcher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), d.flushTimeout)
	defer cancel()

	for d.outbox.Len() > 0 {
		if err := d.processBatch(ctx); err != nil {
			d.logger.Printf("final flush abandoned with %d events queued: %v", d.outbox.Len(), err)
			return
		}
	}
}

func (d *Dispatcher) processBatch(ctx context.Context) error {
	batch := d.outbox.claim(d.batchSize)
	if len(batch) == 0 {
		return nil
	}

	start := time.Now()
	defer func() { batchDuration.Observe(time.Since(start).Seconds()) }()

	messages := make([]kafka.Message, 0, len(batch))
	encoded := make([]events.Enrollment, 0, len(batch))
	for _, evt := range batch {
		msg, err := encodeMessage(evt)
		if err != nil {
			// Marshal failures are permanent, so the event is not requeued.
			d.logger.Printf("discarding undeliverable event %s: %v", evt.EventID, err)
			failedCounter.Inc()
			continue
		}
		messages = append(messages, msg)
		encoded = append(encoded, evt)
	}
	if len(messages) == 0 {
		return nil
	}

	if err := d.producer.WriteMessages(ctx, d.topic, messages...); err != nil {
		failedCounter.Add(float64(len(encoded)))
		if dropped := d.outbox.requeue(encoded); dropped > 0 {
			d.logger.Printf("outbox at capacity after failed write, dropped %d newest events", dropped)
		}
		return err
	}

	deliveredCounter.Add(float64(len(messages)))
	return nil
}

func encodeMessage(evt events.Enrollment) (kafka.Message, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{
		Key:   []byte(evt.ActivityID),
		Value: payload,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
			{Key: "activity_id", Value: []byte(evt.ActivityID)},
		},
	}, nil
}
