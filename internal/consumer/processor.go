// Package consumer provides Kafka consumer utilities for enrollment event processing.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"example.com/extracurricular/internal/events"
)

// Reader exposes the minimal kafka.Reader interface needed by the processor.
type Reader interface {
	FetchMessage(context.Context) (kafka.Message, error)
	CommitMessages(context.Context, ...kafka.Message) error
	Close() error
}

// Handler receives decoded messages from Kafka.
type Handler interface {
	Handle(context.Context, Message) error
}

// Message is the decoded representation of a Kafka record emitted by the outbox dispatcher.
type Message struct {
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	Event     events.Enrollment
	Payload   json.RawMessage
}

// Option configures optional behaviour for the Processor.
type Option func(*Processor)

// WithLogger overrides the logger used to report errors.
func WithLogger(logger *log.Logger) Option {
	return func(p *Processor) {
		p.logger = logger
	}
}

// WithRetryBackoff sets the initial and maximum delay between handler retries.
func WithRetryBackoff(initial, max time.Duration) Option {
	return func(p *Processor) {
		if initial > 0 {
			p.retryBackoff = initial
		}
		if max >= p.retryBackoff {
			p.maxRetryBackoff = max
		}
	}
}

// Processor pulls messages from Kafka, decodes them, and dispatches to a Handler.
// A message the handler rejects is retried in place until it succeeds or the
// context ends, so later offsets are never committed past it.
type Processor struct {
	reader          Reader
	handler         Handler
	logger          *log.Logger
	retryBackoff    time.Duration
	maxRetryBackoff time.Duration
}

// NewProcessor constructs a Processor with the provided reader and handler.
func NewProcessor(reader Reader, handler Handler, opts ...Option) *Processor {
	p := &Processor{
		reader:          reader,
		handler:         handler,
		logger:          log.New(log.Writer(), "[consumer] ", log.LstdFlags|log.Lshortfile),
		retryBackoff:    500 * time.Millisecond,
		maxRetryBackoff: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run starts a blocking loop that processes Kafka messages until the context is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		msg, err := p.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			p.logger.Printf("fetch error: %v", err)
			continue
		}

		decoded, decodeErr := decodeMessage(msg)
		if decodeErr != nil {
			p.logger.Printf("decode error (topic=%s, partition=%d, offset=%d): %v", msg.Topic, msg.Partition, msg.Offset, decodeErr)
			recordDecodeError(msg.Topic)
			// Commit malformed messages to avoid poison-pill loops.
			if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
				p.logger.Printf("commit error after decode failure: %v", commitErr)
			}
			continue
		}

		if err := p.handle(ctx, decoded); err != nil {
			return err
		}

		if commitErr := p.reader.CommitMessages(ctx, msg); commitErr != nil {
			p.logger.Printf("commit error: %v", commitErr)
		} else {
			recordProcessed(decoded)
		}
	}
}

// handle retries the handler with exponential backoff. It only returns the context's error.
func (p *Processor) handle(ctx context.Context, msg Message) error {
	backoff := p.retryBackoff
	for attempt := 1; ; attempt++ {
		err := p.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		p.logger.Printf("handler error (event_type=%s, activity=%s, offset=%d, attempt=%d): %v",
			msg.Event.EventType, msg.Event.ActivityID, msg.Offset, attempt, err)
		recordHandlerError(msg)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		backoff *= 2
		if backoff > p.maxRetryBackoff {
			backoff = p.maxRetryBackoff
		}
	}
}

func decodeMessage(msg kafka.Message) (Message, error) {
	if len(msg.Value) == 0 {
		return Message{}, errors.New("empty payload")
	}

	var evt events.Enrollment
	if err := json.Unmarshal(msg.Value, &evt); err != nil {
		return Message{}, fmt.Errorf("invalid payload: %w", err)
	}

	// The event_type header takes precedence over the body field.
	if eventType, ok := headerValue(msg, "event_type"); ok {
		evt.EventType = string(eventType)
	}
	if !events.Known(evt.EventType) {
		return Message{}, fmt.Errorf("unknown event_type %q", evt.EventType)
	}
	if evt.ActivityID == "" || evt.Email == "" {
		return Message{}, errors.New("missing activity_id or email")
	}
	if _, err := uuid.Parse(evt.EventID); err != nil {
		return Message{}, fmt.Errorf("invalid event_id %q: %w", evt.EventID, err)
	}

	return Message{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Time,
		Event:     evt,
		Payload:   json.RawMessage(append([]byte(nil), msg.Value...)),
	}, nil
}

func headerValue(msg kafka.Message, key string) ([]byte, bool) {
	for _, header := range msg.Headers {
		if header.Key == key {
			return header.Value, true
		}
	}
	return nil, false
}
