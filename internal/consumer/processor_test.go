package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"

	"example.com/extracurricular/internal/events"
	"example.com/extracurricular/internal/persistence/postgres"
)

func TestProcessorCommitsOnSuccess(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evt := events.NewEnrollment(events.TypeSignedUp, "chess", "Chess Club", "test@example.com", 3)
	msg := enrollmentMessage(t, evt, 10)

	reader := &stubReader{
		messages: []kafka.Message{msg},
		after:    contextCanceled,
	}
	handler := &stubHandler{}

	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 1, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.Equal(t, events.TypeSignedUp, handler.last.Event.EventType)
	require.Equal(t, "chess", handler.last.Event.ActivityID)
	require.Equal(t, "test@example.com", handler.last.Event.Email)
	require.Equal(t, int64(10), handler.last.Offset)
	require.JSONEq(t, string(msg.Value), string(handler.last.Payload))
}

func TestProcessorRetriesHandlerBeforeCommitting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	evt := events.NewEnrollment(events.TypeUnregistered, "chess", "Chess Club", "test@example.com", 2)
	reader := &stubReader{
		messages: []kafka.Message{enrollmentMessage(t, evt, 20)},
		after:    contextCanceled,
	}
	handler := &stubHandler{failFirst: 2}

	processor := NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
	)

	before := testutil.ToFloat64(handlerErrorCounter.WithLabelValues("enrollment_events", events.TypeUnregistered))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 3, handler.calls)
	require.Equal(t, 1, reader.commitCalls)
	require.InDelta(t, before+2, testutil.ToFloat64(handlerErrorCounter.WithLabelValues("enrollment_events", events.TypeUnregistered)), 0.0001)
}

func TestProcessorDoesNotSkipFailingMessage(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	failing := events.NewEnrollment(events.TypeSignedUp, "chess", "Chess Club", "a@example.com", 3)
	next := events.NewEnrollment(events.TypeSignedUp, "chess", "Chess Club", "b@example.com", 4)
	reader := &stubReader{
		messages: []kafka.Message{enrollmentMessage(t, failing, 30), enrollmentMessage(t, next, 31)},
		after:    contextCanceled,
	}
	handler := &stubHandler{err: errors.New("database unavailable")}
	handler.onErr = func() {
		if handler.calls == 3 {
			cancel()
		}
	}

	processor := NewProcessor(reader, handler,
		WithLogger(log.New(testWriter{t}, "", 0)),
		WithRetryBackoff(time.Millisecond, time.Millisecond),
	)

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 3, handler.calls)
	require.Equal(t, 0, reader.commitCalls)
	require.Equal(t, 1, reader.index)
	require.Equal(t, "a@example.com", handler.last.Event.Email)
}

func TestProcessorCommitsMalformedMessages(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cases := []kafka.Message{
		{Topic: "enrollment_events", Value: nil},
		{Topic: "enrollment_events", Value: []byte(`not json`)},
		{Topic: "enrollment_events", Value: []byte(`{"activity_id":"chess","email":"a@example.com"}`),
			Headers: []kafka.Header{{Key: "event_type", Value: []byte("enrollment.unknown")}}},
		{Topic: "enrollment_events", Value: []byte(`{"event_type":"enrollment.signed_up","email":"a@example.com"}`)},
		{Topic: "enrollment_events", Value: []byte(`{"event_type":"enrollment.signed_up","activity_id":"chess","email":"a@example.com"}`)},
		{Topic: "enrollment_events", Value: []byte(`{"event_id":"not-a-uuid","event_type":"enrollment.signed_up","activity_id":"chess","email":"a@example.com"}`)},
	}

	reader := &stubReader{messages: cases, after: contextCanceled}
	handler := &stubHandler{}
	processor := NewProcessor(reader, handler, WithLogger(log.New(testWriter{t}, "", 0)))

	before := testutil.ToFloat64(decodeErrorCounter.WithLabelValues("enrollment_events"))

	err := processor.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)

	require.Equal(t, 0, handler.calls)
	require.Equal(t, len(cases), reader.commitCalls)
	require.InDelta(t, before+float64(len(cases)), testutil.ToFloat64(decodeErrorCounter.WithLabelValues("enrollment_events")), 0.0001)
}

func TestDecodeMessageFallsBackToBodyEventType(t *testing.T) {
	evt := events.NewEnrollment(events.TypeSignedUp, "art", "Art Studio", "a@example.com", 2)
	value, err := json.Marshal(evt)
	require.NoError(t, err)

	decoded, err := decodeMessage(kafka.Message{Topic: "enrollment_events", Value: value})
	require.NoError(t, err)
	require.Equal(t, events.TypeSignedUp, decoded.Event.EventType)
	require.Equal(t, evt.EventID, decoded.Event.EventID)
}

func TestAuditHandlerMapsMessage(t *testing.T) {
	evt := events.NewEnrollment(events.TypeSignedUp, "chess", "Chess Club", "test@example.com", 3)
	decoded, err := decodeMessage(enrollmentMessage(t, evt, 42))
	require.NoError(t, err)

	store := &stubAuditStore{}
	require.NoError(t, NewAuditHandler(store).Handle(context.Background(), decoded))

	require.Len(t, store.entries, 1)
	entry := store.entries[0]
	require.Equal(t, evt.EventID, entry.EventID)
	require.Equal(t, "chess", entry.ActivityID)
	require.Equal(t, "test@example.com", entry.Email)
	require.Equal(t, 3, entry.ParticipantCount)
	require.Equal(t, int64(42), entry.Offset)
	require.Equal(t, "enrollment_events", entry.Topic)
}

func enrollmentMessage(t *testing.T, evt events.Enrollment, offset int64) kafka.Message {
	t.Helper()
	value, err := json.Marshal(evt)
	require.NoError(t, err)
	return kafka.Message{
		Topic:     "enrollment_events",
		Partition: 0,
		Offset:    offset,
		Time:      time.Now().UTC(),
		Key:       []byte(evt.ActivityID),
		Value:     value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(evt.EventType)},
			{Key: "activity_id", Value: []byte(evt.ActivityID)},
		},
	}
}

type stubReader struct {
	messages    []kafka.Message
	index       int
	commitCalls int
	after       func() error
}

func (r *stubReader) FetchMessage(context.Context) (kafka.Message, error) {
	if r.index >= len(r.messages) {
		if r.after != nil {
			return kafka.Message{}, r.after()
		}
		return kafka.Message{}, context.Canceled
	}
	msg := r.messages[r.index]
	r.index++
	return msg, nil
}

func (r *stubReader) CommitMessages(_ context.Context, _ ...kafka.Message) error {
	r.commitCalls++
	return nil
}

func (r *stubReader) Close() error { return nil }

func contextCanceled() error { return context.Canceled }

type stubHandler struct {
	calls     int
	failFirst int
	err       error
	onErr     func()
	last      Message
}

func (h *stubHandler) Handle(_ context.Context, msg Message) error {
	h.calls++
	h.last = msg
	if h.failFirst > 0 {
		h.failFirst--
		return errors.New("boom")
	}
	if h.err != nil && h.onErr != nil {
		h.onErr()
	}
	return h.err
}

type stubAuditStore struct {
	entries []postgres.AuditEntry
}

func (s *stubAuditStore) Append(_ context.Context, entry postgres.AuditEntry) error {
	s.entries = append(s.entries, entry)
	return nil
}

type testWriter struct {
	t *testing.T
}

func (tw testWriter) Write(p []byte) (int, error) {
	tw.t.Log(string(p))
	return len(p), nil
}
