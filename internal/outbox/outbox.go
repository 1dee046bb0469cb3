package outbox

import (
	"context"
	"errors"
	"sync"

	"example.com/extracurricular/internal/events"
)

// ErrOutboxFull is returned when the queue is at capacity.
var ErrOutboxFull = errors.New("outbox is full")

// Outbox buffers enrollment events in memory until the Dispatcher delivers them.
type Outbox struct {
	mu       sync.Mutex
	pending  []events.Enrollment
	capacity int
}

// NewOutbox creates an Outbox holding at most capacity undelivered events.
func NewOutbox(capacity int) *Outbox {
	if capacity <= 0 {
		capacity = 1024
	}
	return &Outbox{capacity: capacity}
}

// Record enqueues evt. It satisfies domain.EventRecorder.
func (o *Outbox) Record(_ context.Context, evt events.Enrollment) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.pending) >= o.capacity {
		droppedCounter.Inc()
		return ErrOutboxFull
	}
	o.pending = append(o.pending, evt)
	enqueuedCounter.Inc()
	backlogGauge.Set(float64(len(o.pending)))
	return nil
}

// Len reports the number of undelivered events.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// claim removes up to n events from the head of the queue.
func (o *Outbox) claim(n int) []events.Enrollment {
	o.mu.Lock()
	defer o.mu.Unlock()

	if n <= 0 || n > len(o.pending) {
		n = len(o.pending)
	}
	if n == 0 {
		return nil
	}
	batch := make([]events.Enrollment, n)
	copy(batch, o.pending[:n])
	o.pending = append(o.pending[:0], o.pending[n:]...)
	backlogGauge.Set(float64(len(o.pending)))
	return batch
}

// requeue puts a failed batch back at the head of the queue, ahead of newer events.
// Events recorded while the batch was in flight may have refilled the queue; the
// newest ones beyond capacity are dropped and their count returned.
func (o *Outbox) requeue(batch []events.Enrollment) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.pending = append(append(make([]events.Enrollment, 0, len(batch)+len(o.pending)), batch...), o.pending...)
	dropped := 0
	if len(o.pending) > o.capacity {
		dropped = len(o.pending) - o.capacity
		o.pending = o.pending[:o.capacity]
		droppedCounter.Add(float64(dropped))
	}
	backlogGauge.Set(float64(len(o.pending)))
	return dropped
}
