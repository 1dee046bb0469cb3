// Package postgres persists the enrollment audit trail.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditEntry is one consumed enrollment event.
type AuditEntry struct {
	EventID          string
	EventType        string
	ActivityID       string
	Email            string
	ParticipantCount int
	OccurredAt       time.Time
	Topic            string
	Partition        int
	Offset           int64
	Payload          json.RawMessage
	ReceivedAt       time.Time
}

// AuditStore appends enrollment events to Postgres.
type AuditStore struct {
	pool *pgxpool.Pool
}

// NewAuditStore constructs an AuditStore.
func NewAuditStore(pool *pgxpool.Pool) *AuditStore {
	return &AuditStore{pool: pool}
}

// Append inserts entry. Kafka delivers at least once, so a replayed event_id is ignored.
func (s *AuditStore) Append(ctx context.Context, entry AuditEntry) error {
	const stmt = `INSERT INTO enrollment_audit_log
        (event_id, event_type, activity_id, email, participant_count, occurred_at, topic, partition, record_offset, payload, received_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        ON CONFLICT (event_id) DO NOTHING`

	receivedAt := entry.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	_, err := s.pool.Exec(ctx, stmt,
		entry.EventID,
		entry.EventType,
		entry.ActivityID,
		entry.Email,
		entry.ParticipantCount,
		entry.OccurredAt,
		entry.Topic,
		entry.Partition,
		entry.Offset,
		[]byte(entry.Payload),
		receivedAt,
	)
	if err != nil {
		return fmt.Errorf("append audit entry %s: %w", entry.EventID, err)
	}
	return nil
}
