package consumer

import (
	"context"

	"example.com/extracurricular/internal/persistence/postgres"
)

type auditAppender interface {
	Append(ctx context.Context, entry postgres.AuditEntry) error
}

// AuditHandler writes consumed enrollment events into the audit log.
type AuditHandler struct {
	store auditAppender
}

// NewAuditHandler constructs a handler backed by the provided store.
func NewAuditHandler(store auditAppender) *AuditHandler {
	return &AuditHandler{store: store}
}

// Handle appends the event to the enrollment_audit_log table.
func (h *AuditHandler) Handle(ctx context.Context, msg Message) error {
	return h.store.Append(ctx, postgres.AuditEntry{
		EventID:          msg.Event.EventID,
		EventType:        msg.Event.EventType,
		ActivityID:       msg.Event.ActivityID,
		Email:            msg.Event.Email,
		ParticipantCount: msg.Event.ParticipantCount,
		OccurredAt:       msg.Event.OccurredAt,
		Topic:            msg.Topic,
		Partition:        msg.Partition,
		Offset:           msg.Offset,
		Payload:          msg.Payload,
		ReceivedAt:       msg.Timestamp,
	})
}
