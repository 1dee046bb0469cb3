// Package events defines the enrollment event payloads shared by the api and consumer binaries.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Enrollment event types.
const (
	TypeSignedUp     = "enrollment.signed_up"
	TypeUnregistered = "enrollment.unregistered"
)

// Enrollment is emitted whenever a participant list changes.
type Enrollment struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	ActivityID       string    `json:"activity_id"`
	ActivityName     string    `json:"activity_name"`
	Email            string    `json:"email"`
	ParticipantCount int       `json:"participant_count"`
	OccurredAt       time.Time `json:"occurred_at"`
}

// NewEnrollment stamps a fresh event ID and timestamp.
func NewEnrollment(eventType, activityID, activityName, email string, participantCount int) Enrollment {
	return Enrollment{
		EventID:          uuid.NewString(),
		EventType:        eventType,
		ActivityID:       activityID,
		ActivityName:     activityName,
		Email:            email,
		ParticipantCount: participantCount,
		OccurredAt:       time.Now().UTC(),
	}
}

// Known reports whether the event type is one this service emits.
func Known(eventType string) bool {
	return eventType == TypeSignedUp || eventType == TypeUnregistered
}
