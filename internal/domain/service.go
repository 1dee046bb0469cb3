// Package domain defines the business logic for the activity directory.
package domain

import (
	"context"
	"errors"
	"fmt"
	"log"

	"example.com/extracurricular/internal/events"
	"example.com/extracurricular/internal/observability"
)

var (
	// ErrActivityNotFound is returned when the activity key is not in the registry.
	ErrActivityNotFound = errors.New("activity not found")
	// ErrAlreadySignedUp is returned when the email is already enrolled in the activity.
	ErrAlreadySignedUp = errors.New("student already signed up for this activity")
	// ErrNotSignedUp is returned when unregistering an email that is not enrolled.
	ErrNotSignedUp = errors.New("student not signed up for this activity")
	// ErrActivityFull is returned when capacity enforcement is enabled and the activity is at capacity.
	ErrActivityFull = errors.New("activity is full")
)

// Operation labels used for metrics.
const (
	OperationSignup     = "signup"
	OperationUnregister = "unregister"
)

// ChangeFunc observes an activity right after its participant list changed.
type ChangeFunc func(Activity)

// Repository owns the activity registry. Enroll and Withdraw must perform their
// check and mutation atomically with respect to other calls on the same activity,
// and must invoke a non-nil onChange before another call on that activity can
// mutate it, so observers see changes in mutation order.
type Repository interface {
	List(ctx context.Context) ([]Activity, error)
	Enroll(ctx context.Context, activityID, email string, enforceCapacity bool, onChange ChangeFunc) (Activity, error)
	Withdraw(ctx context.Context, activityID, email string, onChange ChangeFunc) (Activity, error)
}

// EventRecorder receives enrollment events after a participant list changes.
type EventRecorder interface {
	Record(ctx context.Context, evt events.Enrollment) error
}

// NoopRecorder discards events.
type NoopRecorder struct{}

// Record performs no action.
func (NoopRecorder) Record(context.Context, events.Enrollment) error { return nil }

// Option configures optional behaviour for the Service.
type Option func(*Service)

// WithCapacityEnforcement rejects sign ups once an activity reaches max participants.
func WithCapacityEnforcement(enabled bool) Option {
	return func(s *Service) {
		s.enforceCapacity = enabled
	}
}

// WithEventRecorder routes enrollment events to recorder.
func WithEventRecorder(recorder EventRecorder) Option {
	return func(s *Service) {
		if recorder != nil {
			s.recorder = recorder
		}
	}
}

// WithLogger overrides the logger used to report event recording failures.
func WithLogger(logger *log.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// Service orchestrates the list, sign up and unregister workflows.
type Service struct {
	repo            Repository
	recorder        EventRecorder
	enforceCapacity bool
	logger          *log.Logger
}

// NewService constructs a Service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{
		repo:     repo,
		recorder: NoopRecorder{},
		logger:   log.New(log.Writer(), "[domain] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListActivities returns every activity in registry order.
func (s *Service) ListActivities(ctx context.Context) ([]Activity, error) {
	return s.repo.List(ctx)
}

// SignUp enrolls email in the activity and returns a confirmation message.
func (s *Service) SignUp(ctx context.Context, activityID, email string) (string, error) {
	activity, err := s.repo.Enroll(ctx, activityID, email, s.enforceCapacity, s.observe(ctx, OperationSignup, events.TypeSignedUp, email))
	if err != nil {
		observability.RecordRejection(OperationSignup, rejectionReason(err))
		return "", err
	}
	return fmt.Sprintf("Signed up %s for %s", email, activity.Name), nil
}

// Unregister removes email from the activity and returns a confirmation message.
func (s *Service) Unregister(ctx context.Context, activityID, email string) (string, error) {
	activity, err := s.repo.Withdraw(ctx, activityID, email, s.observe(ctx, OperationUnregister, events.TypeUnregistered, email))
	if err != nil {
		observability.RecordRejection(OperationUnregister, rejectionReason(err))
		return "", err
	}
	return fmt.Sprintf("Unregistered %s from %s", email, activity.Name), nil
}

// observe returns the hook that updates metrics and records the enrollment event.
// It runs under the repository's per-activity lock, so the recorder must not block.
// Recording failures never fail the caller: the registry change has already been applied.
func (s *Service) observe(ctx context.Context, operation, eventType, email string) ChangeFunc {
	return func(activity Activity) {
		count := len(activity.Participants)
		observability.RecordEnrollmentChange(operation, activity.ID, count)

		evt := events.NewEnrollment(eventType, activity.ID, activity.Name, email, count)
		if err := s.recorder.Record(ctx, evt); err != nil {
			s.logger.Printf("enrollment event dropped (event_type=%s, activity=%s): %v", evt.EventType, evt.ActivityID, err)
		}
	}
}

func rejectionReason(err error) string {
	switch {
	case errors.Is(err, ErrActivityNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadySignedUp):
		return "already_signed_up"
	case errors.Is(err, ErrNotSignedUp):
		return "not_signed_up"
	case errors.Is(err, ErrActivityFull):
		return "activity_full"
	default:
		return "error"
	}
}
