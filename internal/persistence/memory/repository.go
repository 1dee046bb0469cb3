// Package memory implements the in-process activity registry.
package memory

import (
	"context"
	"sync"

	"example.com/extracurricular/internal/domain"
	"example.com/extracurricular/internal/observability"
	"example.com/extracurricular/internal/persistence"
)

// entry guards a single activity. Mutations of one participant list are
// serialized by mu; different activities never contend.
type entry struct {
	mu       sync.Mutex
	activity domain.Activity
}

// Repository stores activities in memory for the lifetime of the process.
// The key set is fixed at construction, so lookups need no registry-wide lock.
type Repository struct {
	order   []string
	entries map[string]*entry
}

// NewRepository builds a registry from seed, preserving seed order.
func NewRepository(seed []domain.Activity) (*Repository, error) {
	if err := persistence.ValidateSeed(seed); err != nil {
		return nil, err
	}

	repo := &Repository{
		order:   make([]string, 0, len(seed)),
		entries: make(map[string]*entry, len(seed)),
	}
	for _, activity := range seed {
		repo.order = append(repo.order, activity.ID)
		repo.entries[activity.ID] = &entry{activity: activity.Clone()}
		observability.SetParticipants(activity.ID, len(activity.Participants))
	}
	return repo, nil
}

// List implements domain.Repository.
func (r *Repository) List(ctx context.Context) ([]domain.Activity, error) {
	out := make([]domain.Activity, 0, len(r.order))
	for _, id := range r.order {
		e := r.entries[id]
		e.mu.Lock()
		out = append(out, e.activity.Clone())
		e.mu.Unlock()
	}
	return out, nil
}

// Enroll implements domain.Repository.
func (r *Repository) Enroll(ctx context.Context, activityID, email string, enforceCapacity bool, onChange domain.ChangeFunc) (domain.Activity, error) {
	e, ok := r.entries[activityID]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.activity.HasParticipant(email) {
		return domain.Activity{}, domain.ErrAlreadySignedUp
	}
	if enforceCapacity && e.activity.IsFull() {
		return domain.Activity{}, domain.ErrActivityFull
	}
	e.activity.AddParticipant(email)
	return e.changed(onChange), nil
}

// Withdraw implements domain.Repository.
func (r *Repository) Withdraw(ctx context.Context, activityID, email string, onChange domain.ChangeFunc) (domain.Activity, error) {
	e, ok := r.entries[activityID]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.activity.RemoveParticipant(email) {
		return domain.Activity{}, domain.ErrNotSignedUp
	}
	return e.changed(onChange), nil
}

// changed snapshots the activity and hands it to onChange. Callers hold e.mu.
func (e *entry) changed(onChange domain.ChangeFunc) domain.Activity {
	snapshot := e.activity.Clone()
	if onChange != nil {
		onChange(snapshot.Clone())
	}
	return snapshot
}
