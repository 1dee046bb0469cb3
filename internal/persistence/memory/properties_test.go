package memory

import (
	"context"
	"errors"
	"slices"
	"testing"

	"pgregory.net/rapid"

	"example.com/extracurricular/internal/domain"
)

// TestRegistryMatchesModel drives random sign ups and unregistrations against
// the registry and a plain map model, comparing the listed state after each step.
func TestRegistryMatchesModel(t *testing.T) {
	ids := []string{"chess", "programming", "drama", "unknown"}

	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		repo, err := NewRepository(domain.DefaultActivities())
		if err != nil {
			rt.Fatalf("seed registry: %v", err)
		}

		model := make(map[string][]string)
		for _, a := range domain.DefaultActivities() {
			model[a.ID] = slices.Clone(a.Participants)
		}

		steps := rapid.IntRange(1, 40).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			id := rapid.SampledFrom(ids).Draw(rt, "activity")
			email := rapid.StringMatching(`[a-c]{1,2}@mergington\.edu`).Draw(rt, "email")
			signup := rapid.Bool().Draw(rt, "signup")

			participants, known := model[id]
			if signup {
				_, err = repo.Enroll(ctx, id, email, false, nil)
			} else {
				_, err = repo.Withdraw(ctx, id, email, nil)
			}

			switch {
			case !known:
				if !errors.Is(err, domain.ErrActivityNotFound) {
					rt.Fatalf("expected not found for %s, got %v", id, err)
				}
			case signup && slices.Contains(participants, email):
				if !errors.Is(err, domain.ErrAlreadySignedUp) {
					rt.Fatalf("expected already signed up, got %v", err)
				}
			case signup:
				if err != nil {
					rt.Fatalf("enroll %s in %s: %v", email, id, err)
				}
				model[id] = append(participants, email)
			case !slices.Contains(participants, email):
				if !errors.Is(err, domain.ErrNotSignedUp) {
					rt.Fatalf("expected not signed up, got %v", err)
				}
			default:
				if err != nil {
					rt.Fatalf("withdraw %s from %s: %v", email, id, err)
				}
				idx := slices.Index(participants, email)
				model[id] = slices.Delete(participants, idx, idx+1)
			}

			listed, err := repo.List(ctx)
			if err != nil {
				rt.Fatalf("list: %v", err)
			}
			for _, a := range listed {
				if !slices.Equal(a.Participants, model[a.ID]) {
					rt.Fatalf("activity %s: registry %v, model %v", a.ID, a.Participants, model[a.ID])
				}
			}
		}
	})
}
