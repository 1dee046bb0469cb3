// Package persistence contains helpers shared by repository implementations.
package persistence

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"example.com/extracurricular/internal/domain"
)

// ErrInvalidSeed wraps seed validation failures.
var ErrInvalidSeed = errors.New("invalid seed")

type seedActivity struct {
	ID              string   `yaml:"id"`
	Name            string   `yaml:"name"`
	Description     string   `yaml:"description"`
	Schedule        string   `yaml:"schedule"`
	MaxParticipants int      `yaml:"max_participants"`
	Participants    []string `yaml:"participants"`
}

// LoadSeed returns the activities to populate the registry with. An empty path
// yields the built-in set.
func LoadSeed(path string) ([]domain.Activity, error) {
	if strings.TrimSpace(path) == "" {
		return domain.DefaultActivities(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	return ParseSeed(raw)
}

// ParseSeed decodes a YAML list of activities and validates it.
func ParseSeed(raw []byte) ([]domain.Activity, error) {
	var entries []seedActivity
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSeed, err)
	}

	activities := make([]domain.Activity, 0, len(entries))
	for _, entry := range entries {
		activities = append(activities, domain.Activity{
			ID:              strings.TrimSpace(entry.ID),
			Name:            entry.Name,
			Description:     entry.Description,
			Schedule:        entry.Schedule,
			MaxParticipants: entry.MaxParticipants,
			Participants:    append([]string{}, entry.Participants...),
		})
	}
	if err := ValidateSeed(activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// ValidateSeed checks the registry invariants that must hold at startup.
func ValidateSeed(activities []domain.Activity) error {
	seen := make(map[string]struct{}, len(activities))
	for i, a := range activities {
		if a.ID == "" {
			return fmt.Errorf("%w: activity %d has no id", ErrInvalidSeed, i)
		}
		if _, dup := seen[a.ID]; dup {
			return fmt.Errorf("%w: duplicate activity id %q", ErrInvalidSeed, a.ID)
		}
		seen[a.ID] = struct{}{}

		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("%w: activity %q has no name", ErrInvalidSeed, a.ID)
		}
		if a.MaxParticipants < 0 {
			return fmt.Errorf("%w: activity %q has negative max_participants", ErrInvalidSeed, a.ID)
		}

		emails := make(map[string]struct{}, len(a.Participants))
		for _, email := range a.Participants {
			if _, dup := emails[email]; dup {
				return fmt.Errorf("%w: activity %q lists %q twice", ErrInvalidSeed, a.ID, email)
			}
			emails[email] = struct{}{}
		}
	}
	return nil
}
