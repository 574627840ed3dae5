// Package schedule holds per-professional working grids and the sources of
// busy time, and serves availability lookups built on them.
package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/wolfman30/clinicops/internal/availability"
)

// ErrNotFound is returned when no profile is stored for a professional.
var ErrNotFound = errors.New("schedule: profile not found")

// DefaultSlotMinutes applies when a profile does not set a slot length.
const DefaultSlotMinutes = 30

// Profile is a professional's weekly working grid and the settings used to
// turn it into slots.
type Profile struct {
	ClinicID       string                  `json:"clinic_id"`
	ProfessionalID string                  `json:"professional_id"`
	Timezone       string                  `json:"timezone"`
	Locale         string                  `json:"locale,omitempty"`
	SlotMinutes    int                     `json:"slot_minutes"`
	Grid           availability.WeeklyGrid `json:"grid"`
}

// Validate checks the timezone, slot length and grid.
func (p *Profile) Validate() error {
	var problems []string
	if strings.TrimSpace(p.ClinicID) == "" || strings.TrimSpace(p.ProfessionalID) == "" {
		problems = append(problems, "clinic_id and professional_id are required")
	}
	if _, err := availability.LoadLocation(p.Timezone); err != nil {
		problems = append(problems, err.Error())
	}
	if p.SlotMinutes < 0 {
		problems = append(problems, fmt.Sprintf("slot_minutes must be positive, got %d", p.SlotMinutes))
	}
	if err := p.Grid.Validate(); err != nil {
		var verr *availability.ValidationError
		if errors.As(err, &verr) {
			problems = append(problems, verr.Problems...)
		} else {
			problems = append(problems, err.Error())
		}
	}
	if len(problems) > 0 {
		return &availability.ValidationError{Problems: problems}
	}
	return nil
}

// SlotDuration returns the slot length in minutes, defaulting when unset.
func (p *Profile) SlotDuration() int {
	if p.SlotMinutes <= 0 {
		return DefaultSlotMinutes
	}
	return p.SlotMinutes
}

// ProfileStore persists profiles in Redis.
type ProfileStore struct {
	redis *redis.Client
}

// NewProfileStore creates a profile store.
func NewProfileStore(redisClient *redis.Client) *ProfileStore {
	return &ProfileStore{redis: redisClient}
}

func (s *ProfileStore) key(clinicID, professionalID string) string {
	return fmt.Sprintf("schedule:profile:%s:%s", clinicID, professionalID)
}

// Get loads a profile, returning ErrNotFound when none is stored.
func (s *ProfileStore) Get(ctx context.Context, clinicID, professionalID string) (*Profile, error) {
	data, err := s.redis.Get(ctx, s.key(clinicID, professionalID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("schedule: get profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("schedule: unmarshal profile: %w", err)
	}
	return &p, nil
}

// Set validates and saves a profile.
func (s *ProfileStore) Set(ctx context.Context, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("schedule: marshal profile: %w", err)
	}
	if err := s.redis.Set(ctx, s.key(p.ClinicID, p.ProfessionalID), data, 0).Err(); err != nil {
		return fmt.Errorf("schedule: set profile: %w", err)
	}
	return nil
}

// Delete removes a profile. Deleting a missing profile is not an error.
func (s *ProfileStore) Delete(ctx context.Context, clinicID, professionalID string) error {
	if err := s.redis.Del(ctx, s.key(clinicID, professionalID)).Err(); err != nil {
		return fmt.Errorf("schedule: delete profile: %w", err)
	}
	return nil
}
