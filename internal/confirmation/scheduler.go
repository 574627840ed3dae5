package confirmation

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/clinicops/internal/clock"
)

// ErrInvalidInput is returned by ParseInput for missing identifiers or a
// malformed start instant.
var ErrInvalidInput = errors.New("confirmation: invalid input")

// Entry is one reminder to be queued for an appointment.
type Entry struct {
	ID            uuid.UUID `json:"id,omitempty"`
	ClinicID      string    `json:"clinic_id"`
	AppointmentID string    `json:"appointment_id"`
	Stage         Stage     `json:"stage"`
	Status        Status    `json:"status"`
	ScheduledAt   time.Time `json:"scheduled_at"`
	Attempts      int       `json:"attempts"`
}

// Input identifies the appointment reminders are built for.
type Input struct {
	ClinicID      string
	AppointmentID string
	StartsAt      time.Time
}

// ParseInput builds an Input from request fields; startsAt is RFC 3339.
func ParseInput(clinicID, appointmentID, startsAt string) (Input, error) {
	clinicID = strings.TrimSpace(clinicID)
	appointmentID = strings.TrimSpace(appointmentID)
	if clinicID == "" || appointmentID == "" {
		return Input{}, fmt.Errorf("%w: clinic_id and appointment_id are required", ErrInvalidInput)
	}
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(startsAt))
	if err != nil {
		return Input{}, fmt.Errorf("%w: starts_at %q is not an RFC 3339 instant", ErrInvalidInput, startsAt)
	}
	return Input{ClinicID: clinicID, AppointmentID: appointmentID, StartsAt: t.UTC()}, nil
}

// Scheduler builds reminder entries relative to its clock.
type Scheduler struct {
	clock clock.Clock
}

// NewScheduler creates a scheduler. A nil clock means the system clock.
func NewScheduler(c clock.Clock) *Scheduler {
	return &Scheduler{clock: clock.OrSystem(c)}
}

// BuildEntries returns the reminders for in that are still in the future.
func (s *Scheduler) BuildEntries(in Input) []Entry {
	return BuildEntries(s.clock.Now(), in)
}

// BuildEntries returns one pending entry per stage whose time is strictly
// after now, in stage-table order. A stage due at or before now is omitted,
// so an appointment less than two hours away yields no entries.
func BuildEntries(now time.Time, in Input) []Entry {
	entries := make([]Entry, 0, len(Stages))
	for _, def := range Stages {
		at := in.StartsAt.Add(-def.Offset()).UTC()
		if !at.After(now) {
			continue
		}
		entries = append(entries, Entry{
			ClinicID:      in.ClinicID,
			AppointmentID: in.AppointmentID,
			Stage:         def.Stage,
			Status:        StatusPending,
			ScheduledAt:   at,
			Attempts:      0,
		})
	}
	return entries
}
