package confirmation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/wolfman30/clinicops/internal/clock"
	"github.com/wolfman30/clinicops/internal/observability/metrics"
	"github.com/wolfman30/clinicops/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("clinicops.internal.confirmation")

// Repository is the persistence surface used by Service and Worker.
// *Store implements it.
type Repository interface {
	InsertEntries(ctx context.Context, entries []Entry, now time.Time) ([]Entry, error)
	RearmEntries(ctx context.Context, entries []Entry, now time.Time) ([]Entry, error)
	ClaimDue(ctx context.Context, asOf time.Time, limit int, lease time.Duration) ([]Delivery, error)
	ListByAppointment(ctx context.Context, clinicID, appointmentID string) ([]Delivery, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts, maxAttempts int, nextAt time.Time, reason string) error
	CancelForAppointment(ctx context.Context, clinicID, appointmentID string) (int64, error)
	Stats(ctx context.Context, clinicID string) (*Stats, error)
}

// Service schedules reminders for booked appointments.
type Service struct {
	repo      Repository
	publisher Publisher
	clock     clock.Clock
	metrics   *metrics.SchedulingMetrics
	logger    *logging.Logger
}

// NewService wires a reminder service. A nil publisher disables fan-out and a
// nil clock means the system clock.
func NewService(repo Repository, publisher Publisher, c clock.Clock, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if publisher == nil {
		publisher = NopPublisher{}
	}
	return &Service{repo: repo, publisher: publisher, clock: clock.OrSystem(c), metrics: m, logger: logger}
}

// Schedule builds the entries for an appointment, stores them and publishes
// them. Stages already queued for the appointment are skipped, so the
// returned slice holds only newly queued entries and may be empty.
func (s *Service) Schedule(ctx context.Context, in Input) ([]Entry, error) {
	return s.schedule(ctx, in, "confirmation.schedule", s.repo.InsertEntries)
}

// Reschedule drops pending reminders for the appointment and queues every
// stage still ahead of the new start, re-arming stages that were already
// sent or failed for the old start.
func (s *Service) Reschedule(ctx context.Context, in Input) ([]Entry, error) {
	if _, err := s.Cancel(ctx, in.ClinicID, in.AppointmentID); err != nil {
		return nil, err
	}
	return s.schedule(ctx, in, "confirmation.reschedule", s.repo.RearmEntries)
}

type writeFunc func(ctx context.Context, entries []Entry, now time.Time) ([]Entry, error)

func (s *Service) schedule(ctx context.Context, in Input, op string, write writeFunc) ([]Entry, error) {
	ctx, span := tracer.Start(ctx, op)
	defer span.End()
	span.SetAttributes(
		attribute.String("clinicops.clinic_id", in.ClinicID),
		attribute.String("clinicops.appointment_id", in.AppointmentID),
	)

	now := s.clock.Now()
	built := BuildEntries(now, in)
	span.SetAttributes(attribute.Int("clinicops.entries", len(built)))
	if len(built) == 0 {
		s.logger.Info("confirmation: appointment too close for reminders",
			"clinic_id", in.ClinicID, "appointment_id", in.AppointmentID, "starts_at", in.StartsAt)
		return built, nil
	}

	entries, err := write(ctx, built, now)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write entries")
		return nil, err
	}
	if skipped := skippedStages(built, entries); len(skipped) > 0 {
		s.logger.Info("confirmation: stages already queued",
			"clinic_id", in.ClinicID, "appointment_id", in.AppointmentID, "stages", skipped)
	}
	if len(entries) == 0 {
		return entries, nil
	}

	if err := s.publisher.Publish(ctx, entries); err != nil {
		// Entries are already durable; the worker delivers from the table.
		s.logger.Warn("confirmation: publish failed", "appointment_id", in.AppointmentID, "error", err)
		span.RecordError(err)
	}

	for _, e := range entries {
		s.metrics.ObserveScheduled(string(e.Stage))
	}
	s.logger.Info("confirmation: reminders scheduled",
		"clinic_id", in.ClinicID, "appointment_id", in.AppointmentID, "count", len(entries))
	return entries, nil
}

func skippedStages(built, written []Entry) []string {
	seen := make(map[Stage]bool, len(written))
	for _, e := range written {
		seen[e.Stage] = true
	}
	var skipped []string
	for _, e := range built {
		if !seen[e.Stage] {
			skipped = append(skipped, string(e.Stage))
		}
	}
	return skipped
}

// List returns every reminder stored for an appointment with its delivery
// state.
func (s *Service) List(ctx context.Context, clinicID, appointmentID string) ([]Delivery, error) {
	deliveries, err := s.repo.ListByAppointment(ctx, clinicID, appointmentID)
	if err != nil {
		return nil, err
	}
	if deliveries == nil {
		deliveries = []Delivery{}
	}
	return deliveries, nil
}

// Cancel removes reminders not yet sent.
func (s *Service) Cancel(ctx context.Context, clinicID, appointmentID string) (int64, error) {
	n, err := s.repo.CancelForAppointment(ctx, clinicID, appointmentID)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.logger.Info("confirmation: pending reminders cancelled",
			"clinic_id", clinicID, "appointment_id", appointmentID, "count", n)
	}
	return n, nil
}

// Stats returns reminder counts for a clinic.
func (s *Service) Stats(ctx context.Context, clinicID string) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, clinicID)
	if err != nil {
		return nil, fmt.Errorf("confirmation: stats for %s: %w", clinicID, err)
	}
	return stats, nil
}
