package schedule

import (
	"context"
	"errors"

	"github.com/wolfman30/clinicops/internal/availability"
	"github.com/wolfman30/clinicops/internal/clock"
	"github.com/wolfman30/clinicops/internal/observability/metrics"
	"github.com/wolfman30/clinicops/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("clinicops.internal.schedule")

// ProfileGetter loads a professional's profile.
type ProfileGetter interface {
	Get(ctx context.Context, clinicID, professionalID string) (*Profile, error)
}

// BookingSource loads booked appointments overlapping a window.
type BookingSource interface {
	Booked(ctx context.Context, clinicID, professionalID string, window availability.Interval) ([]availability.Interval, error)
}

// Query selects the professional and dates to compute availability for.
type Query struct {
	ClinicID       string
	ProfessionalID string
	// Date is the first local calendar date (YYYY-MM-DD).
	Date string
	// Days defaults to 1.
	Days int
	// DurationMinutes overrides the profile's slot length when positive.
	DurationMinutes int
}

// Service answers availability queries from stored profiles and busy time.
type Service struct {
	profiles ProfileGetter
	bookings BookingSource
	busy     BusySource
	calc     *availability.Calculator
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger

	defaultLocale string
}

// NewService wires an availability service. A nil busy source means no
// external busy time.
func NewService(profiles ProfileGetter, bookings BookingSource, busy BusySource, c clock.Clock, m *metrics.SchedulingMetrics, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	if busy == nil {
		busy = NoBusySource{}
	}
	return &Service{
		profiles: profiles,
		bookings: bookings,
		busy:     busy,
		calc:     availability.NewCalculator(c),
		metrics:  m,
		logger:   logger,
	}
}

// WithDefaultLocale sets the digest locale used when neither the request nor
// the profile names one.
func (s *Service) WithDefaultLocale(locale string) *Service {
	s.defaultLocale = locale
	return s
}

// Profile returns the stored profile for a professional.
func (s *Service) Profile(ctx context.Context, clinicID, professionalID string) (*Profile, error) {
	return s.profiles.Get(ctx, clinicID, professionalID)
}

// Availability computes slots for each requested day.
func (s *Service) Availability(ctx context.Context, q Query) ([]availability.DaySlots, *Profile, error) {
	ctx, span := tracer.Start(ctx, "schedule.availability")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinicops.clinic_id", q.ClinicID),
		attribute.String("clinicops.professional_id", q.ProfessionalID),
		attribute.String("clinicops.date", q.Date),
		attribute.Int("clinicops.days", q.Days),
	)

	days, profile, err := s.compute(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "availability")
		s.metrics.ObserveAvailability("error", 0)
		return nil, nil, err
	}

	total := len(availability.Flatten(days))
	outcome := "ok"
	if profile.Grid.IsClosed() {
		outcome = "closed"
	}
	s.metrics.ObserveAvailability(outcome, total)
	span.SetAttributes(attribute.Int("clinicops.slots", total))
	return days, profile, nil
}

func (s *Service) compute(ctx context.Context, q Query) ([]availability.DaySlots, *Profile, error) {
	profile, err := s.profiles.Get(ctx, q.ClinicID, q.ProfessionalID)
	if err != nil {
		return nil, nil, err
	}
	days := q.Days
	if days <= 0 {
		days = 1
	}
	if days > availability.MaxRangeDays {
		return nil, nil, availability.ErrRangeTooLong
	}
	window, err := localWindow(q.Date, days, profile.Timezone)
	if err != nil {
		return nil, nil, err
	}

	booked, err := s.bookings.Booked(ctx, q.ClinicID, q.ProfessionalID, window)
	if err != nil {
		return nil, nil, err
	}
	busy, err := s.busy.Busy(ctx, q.ClinicID, q.ProfessionalID, window)
	if err != nil {
		// Calendar sync is best effort; booked appointments still apply.
		s.logger.Warn("schedule: busy source failed", "clinic_id", q.ClinicID,
			"professional_id", q.ProfessionalID, "error", err)
		busy = nil
	}

	duration := profile.SlotDuration()
	if q.DurationMinutes > 0 {
		duration = q.DurationMinutes
	}
	out, err := s.calc.Range(availability.RangeRequest{
		From:            q.Date,
		Days:            days,
		Grid:            profile.Grid,
		DurationMinutes: duration,
		Existing:        booked,
		Timezone:        profile.Timezone,
		BusyBlocks:      busy,
	})
	if err != nil {
		return nil, nil, err
	}
	return out, profile, nil
}

// Digest renders the availability of q as a localized text summary. An
// empty locale uses the profile's locale.
func (s *Service) Digest(ctx context.Context, q Query, locale string) (string, error) {
	days, profile, err := s.Availability(ctx, q)
	if err != nil {
		return "", err
	}
	if locale == "" {
		locale = profile.Locale
	}
	if locale == "" {
		locale = s.defaultLocale
	}
	return availability.FormatSlotsForLLM(availability.Flatten(days), profile.Timezone, locale)
}

// localWindow spans from local midnight of date to local midnight days
// later, in UTC.
func localWindow(date string, days int, timezone string) (availability.Interval, error) {
	loc, err := availability.LoadLocation(timezone)
	if err != nil {
		return availability.Interval{}, err
	}
	d, err := availability.ParseDate(date)
	if err != nil {
		return availability.Interval{}, err
	}
	end := d.AddDate(0, 0, days)
	return availability.Interval{
		Start: availability.ZonedInstant(d.Year(), d.Month(), d.Day(), 0, 0, loc),
		End:   availability.ZonedInstant(end.Year(), end.Month(), end.Day(), 0, 0, loc),
	}, nil
}

// IsClientError reports whether err stems from bad input rather than a
// backend failure.
func IsClientError(err error) bool {
	var verr *availability.ValidationError
	return errors.Is(err, availability.ErrInvalidDate) ||
		errors.Is(err, availability.ErrInvalidDuration) ||
		errors.Is(err, availability.ErrRangeTooLong) ||
		errors.Is(err, availability.ErrUnknownTimezone) ||
		errors.As(err, &verr)
}

