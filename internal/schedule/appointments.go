package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/wolfman30/clinicops/internal/availability"
)

// Querier is the subset of pgx used for reads. *pgxpool.Pool and pgxmock
// satisfy it.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// AppointmentReader loads a professional's booked appointments.
type AppointmentReader struct {
	db Querier
}

// NewAppointmentReader creates a reader over the appointments table.
func NewAppointmentReader(db Querier) *AppointmentReader {
	return &AppointmentReader{db: db}
}

// Booked returns the non-cancelled appointments of a professional that
// overlap window, ordered by start.
func (r *AppointmentReader) Booked(ctx context.Context, clinicID, professionalID string, window availability.Interval) ([]availability.Interval, error) {
	rows, err := r.db.Query(ctx, `
		SELECT starts_at, ends_at
		FROM appointments
		WHERE clinic_id = $1 AND professional_id = $2
		  AND status <> 'cancelled'
		  AND starts_at < $4 AND ends_at > $3
		ORDER BY starts_at ASC`, clinicID, professionalID, window.Start.UTC(), window.End.UTC())
	if err != nil {
		return nil, fmt.Errorf("schedule: query appointments: %w", err)
	}
	defer rows.Close()

	var out []availability.Interval
	for rows.Next() {
		var start, end time.Time
		if err := rows.Scan(&start, &end); err != nil {
			return nil, fmt.Errorf("schedule: scan appointment: %w", err)
		}
		out = append(out, availability.Interval{Start: start.UTC(), End: end.UTC()})
	}
	return out, rows.Err()
}
