package confirmation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// PostgresDirectory resolves recipients from the appointments and clinics
// tables.
type PostgresDirectory struct {
	db DB
}

// NewPostgresDirectory creates a directory backed by db.
func NewPostgresDirectory(db DB) *PostgresDirectory {
	return &PostgresDirectory{db: db}
}

func (d *PostgresDirectory) Recipient(ctx context.Context, clinicID, appointmentID string) (*Recipient, error) {
	row := d.db.QueryRow(ctx, `
		SELECT a.patient_name, a.patient_email, a.patient_phone, a.professional_name, a.starts_at,
		       c.name, c.timezone, c.locale
		FROM appointments a
		JOIN clinics c ON c.id = a.clinic_id
		WHERE a.clinic_id = $1 AND a.id = $2 AND a.status <> 'cancelled'`, clinicID, appointmentID)

	var r Recipient
	err := row.Scan(&r.PatientName, &r.Email, &r.Phone, &r.Professional, &r.StartsAt,
		&r.ClinicName, &r.Timezone, &r.Locale)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: appointment %s", ErrRecipientNotFound, appointmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("confirmation: resolve recipient: %w", err)
	}
	r.StartsAt = r.StartsAt.UTC()
	return &r, nil
}
