package confirmation

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface for testing.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Delivery is a persisted entry together with its delivery bookkeeping.
type Delivery struct {
	Entry
	NextAttemptAt time.Time  `json:"next_attempt_at"`
	LastError     string     `json:"last_error,omitempty"`
	SentAt        *time.Time `json:"sent_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Stats holds reminder counts for one clinic.
type Stats struct {
	Pending int64 `json:"pending"`
	Sent    int64 `json:"sent"`
	Failed  int64 `json:"failed"`
}

// Store persists entries in the appointment_confirmations queue table.
type Store struct {
	db DB
}

// NewStore creates a new confirmation store.
func NewStore(db DB) *Store {
	return &Store{db: db}
}

const deliveryColumns = `id, clinic_id, appointment_id, stage, status, scheduled_at, attempts, next_attempt_at, last_error, sent_at, created_at, updated_at`

// InsertEntries queues entries in one statement, assigning IDs to entries
// that have none. A (clinic, appointment, stage) triple already present is
// left as is, so repeating a booking hook does not duplicate reminders. Only
// the rows actually written are returned.
func (s *Store) InsertEntries(ctx context.Context, entries []Entry, now time.Time) ([]Entry, error) {
	return s.upsert(ctx, entries, now, `DO NOTHING`)
}

// RearmEntries queues entries like InsertEntries, but an existing row for
// the same stage is reset to pending at the new time whatever its status.
// Rescheduling uses it so a reminder already sent for the old start is sent
// again for the new one. The returned entries carry the stored row IDs.
func (s *Store) RearmEntries(ctx context.Context, entries []Entry, now time.Time) ([]Entry, error) {
	return s.upsert(ctx, entries, now, `DO UPDATE SET
			status = 'pending',
			scheduled_at = EXCLUDED.scheduled_at,
			attempts = 0,
			next_attempt_at = EXCLUDED.next_attempt_at,
			last_error = NULL,
			sent_at = NULL,
			updated_at = EXCLUDED.updated_at`)
}

func (s *Store) upsert(ctx context.Context, entries []Entry, now time.Time, onConflict string) ([]Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}
	now = now.UTC()

	const cols = 9
	values := make([]string, 0, len(entries))
	args := make([]any, 0, len(entries)*cols)
	for i := range entries {
		e := &entries[i]
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.Status == "" {
			e.Status = StatusPending
		}
		n := i * cols
		values = append(values, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			n+1, n+2, n+3, n+4, n+5, n+6, n+7, n+6, n+8, n+9))
		args = append(args, e.ID, e.ClinicID, e.AppointmentID, string(e.Stage), string(e.Status),
			e.ScheduledAt.UTC(), e.Attempts, now, now)
	}

	rows, err := s.db.Query(ctx, `
		INSERT INTO appointment_confirmations (id, clinic_id, appointment_id, stage, status, scheduled_at, attempts, next_attempt_at, created_at, updated_at)
		VALUES `+strings.Join(values, ", ")+`
		ON CONFLICT (clinic_id, appointment_id, stage) `+onConflict+`
		RETURNING id, clinic_id, appointment_id, stage`, args...)
	if err != nil {
		return nil, fmt.Errorf("confirmation: insert entries: %w", err)
	}
	defer rows.Close()

	written := make(map[string]uuid.UUID, len(entries))
	for rows.Next() {
		var id uuid.UUID
		var clinicID, appointmentID, stage string
		if err := rows.Scan(&id, &clinicID, &appointmentID, &stage); err != nil {
			return nil, fmt.Errorf("confirmation: scan inserted entry: %w", err)
		}
		written[entryKey(clinicID, appointmentID, Stage(stage))] = id
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("confirmation: insert entries: %w", err)
	}

	stored := make([]Entry, 0, len(written))
	for _, e := range entries {
		id, ok := written[entryKey(e.ClinicID, e.AppointmentID, e.Stage)]
		if !ok {
			continue
		}
		e.ID = id
		stored = append(stored, e)
	}
	return stored, nil
}

func entryKey(clinicID, appointmentID string, stage Stage) string {
	return clinicID + "/" + appointmentID + "/" + string(stage)
}

// ClaimDue leases up to limit pending entries whose next attempt is on or
// before asOf. Claimed rows have next_attempt_at pushed to asOf+lease, and
// rows locked by another worker are skipped, so concurrent workers never
// pick the same entry. A claim that is neither marked sent nor failed
// becomes due again once the lease expires.
func (s *Store) ClaimDue(ctx context.Context, asOf time.Time, limit int, lease time.Duration) ([]Delivery, error) {
	if limit <= 0 {
		limit = 50
	}
	asOf = asOf.UTC()
	rows, err := s.db.Query(ctx, `
		UPDATE appointment_confirmations
		SET next_attempt_at = $3, updated_at = $1
		WHERE id IN (
			SELECT id
			FROM appointment_confirmations
			WHERE status = 'pending' AND next_attempt_at <= $1
			ORDER BY next_attempt_at ASC
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+deliveryColumns, asOf, limit, asOf.Add(lease))
	if err != nil {
		return nil, fmt.Errorf("confirmation: claim due: %w", err)
	}
	defer rows.Close()
	due, err := scanDeliveries(rows)
	if err != nil {
		return nil, err
	}
	sort.Slice(due, func(i, j int) bool { return due[i].ScheduledAt.Before(due[j].ScheduledAt) })
	return due, nil
}

// ListByAppointment returns every entry queued for an appointment.
func (s *Store) ListByAppointment(ctx context.Context, clinicID, appointmentID string) ([]Delivery, error) {
	rows, err := s.db.Query(ctx, `
		SELECT `+deliveryColumns+`
		FROM appointment_confirmations
		WHERE clinic_id = $1 AND appointment_id = $2
		ORDER BY scheduled_at ASC`, clinicID, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("confirmation: list by appointment: %w", err)
	}
	defer rows.Close()
	return scanDeliveries(rows)
}

// MarkSent transitions an entry from pending to sent.
func (s *Store) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	at = at.UTC()
	tag, err := s.db.Exec(ctx, `
		UPDATE appointment_confirmations
		SET status = 'sent', sent_at = $1, attempts = attempts + 1, updated_at = $1
		WHERE id = $2 AND status = 'pending'`, at, id)
	if err != nil {
		return fmt.Errorf("confirmation: mark sent: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("confirmation: mark sent: no pending entry with id %s", id)
	}
	return nil
}

// MarkFailed records a failed attempt. The entry stays pending for a retry
// at nextAt until attempts reaches maxAttempts, then becomes failed.
func (s *Store) MarkFailed(ctx context.Context, id uuid.UUID, attempts, maxAttempts int, nextAt time.Time, reason string) error {
	status := StatusPending
	if attempts >= maxAttempts {
		status = StatusFailed
	}
	_, err := s.db.Exec(ctx, `
		UPDATE appointment_confirmations
		SET attempts = $2, status = $3, next_attempt_at = $4, last_error = $5, updated_at = now()
		WHERE id = $1`, id, attempts, string(status), nextAt.UTC(), reason)
	if err != nil {
		return fmt.Errorf("confirmation: mark failed: %w", err)
	}
	return nil
}

// CancelForAppointment removes reminders not yet sent, e.g. after the
// appointment is cancelled or rescheduled.
func (s *Store) CancelForAppointment(ctx context.Context, clinicID, appointmentID string) (int64, error) {
	tag, err := s.db.Exec(ctx, `
		DELETE FROM appointment_confirmations
		WHERE clinic_id = $1 AND appointment_id = $2 AND status = 'pending'`, clinicID, appointmentID)
	if err != nil {
		return 0, fmt.Errorf("confirmation: cancel for appointment: %w", err)
	}
	return tag.RowsAffected(), nil
}

// Stats returns reminder counts by status for a clinic.
func (s *Store) Stats(ctx context.Context, clinicID string) (*Stats, error) {
	row := s.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending') AS pending,
			COUNT(*) FILTER (WHERE status = 'sent') AS sent,
			COUNT(*) FILTER (WHERE status = 'failed') AS failed
		FROM appointment_confirmations
		WHERE clinic_id = $1`, clinicID)

	var stats Stats
	if err := row.Scan(&stats.Pending, &stats.Sent, &stats.Failed); err != nil {
		return nil, fmt.Errorf("confirmation: stats: %w", err)
	}
	return &stats, nil
}

func scanDeliveries(rows pgx.Rows) ([]Delivery, error) {
	var result []Delivery
	for rows.Next() {
		var d Delivery
		var stage, status string
		var lastError *string
		err := rows.Scan(
			&d.ID, &d.ClinicID, &d.AppointmentID, &stage, &status,
			&d.ScheduledAt, &d.Attempts, &d.NextAttemptAt, &lastError,
			&d.SentAt, &d.CreatedAt, &d.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("confirmation: scan entry: %w", err)
		}
		d.Stage = Stage(stage)
		d.Status = Status(status)
		if lastError != nil {
			d.LastError = *lastError
		}
		result = append(result, d)
	}
	return result, rows.Err()
}
