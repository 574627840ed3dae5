package confirmation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresDirectoryRecipient(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	start := time.Date(2026, 2, 16, 12, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`FROM appointments a\s+JOIN clinics c`).
		WithArgs("c1", "a1").
		WillReturnRows(pgxmock.NewRows([]string{
			"patient_name", "patient_email", "patient_phone", "professional_name", "starts_at",
			"name", "timezone", "locale",
		}).AddRow("Ana", "ana@example.com", "+5511999990000", "Dra. Lima", start,
			"Clínica Sorriso", "America/Sao_Paulo", "pt-BR"))

	r, err := NewPostgresDirectory(mock).Recipient(context.Background(), "c1", "a1")
	require.NoError(t, err)
	assert.Equal(t, "Ana", r.PatientName)
	assert.Equal(t, "ana@example.com", r.Email)
	assert.Equal(t, "America/Sao_Paulo", r.Timezone)
	assert.True(t, r.StartsAt.Equal(start))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDirectoryNotFound(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`FROM appointments`).
		WithArgs("c1", "gone").
		WillReturnError(pgx.ErrNoRows)

	_, err = NewPostgresDirectory(mock).Recipient(context.Background(), "c1", "gone")
	assert.True(t, errors.Is(err, ErrRecipientNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
