package availability

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, name string) *time.Location {
	t.Helper()
	loc, err := LoadLocation(name)
	require.NoError(t, err)
	return loc
}

func utc(t *testing.T, raw string) time.Time {
	t.Helper()
	v, err := time.Parse(time.RFC3339, raw)
	require.NoError(t, err)
	return v.UTC()
}

func TestLocalToUTCGoldenCases(t *testing.T) {
	tests := []struct {
		name string
		tz   string
		date string
		hhmm string
		want string
	}{
		{"sao paulo fixed offset", "America/Sao_Paulo", "2026-02-16", "08:00", "2026-02-16T11:00:00Z"},
		{"utc zone", "UTC", "2026-02-16", "08:00", "2026-02-16T08:00:00Z"},
		{"new york winter", "America/New_York", "2026-01-15", "09:00", "2026-01-15T14:00:00Z"},
		{"new york summer", "America/New_York", "2026-07-15", "09:00", "2026-07-15T13:00:00Z"},
		{"new york before spring forward", "America/New_York", "2026-03-08", "01:30", "2026-03-08T06:30:00Z"},
		{"new york spring forward gap moves past gap", "America/New_York", "2026-03-08", "02:30", "2026-03-08T07:30:00Z"},
		{"new york after spring forward", "America/New_York", "2026-03-08", "03:00", "2026-03-08T07:00:00Z"},
		{"new york fall back overlap takes earlier", "America/New_York", "2026-11-01", "01:30", "2026-11-01T05:30:00Z"},
		{"new york after fall back", "America/New_York", "2026-11-01", "03:00", "2026-11-01T08:00:00Z"},
		{"sydney spring forward gap", "Australia/Sydney", "2026-10-04", "02:30", "2026-10-03T16:30:00Z"},
		{"sydney fall back overlap takes earlier", "Australia/Sydney", "2026-04-05", "02:30", "2026-04-04T15:30:00Z"},
		{"sydney winter", "Australia/Sydney", "2026-07-01", "09:00", "2026-06-30T23:00:00Z"},
		{"kolkata half hour offset", "Asia/Kolkata", "2026-02-16", "09:00", "2026-02-16T03:30:00Z"},
		{"end of day", "America/Sao_Paulo", "2026-02-16", "24:00", "2026-02-17T03:00:00Z"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LocalToUTC(tt.date, tt.hhmm, mustLoad(t, tt.tz))
			require.NoError(t, err)
			assert.Equal(t, utc(t, tt.want), got, "got %s", got.Format(time.RFC3339))
		})
	}
}

func TestLocalToUTCIgnoresHostZone(t *testing.T) {
	saved := time.Local
	t.Cleanup(func() { time.Local = saved })
	time.Local = mustLoad(t, "Asia/Tokyo")

	got, err := LocalToUTC("2026-02-16", "08:00", mustLoad(t, "America/Sao_Paulo"))
	require.NoError(t, err)
	assert.Equal(t, utc(t, "2026-02-16T11:00:00Z"), got)
}

func TestLocalToUTCErrors(t *testing.T) {
	loc := mustLoad(t, "America/Sao_Paulo")

	_, err := LocalToUTC("16/02/2026", "08:00", loc)
	assert.True(t, errors.Is(err, ErrInvalidDate))

	for _, bad := range []string{"8:00", "08-00", "25:00", "24:30", "08:60", "+1:00", "", "ab:cd"} {
		_, err := LocalToUTC("2026-02-16", bad, loc)
		assert.Truef(t, errors.Is(err, ErrInvalidClock), "expected clock error for %q, got %v", bad, err)
	}
}

func TestLoadLocationRejectsUnknownZone(t *testing.T) {
	_, err := LoadLocation("Mars/Olympus_Mons")
	assert.True(t, errors.Is(err, ErrUnknownTimezone))

	_, err = LoadLocation("  ")
	assert.True(t, errors.Is(err, ErrUnknownTimezone))
}

func TestOverlapsStrictInequalities(t *testing.T) {
	base := utc(t, "2026-02-16T12:00:00Z")
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }

	tests := []struct {
		name                   string
		aStart, aEnd, bS, bEnd int
		want                   bool
	}{
		{"identical", 0, 30, 0, 30, true},
		{"partial", 0, 30, 15, 45, true},
		{"contained", 0, 60, 15, 30, true},
		{"a ends when b starts", 0, 30, 30, 60, false},
		{"b ends when a starts", 30, 60, 0, 30, false},
		{"disjoint", 0, 10, 20, 30, false},
		{"zero length inside", 15, 15, 0, 30, false},
		{"zero length both", 10, 10, 10, 10, false},
		{"inverted busy", 0, 30, 30, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(at(tt.aStart), at(tt.aEnd), at(tt.bS), at(tt.bEnd))
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Overlaps(at(tt.bS), at(tt.bEnd), at(tt.aStart), at(tt.aEnd)), "overlap must be symmetric")
		})
	}
}
