package availability

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the calendar date format accepted by the calculator.
const DateLayout = "2006-01-02"

var (
	// ErrInvalidClock is returned for a wall-clock value that is not "HH:MM".
	ErrInvalidClock = errors.New("availability: invalid HH:MM clock value")
	// ErrInvalidDate is returned for a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("availability: invalid date")
	// ErrUnknownTimezone is returned when the zone database has no such zone.
	ErrUnknownTimezone = errors.New("availability: unknown timezone")
)

// LoadLocation resolves an IANA zone name. It never falls back to UTC.
func LoadLocation(name string) (*time.Location, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty name", ErrUnknownTimezone)
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrUnknownTimezone, name, err)
	}
	return loc, nil
}

// ParseDate parses a YYYY-MM-DD calendar date. The result is midnight UTC
// and only its year, month and day are meaningful.
func ParseDate(date string) (time.Time, error) {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, date)
	}
	return d, nil
}

// ParseClock parses "HH:MM" into hour and minute. "24:00" is accepted as the
// end of the day.
func ParseClock(value string) (hour, minute int, err error) {
	h, m, ok := strings.Cut(strings.TrimSpace(value), ":")
	if !ok || len(h) != 2 || len(m) != 2 || !isDigits(h) || !isDigits(m) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	hour, errH := strconv.Atoi(h)
	minute, errM := strconv.Atoi(m)
	if errH != nil || errM != nil || hour < 0 || minute < 0 || minute > 59 || hour > 24 || (hour == 24 && minute != 0) {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidClock, value)
	}
	return hour, minute, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// LocalToUTC converts a wall-clock time on a calendar date in loc to the
// instant it denotes.
func LocalToUTC(date, hhmm string, loc *time.Location) (time.Time, error) {
	d, err := ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	hour, minute, err := ParseClock(hhmm)
	if err != nil {
		return time.Time{}, err
	}
	return ZonedInstant(d.Year(), d.Month(), d.Day(), hour, minute, loc), nil
}

// ZonedInstant returns the UTC instant at which clocks in loc show the given
// wall time. The offset is discovered from the zone rules for that date
// rather than from the host's local zone.
//
// Wall times that occur twice (when clocks fall back) resolve to the earlier
// instant. Wall times that never occur (when clocks spring forward) are read
// with the offset in force before the transition, which lands after the gap:
// 02:30 in a 02:00-03:00 gap becomes 03:30.
func ZonedInstant(year int, month time.Month, day, hour, minute int, loc *time.Location) time.Time {
	guess := time.Date(year, month, day, hour, minute, 0, 0, time.UTC)
	if loc == nil || loc == time.UTC {
		return guess
	}

	offBefore := offsetAt(guess.Add(-24*time.Hour), loc)
	offAfter := offsetAt(guess.Add(24*time.Hour), loc)

	early := guess.Add(-offBefore)
	if offBefore == offAfter {
		return early
	}
	late := guess.Add(-offAfter)
	if late.Before(early) {
		early, late = late, early
	}

	switch {
	case showsWall(early, guess, loc):
		return early
	case showsWall(late, guess, loc):
		return late
	default:
		return guess.Add(-offBefore)
	}
}

// offsetAt is the zone's UTC offset in effect at instant t.
func offsetAt(t time.Time, loc *time.Location) time.Duration {
	_, seconds := t.In(loc).Zone()
	return time.Duration(seconds) * time.Second
}

// showsWall reports whether instant t, viewed in loc, reads the same wall
// fields as wall (a UTC value carrying the wanted fields).
func showsWall(t, wall time.Time, loc *time.Location) bool {
	local := t.In(loc)
	y, m, d := local.Date()
	wy, wm, wd := wall.Date()
	return y == wy && m == wm && d == wd && local.Hour() == wall.Hour() && local.Minute() == wall.Minute()
}
