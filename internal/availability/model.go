// Package availability computes bookable appointment slots for a professional
// from a weekly working-hours grid, existing bookings and external busy
// blocks, and renders them as a localized digest for agents and UIs.
package availability

import (
	"fmt"
	"time"
)

// TimeBlock is a local wall-clock working window, e.g. {"08:00", "12:00"}.
// It carries no date and no timezone.
type TimeBlock struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// WeeklyGrid holds the working blocks for each weekday. A nil or empty day
// means closed.
type WeeklyGrid struct {
	Monday    []TimeBlock `json:"monday,omitempty"`
	Tuesday   []TimeBlock `json:"tuesday,omitempty"`
	Wednesday []TimeBlock `json:"wednesday,omitempty"`
	Thursday  []TimeBlock `json:"thursday,omitempty"`
	Friday    []TimeBlock `json:"friday,omitempty"`
	Saturday  []TimeBlock `json:"saturday,omitempty"`
	Sunday    []TimeBlock `json:"sunday,omitempty"`
}

// Day returns the blocks configured for weekday.
func (g *WeeklyGrid) Day(weekday time.Weekday) []TimeBlock {
	switch weekday {
	case time.Sunday:
		return g.Sunday
	case time.Monday:
		return g.Monday
	case time.Tuesday:
		return g.Tuesday
	case time.Wednesday:
		return g.Wednesday
	case time.Thursday:
		return g.Thursday
	case time.Friday:
		return g.Friday
	case time.Saturday:
		return g.Saturday
	default:
		return nil
	}
}

// IsClosed reports whether no weekday has any block.
func (g *WeeklyGrid) IsClosed() bool {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if len(g.Day(d)) > 0 {
			return false
		}
	}
	return true
}

// Interval is a committed span of time: an existing appointment or a busy
// block reported by a connected calendar.
type Interval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// ParseInterval parses a pair of ISO-8601 instants.
func ParseInterval(start, end string) (Interval, error) {
	s, err := ParseInstant(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseInstant(end)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: s, End: e}, nil
}

// ParseInstant parses an RFC 3339 instant, with or without fractional seconds.
func ParseInstant(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("availability: parse instant %q: %w", raw, err)
	}
	return t.UTC(), nil
}

// Overlaps reports whether i and other share any instant.
func (i Interval) Overlaps(other Interval) bool {
	return Overlaps(i.Start, i.End, other.Start, other.End)
}

// Slot is a bookable window of exactly the requested duration.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Interval returns the slot as a half-open interval.
func (s Slot) Interval() Interval {
	return Interval{Start: s.Start, End: s.End}
}
