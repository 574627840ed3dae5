package availability

import (
	"errors"
	"fmt"
	"time"

	"github.com/wolfman30/clinicops/internal/clock"
)

// MaxRangeDays bounds multi-day lookups.
const MaxRangeDays = 62

var (
	// ErrInvalidDuration is returned for a non-positive slot duration.
	ErrInvalidDuration = errors.New("availability: duration must be positive")
	// ErrRangeTooLong is returned when a range request exceeds MaxRangeDays.
	ErrRangeTooLong = fmt.Errorf("availability: range exceeds %d days", MaxRangeDays)
)

// Request describes one day's slot computation.
type Request struct {
	// Date is the calendar date (YYYY-MM-DD) in the clinic's timezone.
	Date            string
	Grid            WeeklyGrid
	DurationMinutes int
	// Existing are the professional's booked appointments.
	Existing []Interval
	// Timezone is the IANA zone the grid is expressed in.
	Timezone string
	// BusyBlocks are externally reported busy spans, e.g. from a synced calendar.
	BusyBlocks []Interval
}

// Calculator computes available slots relative to its clock.
type Calculator struct {
	clock clock.Clock
}

// NewCalculator creates a calculator. A nil clock means the system clock.
func NewCalculator(c clock.Clock) *Calculator {
	return &Calculator{clock: clock.OrSystem(c)}
}

// Slots returns the bookable slots for req.Date. See AvailableSlots.
func (c *Calculator) Slots(req Request) ([]Slot, error) {
	return AvailableSlots(c.clock.Now(), req)
}

// AvailableSlots walks each of the day's working blocks in steps of the
// requested duration and returns every candidate slot that overlaps no busy
// interval and does not start before now.
//
// Blocks are processed in grid order and slots within a block are
// chronological; blocks are not re-sorted against each other. A closed day
// yields an empty, non-nil slice. A block whose times do not parse, or whose
// end is not after its start, yields no slots.
func AvailableSlots(now time.Time, req Request) ([]Slot, error) {
	if req.DurationMinutes <= 0 {
		return nil, fmt.Errorf("%w (got %d)", ErrInvalidDuration, req.DurationMinutes)
	}
	day, err := ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	loc, err := LoadLocation(req.Timezone)
	if err != nil {
		return nil, err
	}

	// Weekday is read at UTC noon so no zone offset can move the date.
	weekday := day.Add(12 * time.Hour).Weekday()
	blocks := req.Grid.Day(weekday)
	slots := []Slot{}
	if len(blocks) == 0 {
		return slots, nil
	}

	busy := make([]Interval, 0, len(req.Existing)+len(req.BusyBlocks))
	busy = append(busy, req.Existing...)
	busy = append(busy, req.BusyBlocks...)

	duration := time.Duration(req.DurationMinutes) * time.Minute
	for _, block := range blocks {
		start, err := LocalToUTC(req.Date, block.Start, loc)
		if err != nil {
			continue
		}
		end, err := LocalToUTC(req.Date, block.End, loc)
		if err != nil {
			continue
		}
		for cursor := start; !cursor.Add(duration).After(end); cursor = cursor.Add(duration) {
			slotEnd := cursor.Add(duration)
			if overlapsAny(cursor, slotEnd, busy) {
				continue
			}
			if cursor.Before(now) {
				continue
			}
			slots = append(slots, Slot{Start: cursor, End: slotEnd})
		}
	}
	return slots, nil
}

// RangeRequest asks for slots on Days consecutive dates starting at From.
type RangeRequest struct {
	From            string
	Days            int
	Grid            WeeklyGrid
	DurationMinutes int
	Existing        []Interval
	Timezone        string
	BusyBlocks      []Interval
}

// DaySlots groups the slots computed for one date.
type DaySlots struct {
	Date  string `json:"date"`
	Slots []Slot `json:"slots"`
}

// Range computes slots for each date in the range using one clock reading,
// so a slot cannot expire half-way through the walk.
func (c *Calculator) Range(req RangeRequest) ([]DaySlots, error) {
	days := req.Days
	if days <= 0 {
		days = 1
	}
	if days > MaxRangeDays {
		return nil, ErrRangeTooLong
	}
	from, err := ParseDate(req.From)
	if err != nil {
		return nil, err
	}

	now := c.clock.Now()
	out := make([]DaySlots, 0, days)
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i).Format(DateLayout)
		slots, err := AvailableSlots(now, Request{
			Date:            date,
			Grid:            req.Grid,
			DurationMinutes: req.DurationMinutes,
			Existing:        req.Existing,
			Timezone:        req.Timezone,
			BusyBlocks:      req.BusyBlocks,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, DaySlots{Date: date, Slots: slots})
	}
	return out, nil
}

// Flatten concatenates the slots of every day in order.
func Flatten(days []DaySlots) []Slot {
	var out []Slot
	for _, d := range days {
		out = append(out, d.Slots...)
	}
	return out
}
