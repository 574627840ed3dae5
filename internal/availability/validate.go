package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// ValidationError lists every problem found in a weekly grid.
type ValidationError struct {
	Problems []string
}

func (e *ValidationError) Error() string {
	return "availability: invalid schedule grid: " + strings.Join(e.Problems, "; ")
}

// Validate checks that every block is a well-formed "HH:MM" pair with
// start before end, and that blocks within a day do not overlap.
//
// The calculator does not require a valid grid; it yields no slots for a
// broken block and tolerates overlapping ones. Validate exists for the
// layers that accept grids from users.
func (g *WeeklyGrid) Validate() error {
	var problems []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		problems = append(problems, validateDay(d, g.Day(d))...)
	}
	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

type minuteSpan struct {
	start, end int
	block      TimeBlock
}

func validateDay(day time.Weekday, blocks []TimeBlock) []string {
	name := strings.ToLower(day.String())
	var problems []string
	spans := make([]minuteSpan, 0, len(blocks))

	for i, b := range blocks {
		sh, sm, errStart := ParseClock(b.Start)
		eh, em, errEnd := ParseClock(b.End)
		if errStart != nil || errEnd != nil {
			problems = append(problems, fmt.Sprintf("%s[%d]: times must be HH:MM (got %q-%q)", name, i, b.Start, b.End))
			continue
		}
		start, end := sh*60+sm, eh*60+em
		if start >= end {
			problems = append(problems, fmt.Sprintf("%s[%d]: start %s is not before end %s", name, i, b.Start, b.End))
			continue
		}
		spans = append(spans, minuteSpan{start: start, end: end, block: b})
	}

	sort.SliceStable(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	for i := 1; i < len(spans); i++ {
		prev, cur := spans[i-1], spans[i]
		if cur.start < prev.end {
			problems = append(problems, fmt.Sprintf("%s: block %s-%s overlaps %s-%s",
				name, cur.block.Start, cur.block.End, prev.block.Start, prev.block.End))
		}
	}
	return problems
}
