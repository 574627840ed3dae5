package availability

import "time"

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect:
// aStart < bEnd && bStart < aEnd. Touching ranges do not overlap, and an
// empty or inverted range overlaps nothing.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	if !aStart.Before(aEnd) || !bStart.Before(bEnd) {
		return false
	}
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}
