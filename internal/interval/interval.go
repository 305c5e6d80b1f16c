// Package interval provides the half-open interval arithmetic shared by
// every conflict check in the scheduler. Two interval domains use it:
// time-of-day strings for weekly availability and absolute instants for
// appointments.
package interval

import (
	"cmp"
	"time"
)

// Span is a half-open interval [Start, End). The zero value is empty.
type Span[T cmp.Ordered] struct {
	Start T
	End   T
}

// Overlaps reports whether a and b share any point. Because both ends are
// half-open, an interval ending exactly where another begins does not
// overlap, so back-to-back bookings are legal.
func Overlaps[T cmp.Ordered](a, b Span[T]) bool {
	return a.Start < b.End && b.Start < a.End
}

// Contains reports whether p lies inside s.
func Contains[T cmp.Ordered](s Span[T], p T) bool {
	return s.Start <= p && p < s.End
}

// Valid reports whether s has positive extent.
func Valid[T cmp.Ordered](s Span[T]) bool {
	return s.Start < s.End
}

// Times maps an absolute-instant interval onto Unix nanoseconds so that
// appointments go through the same Overlaps predicate as time-of-day slots.
func Times(start, end time.Time) Span[int64] {
	return Span[int64]{Start: start.UnixNano(), End: end.UnixNano()}
}
