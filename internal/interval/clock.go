package interval

import (
	"errors"
	"fmt"
)

// ErrBadClock is returned for any time-of-day value that is not canonical
// zero-padded 24-hour "HH:MM".
var ErrBadClock = errors.New("time of day must be zero-padded 24-hour HH:MM")

// ParseClock validates a canonical "HH:MM" value and returns its
// minute-of-day. Canonical values order identically as strings and as
// minutes, which is what lets slot spans compare their endpoints as strings.
func ParseClock(v string) (int, error) {
	if len(v) != 5 || v[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, v)
	}
	for _, i := range []int{0, 1, 3, 4} {
		if v[i] < '0' || v[i] > '9' {
			return 0, fmt.Errorf("%w: %q", ErrBadClock, v)
		}
	}
	h := int(v[0]-'0')*10 + int(v[1]-'0')
	m := int(v[3]-'0')*10 + int(v[4]-'0')
	if h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrBadClock, v)
	}
	return h*60 + m, nil
}

// ClockSpan builds a time-of-day span after validating both endpoints are
// canonical and start precedes end.
func ClockSpan(start, end string) (Span[string], error) {
	if _, err := ParseClock(start); err != nil {
		return Span[string]{}, err
	}
	if _, err := ParseClock(end); err != nil {
		return Span[string]{}, err
	}
	s := Span[string]{Start: start, End: end}
	if !Valid(s) {
		return Span[string]{}, fmt.Errorf("start %q must be before end %q", start, end)
	}
	return s, nil
}
