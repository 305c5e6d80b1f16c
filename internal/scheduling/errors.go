package scheduling

import (
	"errors"
	"fmt"
)

// Business failures callers can act on. Storage failures are wrapped with
// %w and surface as none of these, which the API edge maps to a generic
// internal error.
var (
	ErrProviderNotFound    = errors.New("provider not found")
	ErrServiceNotFound     = errors.New("service not found")
	ErrSlotNotFound        = errors.New("availability slot not found")
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrSlotOverlap and ErrAppointmentOverlap are the two conflict
	// outcomes; the input is fine, the time is taken.
	ErrSlotOverlap        = errors.New("slot overlaps an existing active slot")
	ErrAppointmentOverlap = errors.New("time is already booked for this provider")

	ErrInvalidTransition = errors.New("invalid appointment status transition")
	ErrForbidden         = errors.New("caller is not allowed to perform this operation")

	// ErrBusy means the provider's schedule lock could not be acquired in
	// time. Unlike the rest of the taxonomy it is safe to retry as-is.
	ErrBusy = errors.New("provider schedule is busy, retry shortly")
)

// ValidationError reports malformed input: bad day-of-week, non-positive
// duration, start >= end, negative price.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func invalidf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
