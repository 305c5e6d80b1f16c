package scheduling

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	StatusPending   AppointmentStatus = "PENDING"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusCompleted AppointmentStatus = "COMPLETED"
)

// Active reports whether the status participates in the provider
// non-overlap invariant. CANCELLED and COMPLETED are terminal and never
// block new bookings.
func (s AppointmentStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Terminal reports whether no further transition is permitted.
func (s AppointmentStatus) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// CanTransitionTo encodes the status state machine:
// PENDING -> CONFIRMED | CANCELLED, CONFIRMED -> CANCELLED | COMPLETED.
func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	switch s {
	case StatusPending:
		return to == StatusConfirmed || to == StatusCancelled
	case StatusConfirmed:
		return to == StatusCancelled || to == StatusCompleted
	default:
		return false
	}
}

type Role string

const (
	RoleAdmin   Role = "ADMIN"
	RolePatient Role = "PATIENT"
)

// Caller identifies the pre-authenticated actor invoking an operation.
// Identity and role come from the fronting identity layer; the engine only
// makes authorization decisions with them.
type Caller struct {
	ID   uuid.UUID
	Role Role
}

func (c Caller) IsAdmin() bool { return c.Role == RoleAdmin }

type Provider struct {
	ID          uuid.UUID
	Name        string
	Specialties []string
	Active      bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Service struct {
	ID          uuid.UUID
	Name        string
	Description *string
	// DurationMin is the appointment length in minutes, always > 0.
	DurationMin int
	// PriceCents is in minor currency units, always >= 0.
	PriceCents int
	Category   string
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AvailabilitySlot is a recurring weekly open-hours window for one provider.
// Start and End are canonical "HH:MM" time-of-day values, start < end.
type AvailabilitySlot struct {
	ID         uuid.UUID
	ProviderID uuid.UUID
	// DayOfWeek is 0=Sunday .. 6=Saturday.
	DayOfWeek int
	Start     string
	End       string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Appointment struct {
	ID         uuid.UUID
	PatientID  uuid.UUID
	ProviderID uuid.UUID
	ServiceID  uuid.UUID
	StartTime  time.Time
	EndTime    time.Time
	Status     AppointmentStatus
	// TotalCents is copied from the service price at booking time and never
	// changes afterwards, even if the service is repriced.
	TotalCents int
	Notes      *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// AppointmentDetail hydrates an appointment with the display fields the
// listing surfaces need.
type AppointmentDetail struct {
	Appointment
	ServiceName  string
	ProviderName string
}

type EventLog struct {
	ID            int64
	EventType     string
	AppointmentID *uuid.UUID
	Payload       []byte
	CreatedAt     time.Time
}
