package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository contains all DB interactions needed by the scheduling services.
// Lookup methods return the Err*NotFound sentinels when no row matches; the
// Find* conflict probes return (nil, nil) when the schedule is clear.
type Repository interface {
	// Providers
	GetProviderByID(ctx context.Context, id uuid.UUID) (*Provider, error)
	ListProviders(ctx context.Context, activeOnly bool) ([]Provider, error)

	// Availability slots
	CreateSlot(ctx context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error)
	GetSlotByID(ctx context.Context, id uuid.UUID) (*AvailabilitySlot, error)
	UpdateSlot(ctx context.Context, s *AvailabilitySlot) (*AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error
	ListSlots(ctx context.Context, providerID uuid.UUID, activeOnly bool) ([]AvailabilitySlot, error)
	// FindOverlappingSlot probes for an active slot of (providerID, day)
	// overlapping [start, end), ignoring the slot with id exclude when it
	// is not uuid.Nil (slot edits are validated as if atomically replacing
	// themselves).
	FindOverlappingSlot(ctx context.Context, providerID uuid.UUID, day int, start, end string, exclude uuid.UUID) (*AvailabilitySlot, error)

	// Service catalog
	CreateService(ctx context.Context, s *Service) (*Service, error)
	GetServiceByID(ctx context.Context, id uuid.UUID) (*Service, error)
	UpdateService(ctx context.Context, s *Service) (*Service, error)
	DeleteService(ctx context.Context, id uuid.UUID) error
	ListServices(ctx context.Context, activeOnly bool) ([]Service, error)
	CountAppointmentsForService(ctx context.Context, serviceID uuid.UUID) (int64, error)

	// Appointments
	CreateAppointment(ctx context.Context, a *Appointment) (*Appointment, error)
	GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	// FindOverlappingAppointment probes for a PENDING or CONFIRMED
	// appointment of providerID overlapping [start, end) as absolute
	// instants.
	FindOverlappingAppointment(ctx context.Context, providerID uuid.UUID, start, end time.Time) (*Appointment, error)
	// UpdateAppointmentStatus is a compare-and-swap: the row moves from ->
	// to only if it is still in from, otherwise ErrAppointmentNotFound.
	UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error)
	ListAppointmentsByPatient(ctx context.Context, patientID uuid.UUID, status *AppointmentStatus, upcomingOnly bool) ([]AppointmentDetail, error)
	ListAppointments(ctx context.Context, status *AppointmentStatus) ([]AppointmentDetail, error)

	// Event logging
	InsertEvent(ctx context.Context, ev EventLog) error
}
