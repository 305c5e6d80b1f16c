package scheduling

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/restart-clinic/scheduling/internal/interval"
	redisclient "github.com/restart-clinic/scheduling/internal/redis"
)

const (
	EventAppointmentCreated   = "APPOINTMENT_CREATED"
	EventAppointmentConfirmed = "APPOINTMENT_CONFIRMED"
	EventAppointmentCancelled = "APPOINTMENT_CANCELLED"
	EventAppointmentCompleted = "APPOINTMENT_COMPLETED"
)

// BookingService is the entry point for patient-facing booking and the
// appointment status state machine. The overlap check and the insert run
// under a per-provider lock, so two concurrent bookings for the same
// provider can never both observe a clear schedule; bookings for different
// providers stay fully concurrent.
type BookingService struct {
	repo   Repository
	locker redisclient.Locker
}

func NewBookingService(repo Repository, locker redisclient.Locker) *BookingService {
	return &BookingService{
		repo:   repo,
		locker: locker,
	}
}

type BookRequest struct {
	ServiceID  uuid.UUID
	ProviderID uuid.UUID
	// Date is "YYYY-MM-DD", Time is canonical "HH:MM".
	Date  string
	Time  string
	Notes *string
}

// combineDateTime turns the wire date and time into the appointment start
// instant. UTC keeps the result independent of where the server runs.
func combineDateTime(date, clock string) (time.Time, error) {
	if _, err := interval.ParseClock(clock); err != nil {
		return time.Time{}, invalidf("appointment_time", "%v", err)
	}
	t, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		return time.Time{}, invalidf("appointment_date", "must be YYYY-MM-DD, got %q", date)
	}
	return t.UTC(), nil
}

// Book reserves [start, start+duration) for the calling patient. On any
// failure no appointment row is written.
func (s *BookingService) Book(ctx context.Context, caller Caller, req BookRequest) (*Appointment, error) {
	if caller.Role != RolePatient {
		return nil, ErrForbidden
	}

	svc, err := s.repo.GetServiceByID(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}
	if !svc.Active {
		return nil, invalidf("service", "service %q is not bookable", svc.Name)
	}

	provider, err := s.repo.GetProviderByID(ctx, req.ProviderID)
	if err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}
	if !provider.Active {
		return nil, invalidf("provider", "provider %q is not accepting bookings", provider.Name)
	}

	start, err := combineDateTime(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	end := start.Add(time.Duration(svc.DurationMin) * time.Minute)

	var created *Appointment

	err = s.locker.WithProviderLock(ctx, provider.ID, func(lockCtx context.Context) error {
		// Inside the critical section re-check the provider's schedule;
		// only PENDING and CONFIRMED appointments block the interval.
		existing, err := s.repo.FindOverlappingAppointment(lockCtx, provider.ID, start, end)
		if err != nil {
			return fmt.Errorf("check appointment overlap: %w", err)
		}
		if existing != nil {
			return ErrAppointmentOverlap
		}

		appt, err := s.repo.CreateAppointment(lockCtx, &Appointment{
			ID:         uuid.New(),
			PatientID:  caller.ID,
			ProviderID: provider.ID,
			ServiceID:  svc.ID,
			StartTime:  start,
			EndTime:    end,
			Status:     StatusPending,
			TotalCents: svc.PriceCents,
			Notes:      req.Notes,
		})
		if err != nil {
			return fmt.Errorf("create appointment: %w", err)
		}

		created = appt

		s.logEvent(lockCtx, appt.ID, EventAppointmentCreated, map[string]any{
			"patient_id":  caller.ID.String(),
			"provider_id": provider.ID.String(),
			"service_id":  svc.ID.String(),
			"start_time":  start,
			"end_time":    end,
			"total_cents": svc.PriceCents,
		})

		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBusy
		}
		return nil, err
	}

	return created, nil
}

// Confirm moves a pending appointment to confirmed. Admin only.
func (s *BookingService) Confirm(ctx context.Context, caller Caller, id uuid.UUID) (*Appointment, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.transition(ctx, id, StatusConfirmed, EventAppointmentConfirmed)
}

// Cancel is allowed for admins on any appointment and for a patient on
// their own. Works from PENDING or CONFIRMED; terminal statuses refuse.
func (s *BookingService) Cancel(ctx context.Context, caller Caller, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !caller.IsAdmin() && appt.PatientID != caller.ID {
		return nil, ErrForbidden
	}

	return s.transition(ctx, id, StatusCancelled, EventAppointmentCancelled)
}

// Complete marks a confirmed appointment as carried out. Admin only; there
// is no automatic sweep past the end time.
func (s *BookingService) Complete(ctx context.Context, caller Caller, id uuid.UUID) (*Appointment, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.transition(ctx, id, StatusCompleted, EventAppointmentCompleted)
}

// transition applies the state machine with a compare-and-swap so a racing
// status change cannot be overwritten: the UPDATE only matches the status
// we just read, and a miss reports the transition as invalid.
func (s *BookingService) transition(ctx context.Context, id uuid.UUID, to AppointmentStatus, event string) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !appt.Status.CanTransitionTo(to) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, appt.Status, to)
	}

	updated, err := s.repo.UpdateAppointmentStatus(ctx, appt.ID, appt.Status, to)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, fmt.Errorf("%w: appointment changed concurrently", ErrInvalidTransition)
		}
		return nil, fmt.Errorf("update appointment status: %w", err)
	}

	s.logEvent(ctx, updated.ID, event, map[string]any{
		"from": string(appt.Status),
		"to":   string(to),
	})

	return updated, nil
}

// Get returns one appointment; patients can only read their own.
func (s *BookingService) Get(ctx context.Context, caller Caller, id uuid.UUID) (*Appointment, error) {
	appt, err := s.repo.GetAppointmentByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrAppointmentNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load appointment: %w", err)
	}

	if !caller.IsAdmin() && appt.PatientID != caller.ID {
		return nil, ErrForbidden
	}

	return appt, nil
}

// List is role-scoped: admins see every appointment, optionally filtered by
// status; patients see their own, and without an explicit status filter
// appointments that already started are left out.
func (s *BookingService) List(ctx context.Context, caller Caller, status *AppointmentStatus) ([]AppointmentDetail, error) {
	if status != nil && !validStatus(*status) {
		return nil, invalidf("status", "unknown status %q", string(*status))
	}

	if caller.IsAdmin() {
		appts, err := s.repo.ListAppointments(ctx, status)
		if err != nil {
			return nil, fmt.Errorf("list appointments: %w", err)
		}
		return appts, nil
	}

	upcomingOnly := status == nil
	appts, err := s.repo.ListAppointmentsByPatient(ctx, caller.ID, status, upcomingOnly)
	if err != nil {
		return nil, fmt.Errorf("list patient appointments: %w", err)
	}
	return appts, nil
}

func validStatus(s AppointmentStatus) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

func (s *BookingService) logEvent(ctx context.Context, appointmentID uuid.UUID, eventType string, payload map[string]any) {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("failed to marshal event payload for %s: %v", eventType, err)
		data = nil
	}

	apptID := appointmentID

	ev := EventLog{
		EventType:     eventType,
		AppointmentID: &apptID,
		Payload:       data,
		CreatedAt:     time.Now(),
	}

	if err := s.repo.InsertEvent(ctx, ev); err != nil {
		log.Printf("failed to insert event log %s for appointment %s: %v", eventType, appointmentID, err)
	}
}
