package api

import (
	"time"

	"github.com/google/uuid"

	"github.com/restart-clinic/scheduling/internal/scheduling"
)

type CreateSlotRequest struct {
	ProviderID string `json:"provider_id"`
	DayOfWeek  int    `json:"day_of_week"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
}

type UpdateSlotRequest struct {
	DayOfWeek *int    `json:"day_of_week,omitempty"`
	StartTime *string `json:"start_time,omitempty"`
	EndTime   *string `json:"end_time,omitempty"`
	Active    *bool   `json:"active,omitempty"`
}

type SlotResponse struct {
	ID         uuid.UUID `json:"id"`
	ProviderID uuid.UUID `json:"provider_id"`
	DayOfWeek  int       `json:"day_of_week"`
	StartTime  string    `json:"start_time"`
	EndTime    string    `json:"end_time"`
	Active     bool      `json:"active"`
}

func toSlotResponse(s *scheduling.AvailabilitySlot) SlotResponse {
	return SlotResponse{
		ID:         s.ID,
		ProviderID: s.ProviderID,
		DayOfWeek:  s.DayOfWeek,
		StartTime:  s.Start,
		EndTime:    s.End,
		Active:     s.Active,
	}
}

type CreateServiceRequest struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	DurationMin int     `json:"duration_min"`
	PriceCents  int     `json:"price_cents"`
	Category    string  `json:"category,omitempty"`
}

type UpdateServiceRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	DurationMin *int    `json:"duration_min,omitempty"`
	PriceCents  *int    `json:"price_cents,omitempty"`
	Category    *string `json:"category,omitempty"`
	Active      *bool   `json:"active,omitempty"`
}

type ServiceResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"`
	DurationMin int       `json:"duration_min"`
	PriceCents  int       `json:"price_cents"`
	Category    string    `json:"category"`
	Active      bool      `json:"active"`
}

func toServiceResponse(s *scheduling.Service) ServiceResponse {
	return ServiceResponse{
		ID:          s.ID,
		Name:        s.Name,
		Description: s.Description,
		DurationMin: s.DurationMin,
		PriceCents:  s.PriceCents,
		Category:    s.Category,
		Active:      s.Active,
	}
}

// RemoveServiceResponse reports which branch the removal took: deleted is
// true for a hard delete, otherwise service carries the deactivated record.
type RemoveServiceResponse struct {
	Deleted bool             `json:"deleted"`
	Service *ServiceResponse `json:"service,omitempty"`
}

type ProviderResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Specialties []string  `json:"specialties"`
	Active      bool      `json:"active"`
}

type BookAppointmentRequest struct {
	ServiceID       string  `json:"service_id"`
	ProviderID      string  `json:"provider_id"`
	AppointmentDate string  `json:"appointment_date"`
	AppointmentTime string  `json:"appointment_time"`
	Notes           *string `json:"notes,omitempty"`
}

type AppointmentResponse struct {
	ID           uuid.UUID `json:"id"`
	PatientID    uuid.UUID `json:"patient_id"`
	ProviderID   uuid.UUID `json:"provider_id"`
	ServiceID    uuid.UUID `json:"service_id"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Status       string    `json:"status"`
	TotalCents   int       `json:"total_cents"`
	Notes        *string   `json:"notes,omitempty"`
	ServiceName  string    `json:"service_name,omitempty"`
	ProviderName string    `json:"provider_name,omitempty"`
}

func toAppointmentResponse(a *scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:         a.ID,
		PatientID:  a.PatientID,
		ProviderID: a.ProviderID,
		ServiceID:  a.ServiceID,
		StartTime:  a.StartTime,
		EndTime:    a.EndTime,
		Status:     string(a.Status),
		TotalCents: a.TotalCents,
		Notes:      a.Notes,
	}
}

func toAppointmentDetailResponse(d scheduling.AppointmentDetail) AppointmentResponse {
	resp := toAppointmentResponse(&d.Appointment)
	resp.ServiceName = d.ServiceName
	resp.ProviderName = d.ProviderName
	return resp
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
