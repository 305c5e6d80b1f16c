package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/restart-clinic/scheduling/internal/scheduling"
)

// BookingAPI is what the appointment handlers need from the orchestrator.
type BookingAPI interface {
	Book(ctx context.Context, caller scheduling.Caller, req scheduling.BookRequest) (*scheduling.Appointment, error)
	Confirm(ctx context.Context, caller scheduling.Caller, id uuid.UUID) (*scheduling.Appointment, error)
	Cancel(ctx context.Context, caller scheduling.Caller, id uuid.UUID) (*scheduling.Appointment, error)
	Complete(ctx context.Context, caller scheduling.Caller, id uuid.UUID) (*scheduling.Appointment, error)
	Get(ctx context.Context, caller scheduling.Caller, id uuid.UUID) (*scheduling.Appointment, error)
	List(ctx context.Context, caller scheduling.Caller, status *scheduling.AppointmentStatus) ([]scheduling.AppointmentDetail, error)
}

func bookAppointmentHandler(svc BookingAPI, metrics *BookingMetrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req BookAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		serviceID, err := uuid.Parse(req.ServiceID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "service_id must be a valid UUID")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		appt, err := svc.Book(r.Context(), GetCaller(r.Context()), scheduling.BookRequest{
			ServiceID:  serviceID,
			ProviderID: providerID,
			Date:       req.AppointmentDate,
			Time:       req.AppointmentTime,
			Notes:      req.Notes,
		})
		metrics.ObserveBooking(bookingOutcome(err))
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
	}
}

func bookingOutcome(err error) string {
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, scheduling.ErrAppointmentOverlap):
		return "conflict"
	case errors.Is(err, scheduling.ErrBusy):
		return "busy"
	case scheduling.IsValidation(err):
		return "invalid"
	default:
		return "error"
	}
}

func listAppointmentsHandler(svc BookingAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var status *scheduling.AppointmentStatus
		if v := r.URL.Query().Get("status"); v != "" {
			s := scheduling.AppointmentStatus(v)
			status = &s
		}

		appts, err := svc.List(r.Context(), GetCaller(r.Context()), status)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]AppointmentResponse, 0, len(appts))
		for _, a := range appts {
			resp = append(resp, toAppointmentDetailResponse(a))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func getAppointmentHandler(svc BookingAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := svc.Get(r.Context(), GetCaller(r.Context()), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}

// transitionHandler serves confirm, cancel and complete; they only differ in
// the service call.
func transitionHandler(metrics *BookingMetrics, to scheduling.AppointmentStatus, call func(ctx context.Context, caller scheduling.Caller, id uuid.UUID) (*scheduling.Appointment, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_appointment_id", "id must be a valid UUID")
			return
		}

		appt, err := call(r.Context(), GetCaller(r.Context()), id)
		if err != nil {
			metrics.ObserveTransition(string(to), "rejected")
			writeDomainError(w, err)
			return
		}
		metrics.ObserveTransition(string(to), "applied")

		writeJSON(w, http.StatusOK, toAppointmentResponse(appt))
	}
}
