package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/restart-clinic/scheduling/internal/scheduling"
)

// AvailabilityAPI is what the availability handlers need from the store.
type AvailabilityAPI interface {
	CreateSlot(ctx context.Context, caller scheduling.Caller, providerID uuid.UUID, day int, start, end string) (*scheduling.AvailabilitySlot, error)
	UpdateSlot(ctx context.Context, caller scheduling.Caller, id uuid.UUID, patch scheduling.SlotPatch) (*scheduling.AvailabilitySlot, error)
	DeactivateSlot(ctx context.Context, caller scheduling.Caller, id uuid.UUID) (*scheduling.AvailabilitySlot, error)
	DeleteSlot(ctx context.Context, caller scheduling.Caller, id uuid.UUID) error
	ListSlots(ctx context.Context, caller scheduling.Caller, providerID uuid.UUID, activeOnly bool) ([]scheduling.AvailabilitySlot, error)
	ListProviders(ctx context.Context, activeOnly bool) ([]scheduling.Provider, error)
}

func createSlotHandler(svc AvailabilityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		providerID, err := uuid.Parse(req.ProviderID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		slot, err := svc.CreateSlot(r.Context(), GetCaller(r.Context()), providerID, req.DayOfWeek, req.StartTime, req.EndTime)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toSlotResponse(slot))
	}
}

func updateSlotHandler(svc AvailabilityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		var req UpdateSlotRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		slot, err := svc.UpdateSlot(r.Context(), GetCaller(r.Context()), id, scheduling.SlotPatch{
			DayOfWeek: req.DayOfWeek,
			Start:     req.StartTime,
			End:       req.EndTime,
			Active:    req.Active,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func deactivateSlotHandler(svc AvailabilityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		slot, err := svc.DeactivateSlot(r.Context(), GetCaller(r.Context()), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toSlotResponse(slot))
	}
}

func deleteSlotHandler(svc AvailabilityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_slot_id", "id must be a valid UUID")
			return
		}

		if err := svc.DeleteSlot(r.Context(), GetCaller(r.Context()), id); err != nil {
			writeDomainError(w, err)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

func listSlotsHandler(svc AvailabilityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providerID, err := uuid.Parse(r.URL.Query().Get("provider_id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_provider_id", "provider_id must be a valid UUID")
			return
		}

		activeOnly := r.URL.Query().Get("active_only") != "false"

		slots, err := svc.ListSlots(r.Context(), GetCaller(r.Context()), providerID, activeOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]SlotResponse, 0, len(slots))
		for i := range slots {
			resp = append(resp, toSlotResponse(&slots[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listProvidersHandler(svc AvailabilityAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		providers, err := svc.ListProviders(r.Context(), true)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]ProviderResponse, 0, len(providers))
		for _, p := range providers {
			resp = append(resp, ProviderResponse{
				ID:          p.ID,
				Name:        p.Name,
				Specialties: p.Specialties,
				Active:      p.Active,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
