package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/restart-clinic/scheduling/internal/scheduling"
)

// CatalogAPI is what the service-catalog handlers need.
type CatalogAPI interface {
	CreateService(ctx context.Context, caller scheduling.Caller, in scheduling.CreateServiceInput) (*scheduling.Service, error)
	UpdateService(ctx context.Context, caller scheduling.Caller, id uuid.UUID, patch scheduling.ServicePatch) (*scheduling.Service, error)
	RemoveService(ctx context.Context, caller scheduling.Caller, id uuid.UUID) (*scheduling.RemoveOutcome, error)
	ListServices(ctx context.Context, caller scheduling.Caller, activeOnly bool) ([]scheduling.Service, error)
}

func createServiceHandler(svc CatalogAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		created, err := svc.CreateService(r.Context(), GetCaller(r.Context()), scheduling.CreateServiceInput{
			Name:        req.Name,
			Description: req.Description,
			DurationMin: req.DurationMin,
			PriceCents:  req.PriceCents,
			Category:    req.Category,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, toServiceResponse(created))
	}
}

func updateServiceHandler(svc CatalogAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "id must be a valid UUID")
			return
		}

		var req UpdateServiceRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		updated, err := svc.UpdateService(r.Context(), GetCaller(r.Context()), id, scheduling.ServicePatch{
			Name:        req.Name,
			Description: req.Description,
			DurationMin: req.DurationMin,
			PriceCents:  req.PriceCents,
			Category:    req.Category,
			Active:      req.Active,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, toServiceResponse(updated))
	}
}

func removeServiceHandler(svc CatalogAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_service_id", "id must be a valid UUID")
			return
		}

		outcome, err := svc.RemoveService(r.Context(), GetCaller(r.Context()), id)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := RemoveServiceResponse{Deleted: outcome.Deleted}
		if outcome.Service != nil {
			s := toServiceResponse(outcome.Service)
			resp.Service = &s
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func listServicesHandler(svc CatalogAPI) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		activeOnly := r.URL.Query().Get("active_only") != "false"

		services, err := svc.ListServices(r.Context(), GetCaller(r.Context()), activeOnly)
		if err != nil {
			writeDomainError(w, err)
			return
		}

		resp := make([]ServiceResponse, 0, len(services))
		for i := range services {
			resp = append(resp, toServiceResponse(&services[i]))
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
