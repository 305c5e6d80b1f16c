package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// CatalogService manages the bookable service offerings. Appointments copy
// the price at booking time, so catalog edits never rewrite history, and a
// service with bookings is deactivated instead of deleted.
type CatalogService struct {
	repo Repository
}

func NewCatalogService(repo Repository) *CatalogService {
	return &CatalogService{repo: repo}
}

const DefaultCategory = "GENERAL"

type CreateServiceInput struct {
	Name        string
	Description *string
	DurationMin int
	PriceCents  int
	Category    string
}

type ServicePatch struct {
	Name        *string
	Description *string
	DurationMin *int
	PriceCents  *int
	Category    *string
	Active      *bool
}

// RemoveOutcome tells the caller which branch removeService took: a hard
// delete (Service nil) or a deactivation of a still-referenced service.
type RemoveOutcome struct {
	Deleted bool
	Service *Service
}

func validateServiceFields(name string, durationMin, priceCents int) error {
	if name == "" {
		return invalidf("name", "must not be empty")
	}
	if durationMin <= 0 {
		return invalidf("duration", "must be a positive number of minutes, got %d", durationMin)
	}
	if priceCents < 0 {
		return invalidf("price", "must be non-negative, got %d", priceCents)
	}
	return nil
}

func (s *CatalogService) CreateService(ctx context.Context, caller Caller, in CreateServiceInput) (*Service, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validateServiceFields(in.Name, in.DurationMin, in.PriceCents); err != nil {
		return nil, err
	}

	category := in.Category
	if category == "" {
		category = DefaultCategory
	}

	svc, err := s.repo.CreateService(ctx, &Service{
		ID:          uuid.New(),
		Name:        in.Name,
		Description: in.Description,
		DurationMin: in.DurationMin,
		PriceCents:  in.PriceCents,
		Category:    category,
		Active:      true,
	})
	if err != nil {
		return nil, fmt.Errorf("create service: %w", err)
	}
	return svc, nil
}

// UpdateService patches the touched fields. A price change never reaches
// already-booked appointments; their stored total is immutable.
func (s *CatalogService) UpdateService(ctx context.Context, caller Caller, id uuid.UUID, patch ServicePatch) (*Service, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	svc, err := s.repo.GetServiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	next := *svc
	if patch.Name != nil {
		next.Name = *patch.Name
	}
	if patch.Description != nil {
		next.Description = patch.Description
	}
	if patch.DurationMin != nil {
		next.DurationMin = *patch.DurationMin
	}
	if patch.PriceCents != nil {
		next.PriceCents = *patch.PriceCents
	}
	if patch.Category != nil {
		next.Category = *patch.Category
	}
	if patch.Active != nil {
		next.Active = *patch.Active
	}

	if err := validateServiceFields(next.Name, next.DurationMin, next.PriceCents); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateService(ctx, &next)
	if err != nil {
		return nil, fmt.Errorf("update service: %w", err)
	}
	return updated, nil
}

// RemoveService hard-deletes a service with zero referencing appointments,
// and otherwise only clears its active flag so existing bookings keep their
// reference. The caller can tell the branches apart via the outcome.
func (s *CatalogService) RemoveService(ctx context.Context, caller Caller, id uuid.UUID) (*RemoveOutcome, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	svc, err := s.repo.GetServiceByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrServiceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load service: %w", err)
	}

	refs, err := s.repo.CountAppointmentsForService(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count appointments for service: %w", err)
	}

	if refs > 0 {
		next := *svc
		next.Active = false
		deactivated, err := s.repo.UpdateService(ctx, &next)
		if err != nil {
			return nil, fmt.Errorf("deactivate service: %w", err)
		}
		return &RemoveOutcome{Deleted: false, Service: deactivated}, nil
	}

	if err := s.repo.DeleteService(ctx, id); err != nil {
		return nil, fmt.Errorf("delete service: %w", err)
	}
	return &RemoveOutcome{Deleted: true}, nil
}

// ListServices returns the catalog. Non-admin callers only ever see active
// offerings regardless of the flag they pass.
func (s *CatalogService) ListServices(ctx context.Context, caller Caller, activeOnly bool) ([]Service, error) {
	if !caller.IsAdmin() {
		activeOnly = true
	}

	services, err := s.repo.ListServices(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	return services, nil
}
