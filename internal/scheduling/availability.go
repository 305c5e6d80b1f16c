package scheduling

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/restart-clinic/scheduling/internal/interval"
	redisclient "github.com/restart-clinic/scheduling/internal/redis"
)

// AvailabilityService owns a provider's recurring weekly open hours. Its one
// invariant: active slots of the same (provider, weekday) never overlap.
type AvailabilityService struct {
	repo   Repository
	locker redisclient.Locker
}

func NewAvailabilityService(repo Repository, locker redisclient.Locker) *AvailabilityService {
	return &AvailabilityService{
		repo:   repo,
		locker: locker,
	}
}

// SlotPatch carries the fields of an update; nil fields stay untouched.
type SlotPatch struct {
	DayOfWeek *int
	Start     *string
	End       *string
	Active    *bool
}

func validateSlotWindow(day int, start, end string) error {
	if day < 0 || day > 6 {
		return invalidf("day_of_week", "must be between 0 (Sunday) and 6 (Saturday), got %d", day)
	}
	if _, err := interval.ParseClock(start); err != nil {
		return invalidf("start_time", "%v", err)
	}
	if _, err := interval.ParseClock(end); err != nil {
		return invalidf("end_time", "%v", err)
	}
	if !interval.Valid(interval.Span[string]{Start: start, End: end}) {
		return invalidf("time_window", "start %q must be before end %q", start, end)
	}
	return nil
}

// CreateSlot adds a weekly open-hours window for a provider. The overlap
// check and the insert run inside the (provider, weekday) lock so that two
// concurrent admins cannot both slip in overlapping windows.
func (s *AvailabilityService) CreateSlot(ctx context.Context, caller Caller, providerID uuid.UUID, day int, start, end string) (*AvailabilitySlot, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := validateSlotWindow(day, start, end); err != nil {
		return nil, err
	}
	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	var created *AvailabilitySlot

	err := s.locker.WithAvailabilityLock(ctx, providerID, day, func(lockCtx context.Context) error {
		existing, err := s.repo.FindOverlappingSlot(lockCtx, providerID, day, start, end, uuid.Nil)
		if err != nil {
			return fmt.Errorf("check slot overlap: %w", err)
		}
		if existing != nil {
			return ErrSlotOverlap
		}

		slot, err := s.repo.CreateSlot(lockCtx, &AvailabilitySlot{
			ID:         uuid.New(),
			ProviderID: providerID,
			DayOfWeek:  day,
			Start:      start,
			End:        end,
			Active:     true,
		})
		if err != nil {
			return fmt.Errorf("create slot: %w", err)
		}

		created = slot
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

// UpdateSlot re-validates the patched window against every other active slot
// of the same (provider, weekday), as if the slot were atomically replaced.
func (s *AvailabilityService) UpdateSlot(ctx context.Context, caller Caller, id uuid.UUID, patch SlotPatch) (*AvailabilitySlot, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	slot, err := s.repo.GetSlotByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load slot: %w", err)
	}

	next := *slot
	if patch.DayOfWeek != nil {
		next.DayOfWeek = *patch.DayOfWeek
	}
	if patch.Start != nil {
		next.Start = *patch.Start
	}
	if patch.End != nil {
		next.End = *patch.End
	}
	if patch.Active != nil {
		next.Active = *patch.Active
	}

	if err := validateSlotWindow(next.DayOfWeek, next.Start, next.End); err != nil {
		return nil, err
	}

	var updated *AvailabilitySlot

	err = s.locker.WithAvailabilityLock(ctx, slot.ProviderID, next.DayOfWeek, func(lockCtx context.Context) error {
		// Only an active window can collide; deactivating always succeeds.
		if next.Active {
			existing, err := s.repo.FindOverlappingSlot(lockCtx, next.ProviderID, next.DayOfWeek, next.Start, next.End, slot.ID)
			if err != nil {
				return fmt.Errorf("check slot overlap: %w", err)
			}
			if existing != nil {
				return ErrSlotOverlap
			}
		}

		res, err := s.repo.UpdateSlot(lockCtx, &next)
		if err != nil {
			return fmt.Errorf("update slot: %w", err)
		}
		updated = res
		return nil
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, ErrBusy
		}
		return nil, err
	}

	return updated, nil
}

// DeactivateSlot clears the active flag. An inactive slot frees its time and
// no longer participates in the overlap invariant.
func (s *AvailabilityService) DeactivateSlot(ctx context.Context, caller Caller, id uuid.UUID) (*AvailabilitySlot, error) {
	off := false
	return s.UpdateSlot(ctx, caller, id, SlotPatch{Active: &off})
}

// DeleteSlot hard-deletes the slot row; there is no history requirement for
// availability.
func (s *AvailabilityService) DeleteSlot(ctx context.Context, caller Caller, id uuid.UUID) error {
	if !caller.IsAdmin() {
		return ErrForbidden
	}

	if _, err := s.repo.GetSlotByID(ctx, id); err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return err
		}
		return fmt.Errorf("load slot: %w", err)
	}

	if err := s.repo.DeleteSlot(ctx, id); err != nil {
		return fmt.Errorf("delete slot: %w", err)
	}
	return nil
}

// ListSlots returns a provider's slots ordered by (day, start).
func (s *AvailabilityService) ListSlots(ctx context.Context, caller Caller, providerID uuid.UUID, activeOnly bool) ([]AvailabilitySlot, error) {
	if !caller.IsAdmin() {
		return nil, ErrForbidden
	}

	if _, err := s.repo.GetProviderByID(ctx, providerID); err != nil {
		if errors.Is(err, ErrProviderNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("load provider: %w", err)
	}

	slots, err := s.repo.ListSlots(ctx, providerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list slots: %w", err)
	}
	return slots, nil
}

// ListProviders is the public provider directory used by the booking page.
func (s *AvailabilityService) ListProviders(ctx context.Context, activeOnly bool) ([]Provider, error) {
	providers, err := s.repo.ListProviders(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}
	return providers, nil
}
