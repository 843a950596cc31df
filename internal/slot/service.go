package slot

import (
	"context"
	"time"

	"github.com/slotwise/booking-backend/internal/catalog"
	"github.com/slotwise/booking-backend/internal/db"
	"github.com/slotwise/booking-backend/internal/events"
)

type CreateRequest struct {
	TenantID    string
	ServiceID   string
	StartTime   time.Time
	EndTime     time.Time
	MaxBookings int
}

type CreateRecurringRequest struct {
	CreateRequest
	Recurrence Recurrence
}

type UpdateRequest struct {
	TenantID    string
	SlotID      string
	StartTime   *time.Time
	EndTime     *time.Time
	MaxBookings *int
	IsAvailable *bool
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Slot, error)
	CreateRecurring(ctx context.Context, req CreateRecurringRequest) ([]*Slot, error)
	GetByID(ctx context.Context, id, tenantID string) (*Slot, error)
	ListAvailable(ctx context.Context, serviceID, tenantID string, from, to time.Time) ([]*Slot, error)
	Update(ctx context.Context, req UpdateRequest) (*Slot, error)
	Delete(ctx context.Context, id, tenantID string) error
	AdjustCapacity(ctx context.Context, id, tenantID string, delta int, actor string) (*Slot, error)
}

type service struct {
	repo      Repository
	catalog   catalog.Svc
	txRunner  db.TxRunner
	publisher events.Publisher
	now       func() time.Time
}

func NewService(repo Repository, cat catalog.Svc, txRunner db.TxRunner, publisher events.Publisher) Service {
	return &service{
		repo:      repo,
		catalog:   cat,
		txRunner:  txRunner,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *service) Create(ctx context.Context, req CreateRequest) (*Slot, error) {
	if err := s.validateWindow(req.StartTime, req.EndTime, req.MaxBookings); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetByID(ctx, req.ServiceID, req.TenantID); err != nil {
		return nil, err
	}

	overlap, err := s.repo.HasOverlap(ctx, req.ServiceID, req.TenantID, req.StartTime, req.EndTime, "")
	if err != nil {
		return nil, err
	}
	if overlap {
		return nil, ErrTimeConflict
	}

	slot := &Slot{
		ServiceID:         req.ServiceID,
		TenantID:          req.TenantID,
		StartTime:         req.StartTime,
		EndTime:           req.EndTime,
		MaxBookings:       req.MaxBookings,
		AvailableBookings: req.MaxBookings,
		IsAvailable:       true,
	}
	if err := s.repo.Create(ctx, slot); err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.KeySlotCreated, events.SlotCreated{
		SlotID:      slot.ID,
		ServiceID:   slot.ServiceID,
		TenantID:    slot.TenantID,
		StartTime:   slot.StartTime,
		EndTime:     slot.EndTime,
		MaxBookings: slot.MaxBookings,
		IsRecurring: false,
		CreatedAt:   slot.CreatedAt,
	})
	return slot, nil
}

func (s *service) CreateRecurring(ctx context.Context, req CreateRecurringRequest) ([]*Slot, error) {
	if err := s.validateWindow(req.StartTime, req.EndTime, req.MaxBookings); err != nil {
		return nil, err
	}
	if _, err := s.catalog.GetByID(ctx, req.ServiceID, req.TenantID); err != nil {
		return nil, err
	}

	windows, err := req.Recurrence.Expand(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	for _, w := range windows {
		overlap, err := s.repo.HasOverlap(ctx, req.ServiceID, req.TenantID, w.Start, w.End, "")
		if err != nil {
			return nil, err
		}
		if overlap {
			return nil, ErrTimeConflict
		}
	}

	slots := make([]*Slot, len(windows))
	for i, w := range windows {
		slots[i] = &Slot{
			ServiceID:         req.ServiceID,
			TenantID:          req.TenantID,
			StartTime:         w.Start,
			EndTime:           w.End,
			MaxBookings:       req.MaxBookings,
			AvailableBookings: req.MaxBookings,
			IsAvailable:       true,
			IsRecurring:       true,
		}
	}

	// All occurrences insert in one transaction so a series is never
	// half-created.
	err = s.txRunner.WithTx(ctx, func(q db.Querier) error {
		return s.repo.CreateBatch(ctx, q, slots)
	})
	if err != nil {
		return nil, err
	}

	for _, slot := range slots {
		s.publisher.Publish(ctx, events.KeySlotCreated, events.SlotCreated{
			SlotID:      slot.ID,
			ServiceID:   slot.ServiceID,
			TenantID:    slot.TenantID,
			StartTime:   slot.StartTime,
			EndTime:     slot.EndTime,
			MaxBookings: slot.MaxBookings,
			IsRecurring: true,
			CreatedAt:   slot.CreatedAt,
		})
	}
	return slots, nil
}

func (s *service) GetByID(ctx context.Context, id, tenantID string) (*Slot, error) {
	return s.repo.GetByID(ctx, id, tenantID)
}

func (s *service) ListAvailable(ctx context.Context, serviceID, tenantID string, from, to time.Time) ([]*Slot, error) {
	return s.repo.ListAvailable(ctx, serviceID, tenantID, from, to)
}

// Update changes the slot's window or capacity under the row lock. Shrinking
// MaxBookings below the consumed capacity is rejected: existing reservations
// are never invalidated by a resize.
func (s *service) Update(ctx context.Context, req UpdateRequest) (*Slot, error) {
	var updated *Slot
	err := s.txRunner.WithTx(ctx, func(q db.Querier) error {
		locked, err := s.repo.LockForUpdate(ctx, q, []string{req.SlotID}, req.TenantID)
		if err != nil {
			return err
		}
		slot, ok := locked[req.SlotID]
		if !ok {
			return ErrNotFound
		}

		if req.StartTime != nil {
			slot.StartTime = *req.StartTime
		}
		if req.EndTime != nil {
			slot.EndTime = *req.EndTime
		}
		if !slot.EndTime.After(slot.StartTime) {
			return ErrInvalidTimeRange
		}
		if (req.StartTime != nil || req.EndTime != nil) && !slot.StartTime.After(s.now()) {
			return ErrStartTimePast
		}

		if req.MaxBookings != nil {
			newMax := *req.MaxBookings
			if newMax < 1 {
				return ErrInvalidCapacity
			}
			consumed := slot.ConsumedCapacity()
			if newMax < consumed {
				return ErrCapacityBounds
			}
			slot.MaxBookings = newMax
			slot.AvailableBookings = newMax - consumed
		}

		// An explicit disable always wins; an explicit enable cannot make a
		// full or past slot bookable.
		if req.IsAvailable != nil {
			slot.IsAvailable = *req.IsAvailable && slot.AvailableBookings > 0 && slot.StartTime.After(s.now())
		} else {
			slot.IsAvailable = slot.AvailableBookings > 0 && slot.StartTime.After(s.now())
		}

		if req.StartTime != nil || req.EndTime != nil {
			overlap, err := s.repo.HasOverlap(ctx, slot.ServiceID, slot.TenantID, slot.StartTime, slot.EndTime, slot.ID)
			if err != nil {
				return err
			}
			if overlap {
				return ErrTimeConflict
			}
		}

		if err := s.repo.Resize(ctx, q, slot); err != nil {
			return err
		}
		updated = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.KeySlotUpdated, events.SlotUpdated{
		SlotID:      updated.ID,
		ServiceID:   updated.ServiceID,
		TenantID:    updated.TenantID,
		StartTime:   updated.StartTime,
		EndTime:     updated.EndTime,
		MaxBookings: updated.MaxBookings,
		IsAvailable: updated.IsAvailable,
		UpdatedAt:   s.now(),
	})
	return updated, nil
}

func (s *service) Delete(ctx context.Context, id, tenantID string) error {
	slot, err := s.repo.GetByID(ctx, id, tenantID)
	if err != nil {
		return err
	}

	n, err := s.repo.CountBookings(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return ErrHasBookings
	}

	if err := s.repo.Delete(ctx, id, tenantID); err != nil {
		return err
	}

	s.publisher.Publish(ctx, events.KeySlotDeleted, events.SlotDeleted{
		SlotID:    slot.ID,
		ServiceID: slot.ServiceID,
		TenantID:  slot.TenantID,
		DeletedAt: s.now(),
	})
	return nil
}

func (s *service) AdjustCapacity(ctx context.Context, id, tenantID string, delta int, actor string) (*Slot, error) {
	var adjusted *Slot
	err := s.txRunner.WithTx(ctx, func(q db.Querier) error {
		slot, err := s.repo.AdjustCapacity(ctx, q, id, tenantID, delta)
		if err != nil {
			return err
		}
		adjusted = slot
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.KeySlotCapacityChanged, events.SlotCapacityChanged{
		SlotID:            adjusted.ID,
		ServiceID:         adjusted.ServiceID,
		TenantID:          adjusted.TenantID,
		Delta:             delta,
		MaxBookings:       adjusted.MaxBookings,
		AvailableBookings: adjusted.AvailableBookings,
		ChangedBy:         actor,
		ChangedAt:         s.now(),
	})
	return adjusted, nil
}

func (s *service) validateWindow(start, end time.Time, maxBookings int) error {
	if !end.After(start) {
		return ErrInvalidTimeRange
	}
	if !start.After(s.now()) {
		return ErrStartTimePast
	}
	if maxBookings < 1 {
		return ErrInvalidCapacity
	}
	return nil
}
