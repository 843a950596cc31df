package booking

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/slotwise/booking-backend/internal/catalog"
	"github.com/slotwise/booking-backend/internal/db"
	"github.com/slotwise/booking-backend/internal/events"
	"github.com/slotwise/booking-backend/internal/pkg/metrics"
	"github.com/slotwise/booking-backend/internal/slot"
)

type CreateBookingRequest struct {
	TenantID   string
	CustomerID string
	ServiceID  string
	SlotID     string
	Notes      string
}

type CancelRequest struct {
	TenantID   string
	BookingID  string
	ChangedBy  string
	Reason     string
	ByCustomer bool
}

type UpdateBookingRequest struct {
	TenantID  string
	BookingID string
	ChangedBy string
	Status    *Status
	Notes     *string
}

type RescheduleRequest struct {
	TenantID  string
	BookingID string
	NewSlotID string
	ChangedBy string
	Reason    string
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (*Booking, error)
	GetByID(ctx context.Context, id, tenantID string) (*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, int, error)
	Confirm(ctx context.Context, id, tenantID, changedBy string) (*Booking, error)
	Cancel(ctx context.Context, req CancelRequest) (*Booking, error)
	Update(ctx context.Context, req UpdateBookingRequest) (*Booking, error)
	Reschedule(ctx context.Context, req RescheduleRequest) (*Booking, error)
	History(ctx context.Context, bookingID, tenantID string) ([]*History, error)
}

// service coordinates bookings with the slot capacity ledger. Every use case
// that touches both runs in one transaction, so a booking state change and
// its capacity effect commit or roll back together.
type service struct {
	repo      Repository
	slots     slot.Repository
	catalog   catalog.Svc
	txRunner  db.TxRunner
	publisher events.Publisher
	tracer    trace.Tracer
	now       func() time.Time
}

func NewService(repo Repository, slots slot.Repository, cat catalog.Svc, txRunner db.TxRunner, publisher events.Publisher) Service {
	return &service{
		repo:      repo,
		slots:     slots,
		catalog:   cat,
		txRunner:  txRunner,
		publisher: publisher,
		tracer:    otel.Tracer("booking"),
		now:       time.Now,
	}
}

// runTx wraps a use case transaction with tracing, metrics and transient
// conflict mapping. Lock timeouts and deadlocks surface as the retryable
// ErrConflict instead of an internal error.
func (s *service) runTx(ctx context.Context, operation string, fn func(q db.Querier) error) error {
	ctx, span := s.tracer.Start(ctx, operation)
	defer span.End()

	start := s.now()
	err := s.txRunner.WithTx(ctx, fn)
	if db.IsTransient(err) {
		err = ErrConflict
	}
	if err != nil {
		span.RecordError(err)
	}
	metrics.ObserveOperation(operation, start, err)
	return err
}

func (s *service) Create(ctx context.Context, req CreateBookingRequest) (*Booking, error) {
	svc, err := s.catalog.GetByID(ctx, req.ServiceID, req.TenantID)
	if err != nil {
		return nil, err
	}

	var (
		created  *Booking
		reserved *slot.Slot
	)
	err = s.runTx(ctx, "booking.create", func(q db.Querier) error {
		sl, err := s.slots.Reserve(ctx, q, req.SlotID, req.TenantID)
		if err != nil {
			return err
		}
		if sl.ServiceID != req.ServiceID {
			return slot.ErrNotFound
		}
		reserved = sl

		b := &Booking{
			CustomerID:  req.CustomerID,
			ServiceID:   req.ServiceID,
			SlotID:      req.SlotID,
			TenantID:    req.TenantID,
			Status:      StatusPending,
			BookingDate: sl.StartTime,
			Price:       svc.Price,
			Currency:    svc.Currency,
			Notes:       req.Notes,
		}
		if err := s.repo.Create(ctx, q, b); err != nil {
			return err
		}

		// The first audit row marks creation; old_status stays empty.
		if err := s.repo.InsertHistory(ctx, q, &History{
			BookingID: b.ID,
			TenantID:  b.TenantID,
			NewStatus: StatusPending,
			ChangedBy: req.CustomerID,
			Reason:    "booking created",
		}); err != nil {
			return err
		}

		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.KeyBookingCreated, events.BookingCreated{
		BookingID:     created.ID,
		CustomerID:    created.CustomerID,
		ServiceID:     created.ServiceID,
		SlotID:        created.SlotID,
		TenantID:      created.TenantID,
		BookingDate:   created.BookingDate,
		SlotStartTime: reserved.StartTime,
		SlotEndTime:   reserved.EndTime,
		Price:         created.Price,
		Currency:      created.Currency,
		Status:        string(created.Status),
		CreatedAt:     created.CreatedAt,
	})
	return created, nil
}

func (s *service) GetByID(ctx context.Context, id, tenantID string) (*Booking, error) {
	return s.repo.GetByID(ctx, id, tenantID)
}

func (s *service) List(ctx context.Context, filter Filter) ([]*Booking, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrInvalidStatus
	}
	return s.repo.List(ctx, filter)
}

func (s *service) Confirm(ctx context.Context, id, tenantID, changedBy string) (*Booking, error) {
	var confirmed *Booking
	err := s.runTx(ctx, "booking.confirm", func(q db.Querier) error {
		b, err := s.repo.GetForUpdate(ctx, q, id, tenantID)
		if err != nil {
			return err
		}
		if err := s.transition(ctx, q, b, StatusConfirmed, changedBy, "booking confirmed"); err != nil {
			return err
		}
		confirmed = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.KeyBookingConfirmed, events.BookingConfirmed{
		BookingID:   confirmed.ID,
		CustomerID:  confirmed.CustomerID,
		ServiceID:   confirmed.ServiceID,
		TenantID:    confirmed.TenantID,
		ConfirmedAt: s.now(),
	})
	return confirmed, nil
}

// Cancel releases the booking's slot capacity in the same transaction that
// moves the booking to cancelled. A booking that is already cancelled fails
// the transition check, so capacity is released exactly once. Bookings whose
// slot has already started cannot be cancelled.
func (s *service) Cancel(ctx context.Context, req CancelRequest) (*Booking, error) {
	var cancelled *Booking
	err := s.runTx(ctx, "booking.cancel", func(q db.Querier) error {
		b, err := s.repo.GetForUpdate(ctx, q, req.BookingID, req.TenantID)
		if err != nil {
			return err
		}

		locked, err := s.slots.LockForUpdate(ctx, q, []string{b.SlotID}, req.TenantID)
		if err != nil {
			return err
		}
		sl, ok := locked[b.SlotID]
		if !ok {
			return slot.ErrNotFound
		}
		if !sl.StartTime.After(s.now()) {
			return ErrCancelPastSlot
		}

		reason := req.Reason
		if reason == "" {
			reason = "booking cancelled"
		}
		if err := s.transition(ctx, q, b, StatusCancelled, req.ChangedBy, reason); err != nil {
			return err
		}
		b.CancellationReason = reason
		at := s.now()
		by := req.ChangedBy
		b.CancelledAt = &at
		b.CancelledBy = &by

		if _, err := s.slots.Release(ctx, q, b.SlotID, req.TenantID); err != nil {
			return err
		}
		cancelled = b
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.KeyBookingCancelled, events.BookingCancelled{
		BookingID:           cancelled.ID,
		CustomerID:          cancelled.CustomerID,
		ServiceID:           cancelled.ServiceID,
		SlotID:              cancelled.SlotID,
		TenantID:            cancelled.TenantID,
		CancellationReason:  cancelled.CancellationReason,
		IsCustomerCancelled: req.ByCustomer,
		CancelledAt:         s.now(),
	})
	return cancelled, nil
}

// Update changes notes or moves the booking forward in its lifecycle.
// Cancellation is rejected here: it has capacity side effects and must go
// through Cancel.
func (s *service) Update(ctx context.Context, req UpdateBookingRequest) (*Booking, error) {
	if req.Status != nil {
		if !req.Status.Valid() {
			return nil, ErrInvalidStatus
		}
		if *req.Status == StatusCancelled {
			return nil, ErrCancelViaUpdate
		}
	}

	var updated *Booking
	err := s.runTx(ctx, "booking.update", func(q db.Querier) error {
		b, err := s.repo.GetForUpdate(ctx, q, req.BookingID, req.TenantID)
		if err != nil {
			return err
		}

		if req.Status != nil && *req.Status != b.Status {
			reason := fmt.Sprintf("booking %s", *req.Status)
			if err := s.transition(ctx, q, b, *req.Status, req.ChangedBy, reason); err != nil {
				return err
			}
		}
		if req.Notes != nil {
			if err := s.repo.SetNotes(ctx, q, b.ID, b.TenantID, *req.Notes); err != nil {
				return err
			}
			b.Notes = *req.Notes
		}

		updated = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Reschedule moves a booking to another slot: capacity moves from the old
// slot to the new one atomically, and the booking keeps its status. Both
// slot rows are locked in ascending id order before any counter changes.
func (s *service) Reschedule(ctx context.Context, req RescheduleRequest) (*Booking, error) {
	var (
		rescheduled *Booking
		oldSlot     *slot.Slot
		newSlot     *slot.Slot
	)
	err := s.runTx(ctx, "booking.reschedule", func(q db.Querier) error {
		b, err := s.repo.GetForUpdate(ctx, q, req.BookingID, req.TenantID)
		if err != nil {
			return err
		}
		if b.Status.Terminal() {
			return ErrTerminalState.WithDetail(
				fmt.Sprintf("cannot reschedule a %s booking", b.Status))
		}
		if b.SlotID == req.NewSlotID {
			return ErrSameSlot
		}

		locked, err := s.slots.LockForUpdate(ctx, q, []string{b.SlotID, req.NewSlotID}, req.TenantID)
		if err != nil {
			return err
		}
		old, ok := locked[b.SlotID]
		if !ok {
			return slot.ErrNotFound
		}
		next, ok := locked[req.NewSlotID]
		if !ok {
			return slot.ErrNotFound
		}
		if next.ServiceID != b.ServiceID {
			return slot.ErrNotFound
		}
		if !next.Bookable(s.now()) {
			return slot.ErrNotAvailable
		}

		if _, err := s.slots.Reserve(ctx, q, next.ID, req.TenantID); err != nil {
			return err
		}
		if _, err := s.slots.Release(ctx, q, old.ID, req.TenantID); err != nil {
			return err
		}
		if err := s.repo.SetSlot(ctx, q, b.ID, b.TenantID, next.ID); err != nil {
			return err
		}

		reason := req.Reason
		if reason == "" {
			reason = fmt.Sprintf("rescheduled from slot %s to slot %s", old.ID, next.ID)
		}

		// Status is preserved; the audit row records the move.
		if err := s.repo.InsertHistory(ctx, q, &History{
			BookingID: b.ID,
			TenantID:  b.TenantID,
			OldStatus: b.Status,
			NewStatus: b.Status,
			ChangedBy: req.ChangedBy,
			Reason:    reason,
		}); err != nil {
			return err
		}

		b.SlotID = next.ID
		b.BookingDate = next.StartTime
		rescheduled, oldSlot, newSlot = b, old, next
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publisher.Publish(ctx, events.KeyBookingRescheduled, events.BookingRescheduled{
		BookingID:     rescheduled.ID,
		CustomerID:    rescheduled.CustomerID,
		ServiceID:     rescheduled.ServiceID,
		TenantID:      rescheduled.TenantID,
		OldSlotID:     oldSlot.ID,
		NewSlotID:     newSlot.ID,
		OldStartTime:  oldSlot.StartTime,
		NewStartTime:  newSlot.StartTime,
		RescheduledAt: s.now(),
	})
	return rescheduled, nil
}

func (s *service) History(ctx context.Context, bookingID, tenantID string) ([]*History, error) {
	if _, err := s.repo.GetByID(ctx, bookingID, tenantID); err != nil {
		return nil, err
	}
	return s.repo.ListHistory(ctx, bookingID, tenantID)
}

// transition validates and applies one lifecycle step plus its audit row.
// The caller must hold the booking's row lock.
func (s *service) transition(ctx context.Context, q db.Querier, b *Booking, to Status, changedBy, reason string) error {
	if err := ValidateTransition(b.Status, to); err != nil {
		return err
	}
	if err := s.repo.UpdateStatus(ctx, q, b.ID, b.TenantID, to, reason, changedBy); err != nil {
		return err
	}
	if err := s.repo.InsertHistory(ctx, q, &History{
		BookingID: b.ID,
		TenantID:  b.TenantID,
		OldStatus: b.Status,
		NewStatus: to,
		ChangedBy: changedBy,
		Reason:    reason,
	}); err != nil {
		return err
	}
	b.Status = to
	return nil
}
