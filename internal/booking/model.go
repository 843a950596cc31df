package booking

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/slotwise/booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "booking not found")
	ErrDuplicateBooking = apperror.New(http.StatusUnprocessableEntity, "customer already has an active booking for this slot")
	ErrTerminalState    = apperror.New(http.StatusUnprocessableEntity, "booking is in a terminal state")
	ErrInvalidStatus    = apperror.New(http.StatusBadRequest, "invalid booking status")
	ErrCancelViaUpdate  = apperror.New(http.StatusUnprocessableEntity, "use the cancel endpoint to cancel a booking")
	ErrCancelPastSlot   = apperror.New(http.StatusUnprocessableEntity, "cannot cancel a booking for a slot that has already started")
	ErrSameSlot         = apperror.New(http.StatusBadRequest, "booking is already on this slot")

	// ErrConflict is the retryable outcome for lock timeouts, deadlocks and
	// serialization failures. Clients retry the identical request.
	ErrConflict = apperror.NewRetryable(http.StatusServiceUnavailable, "booking conflict, please retry")
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Terminal statuses accept no further transitions.
func (s Status) Terminal() bool {
	return s == StatusCancelled || s == StatusCompleted
}

// Booking ties a customer to one slot. Its status walks the lifecycle
// pending -> confirmed -> completed, with cancellation allowed from any
// non-terminal state.
type Booking struct {
	ID                 string
	CustomerID         string
	ServiceID          string
	SlotID             string
	TenantID           string
	Status             Status
	BookingDate        time.Time
	Price              decimal.Decimal
	Currency           string
	Notes              string
	CancellationReason string
	CancelledAt        *time.Time
	CancelledBy        *string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// History is one append-only audit row. Rows are never updated or deleted;
// Seq orders them within a booking.
type History struct {
	ID        string
	BookingID string
	TenantID  string
	Seq       int64
	OldStatus Status
	NewStatus Status
	ChangedBy string
	Reason    string
	CreatedAt time.Time
}

type Filter struct {
	TenantID   string
	CustomerID string
	ServiceID  string
	SlotID     string
	Status     Status
	From       *time.Time
	To         *time.Time
	Page       int
	PageSize   int
}
