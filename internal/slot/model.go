package slot

import (
	"net/http"
	"time"

	"github.com/slotwise/booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound         = apperror.New(http.StatusNotFound, "slot not found")
	ErrNotAvailable     = apperror.New(http.StatusConflict, "slot is not available")
	ErrTimeConflict     = apperror.New(http.StatusConflict, "slot overlaps an existing slot for this service")
	ErrInvalidTimeRange = apperror.New(http.StatusBadRequest, "end time must be after start time")
	ErrStartTimePast    = apperror.New(http.StatusBadRequest, "slot start time cannot be in the past")
	ErrInvalidCapacity  = apperror.New(http.StatusBadRequest, "max bookings must be at least 1")
	ErrCapacityBounds   = apperror.New(http.StatusUnprocessableEntity, "capacity adjustment out of bounds")
	ErrHasBookings      = apperror.New(http.StatusUnprocessableEntity, "cannot delete slot with existing bookings")
)

// Slot is a bookable time window with finite concurrent capacity.
// AvailableBookings is mutated only by the ledger operations (Reserve,
// Release, AdjustCapacity) and always stays within [0, MaxBookings].
type Slot struct {
	ID                string
	ServiceID         string
	TenantID          string
	StartTime         time.Time
	EndTime           time.Time
	MaxBookings       int
	AvailableBookings int
	IsAvailable       bool
	IsRecurring       bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Bookable reports whether the slot can accept a reservation at the given
// instant. Time gates availability independent of the counter: a slot whose
// start has passed is never bookable, whatever capacity remains.
func (s *Slot) Bookable(now time.Time) bool {
	return s.IsAvailable && s.AvailableBookings > 0 && s.StartTime.After(now)
}

// ConsumedCapacity is the number of reservations currently held against the slot.
func (s *Slot) ConsumedCapacity() int {
	return s.MaxBookings - s.AvailableBookings
}
