package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// Routing keys, one per use case. Consumers bind queue patterns like
// "booking.*" or "slot.*" on the topic exchange.
const (
	KeyBookingCreated      = "booking.created"
	KeyBookingConfirmed    = "booking.confirmed"
	KeyBookingCancelled    = "booking.cancelled"
	KeyBookingRescheduled  = "booking.rescheduled"
	KeySlotCreated         = "slot.created"
	KeySlotUpdated         = "slot.updated"
	KeySlotDeleted         = "slot.deleted"
	KeySlotCapacityChanged = "slot.capacity_changed"
)

// BookingCreated is published after a booking is committed in pending state.
type BookingCreated struct {
	BookingID     string          `json:"booking_id"`
	CustomerID    string          `json:"customer_id"`
	ServiceID     string          `json:"service_id"`
	SlotID        string          `json:"slot_id"`
	TenantID      string          `json:"tenant_id"`
	BookingDate   time.Time       `json:"booking_date"`
	SlotStartTime time.Time       `json:"slot_start_time"`
	SlotEndTime   time.Time       `json:"slot_end_time"`
	Price         decimal.Decimal `json:"price"`
	Currency      string          `json:"currency"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

type BookingConfirmed struct {
	BookingID   string    `json:"booking_id"`
	CustomerID  string    `json:"customer_id"`
	ServiceID   string    `json:"service_id"`
	TenantID    string    `json:"tenant_id"`
	ConfirmedAt time.Time `json:"confirmed_at"`
}

type BookingCancelled struct {
	BookingID           string    `json:"booking_id"`
	CustomerID          string    `json:"customer_id"`
	ServiceID           string    `json:"service_id"`
	SlotID              string    `json:"slot_id"`
	TenantID            string    `json:"tenant_id"`
	CancellationReason  string    `json:"cancellation_reason"`
	IsCustomerCancelled bool      `json:"is_customer_cancelled"`
	CancelledAt         time.Time `json:"cancelled_at"`
}

type BookingRescheduled struct {
	BookingID     string    `json:"booking_id"`
	CustomerID    string    `json:"customer_id"`
	ServiceID     string    `json:"service_id"`
	TenantID      string    `json:"tenant_id"`
	OldSlotID     string    `json:"old_slot_id"`
	NewSlotID     string    `json:"new_slot_id"`
	OldStartTime  time.Time `json:"old_start_time"`
	NewStartTime  time.Time `json:"new_start_time"`
	RescheduledAt time.Time `json:"rescheduled_at"`
}

type SlotCreated struct {
	SlotID      string    `json:"slot_id"`
	ServiceID   string    `json:"service_id"`
	TenantID    string    `json:"tenant_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxBookings int       `json:"max_bookings"`
	IsRecurring bool      `json:"is_recurring"`
	CreatedAt   time.Time `json:"created_at"`
}

type SlotUpdated struct {
	SlotID      string    `json:"slot_id"`
	ServiceID   string    `json:"service_id"`
	TenantID    string    `json:"tenant_id"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	MaxBookings int       `json:"max_bookings"`
	IsAvailable bool      `json:"is_available"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type SlotDeleted struct {
	SlotID    string    `json:"slot_id"`
	ServiceID string    `json:"service_id"`
	TenantID  string    `json:"tenant_id"`
	DeletedAt time.Time `json:"deleted_at"`
}

type SlotCapacityChanged struct {
	SlotID            string    `json:"slot_id"`
	ServiceID         string    `json:"service_id"`
	TenantID          string    `json:"tenant_id"`
	Delta             int       `json:"delta"`
	MaxBookings       int       `json:"max_bookings"`
	AvailableBookings int       `json:"available_bookings"`
	ChangedBy         string    `json:"changed_by"`
	ChangedAt         time.Time `json:"changed_at"`
}
