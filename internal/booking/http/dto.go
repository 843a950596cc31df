package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/slotwise/booking-backend/internal/booking"
)

type CreateBookingRequest struct {
	ServiceID string `json:"service_id" binding:"required,uuid"`
	SlotID    string `json:"slot_id" binding:"required,uuid"`
	Notes     string `json:"notes" binding:"omitempty,max=1000"`
}

type ListBookingsRequest struct {
	CustomerID string     `form:"customer_id" binding:"omitempty,uuid"`
	ServiceID  string     `form:"service_id" binding:"omitempty,uuid"`
	SlotID     string     `form:"slot_id" binding:"omitempty,uuid"`
	Status     string     `form:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	From       *time.Time `form:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page       int        `form:"page,default=1" binding:"omitempty,min=1"`
	PageSize   int        `form:"page_size,default=20" binding:"omitempty,min=1,max=100"`
}

type UpdateBookingRequest struct {
	Status *string `json:"status" binding:"omitempty,oneof=pending confirmed cancelled completed"`
	Notes  *string `json:"notes" binding:"omitempty,max=1000"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

type RescheduleBookingRequest struct {
	NewSlotID string `json:"new_slot_id" binding:"required,uuid"`
	Reason    string `json:"reason" binding:"omitempty,max=500"`
}

type BookingResponse struct {
	ID                 string          `json:"id"`
	CustomerID         string          `json:"customer_id"`
	ServiceID          string          `json:"service_id"`
	SlotID             string          `json:"slot_id"`
	Status             string          `json:"status"`
	BookingDate        time.Time       `json:"booking_date"`
	Price              decimal.Decimal `json:"price"`
	Currency           string          `json:"currency"`
	Notes              string          `json:"notes,omitempty"`
	CancellationReason string          `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time      `json:"cancelled_at,omitempty"`
	CancelledBy        *string         `json:"cancelled_by,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func NewBookingResponse(b *booking.Booking) BookingResponse {
	return BookingResponse{
		ID:                 b.ID,
		CustomerID:         b.CustomerID,
		ServiceID:          b.ServiceID,
		SlotID:             b.SlotID,
		Status:             string(b.Status),
		BookingDate:        b.BookingDate,
		Price:              b.Price,
		Currency:           b.Currency,
		Notes:              b.Notes,
		CancellationReason: b.CancellationReason,
		CancelledAt:        b.CancelledAt,
		CancelledBy:        b.CancelledBy,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

type HistoryResponse struct {
	Seq       int64     `json:"seq"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status"`
	ChangedBy string    `json:"changed_by"`
	Reason    string    `json:"reason,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewHistoryResponse(h *booking.History) HistoryResponse {
	return HistoryResponse{
		Seq:       h.Seq,
		OldStatus: string(h.OldStatus),
		NewStatus: string(h.NewStatus),
		ChangedBy: h.ChangedBy,
		Reason:    h.Reason,
		CreatedAt: h.CreatedAt,
	}
}
