package http

import (
	"time"

	"github.com/slotwise/booking-backend/internal/slot"
)

type CreateSlotRequest struct {
	ServiceID   string    `json:"service_id" binding:"required,uuid"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	MaxBookings int       `json:"max_bookings" binding:"required,min=1"`
}

type RecurrenceRequest struct {
	Pattern     string     `json:"pattern" binding:"required,oneof=daily weekly"`
	Interval    int        `json:"interval" binding:"required,min=1"`
	Occurrences int        `json:"occurrences" binding:"omitempty,min=1,max=366"`
	Until       *time.Time `json:"until"`
}

type CreateRecurringSlotRequest struct {
	CreateSlotRequest
	Recurrence RecurrenceRequest `json:"recurrence" binding:"required"`
}

type ListAvailableSlotsRequest struct {
	ServiceID string    `form:"service_id" binding:"required,uuid"`
	From      time.Time `form:"from" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
	To        time.Time `form:"to" binding:"required" time_format:"2006-01-02T15:04:05Z07:00"`
}

type UpdateSlotRequest struct {
	StartTime   *time.Time `json:"start_time"`
	EndTime     *time.Time `json:"end_time"`
	MaxBookings *int       `json:"max_bookings" binding:"omitempty,min=1"`
	IsAvailable *bool      `json:"is_available"`
}

type AdjustCapacityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

type SlotResponse struct {
	ID                string    `json:"id"`
	ServiceID         string    `json:"service_id"`
	StartTime         time.Time `json:"start_time"`
	EndTime           time.Time `json:"end_time"`
	MaxBookings       int       `json:"max_bookings"`
	AvailableBookings int       `json:"available_bookings"`
	IsAvailable       bool      `json:"is_available"`
	IsRecurring       bool      `json:"is_recurring"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

func NewSlotResponse(s *slot.Slot) SlotResponse {
	return SlotResponse{
		ID:                s.ID,
		ServiceID:         s.ServiceID,
		StartTime:         s.StartTime,
		EndTime:           s.EndTime,
		MaxBookings:       s.MaxBookings,
		AvailableBookings: s.AvailableBookings,
		IsAvailable:       s.IsAvailable,
		IsRecurring:       s.IsRecurring,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}
