package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-backend/internal/auth"
	"github.com/slotwise/booking-backend/internal/booking"
	"github.com/slotwise/booking-backend/internal/pkg/request"
	"github.com/slotwise/booking-backend/internal/pkg/response"
)

type Handler struct {
	service booking.Service
}

func NewHandler(service booking.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	b, err := h.service.Create(c.Request.Context(), booking.CreateBookingRequest{
		TenantID:   identity.TenantID,
		CustomerID: identity.UserID,
		ServiceID:  body.ServiceID,
		SlotID:     body.SlotID,
		Notes:      body.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewBookingResponse(b))
}

func (h *Handler) Get(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	identity := auth.GetIdentity(c)

	b, err := h.service.GetByID(c.Request.Context(), params.ID, identity.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) List(c *gin.Context) {
	var query ListBookingsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	bookings, total, err := h.service.List(c.Request.Context(), booking.Filter{
		TenantID:   identity.TenantID,
		CustomerID: query.CustomerID,
		ServiceID:  query.ServiceID,
		SlotID:     query.SlotID,
		Status:     booking.Status(query.Status),
		From:       query.From,
		To:         query.To,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]BookingResponse, len(bookings))
	for i, b := range bookings {
		items[i] = NewBookingResponse(b)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, query.Page, query.PageSize, total))
}

func (h *Handler) Update(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body UpdateBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	var status *booking.Status
	if body.Status != nil {
		st := booking.Status(*body.Status)
		status = &st
	}

	b, err := h.service.Update(c.Request.Context(), booking.UpdateBookingRequest{
		TenantID:  identity.TenantID,
		BookingID: params.ID,
		ChangedBy: identity.UserID,
		Status:    status,
		Notes:     body.Notes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Confirm(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	identity := auth.GetIdentity(c)

	b, err := h.service.Confirm(c.Request.Context(), params.ID, identity.TenantID, identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Cancel(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	// The body is optional; cancelling without a reason is fine.
	var body CancelBookingRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
			return
		}
	}

	identity := auth.GetIdentity(c)

	b, err := h.service.Cancel(c.Request.Context(), booking.CancelRequest{
		TenantID:   identity.TenantID,
		BookingID:  params.ID,
		ChangedBy:  identity.UserID,
		Reason:     body.Reason,
		ByCustomer: true,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) Reschedule(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body RescheduleBookingRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	b, err := h.service.Reschedule(c.Request.Context(), booking.RescheduleRequest{
		TenantID:  identity.TenantID,
		BookingID: params.ID,
		NewSlotID: body.NewSlotID,
		ChangedBy: identity.UserID,
		Reason:    body.Reason,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewBookingResponse(b))
}

func (h *Handler) History(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	identity := auth.GetIdentity(c)

	history, err := h.service.History(c.Request.Context(), params.ID, identity.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]HistoryResponse, len(history))
	for i, entry := range history {
		items[i] = NewHistoryResponse(entry)
	}

	c.JSON(http.StatusOK, gin.H{"history": items, "count": len(items)})
}
