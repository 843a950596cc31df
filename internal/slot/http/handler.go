package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-backend/internal/auth"
	"github.com/slotwise/booking-backend/internal/pkg/request"
	"github.com/slotwise/booking-backend/internal/pkg/response"
	"github.com/slotwise/booking-backend/internal/slot"
)

type Handler struct {
	service slot.Service
}

func NewHandler(service slot.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateSlotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	s, err := h.service.Create(c.Request.Context(), slot.CreateRequest{
		TenantID:    identity.TenantID,
		ServiceID:   body.ServiceID,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		MaxBookings: body.MaxBookings,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewSlotResponse(s))
}

func (h *Handler) CreateRecurring(c *gin.Context) {
	var body CreateRecurringSlotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	slots, err := h.service.CreateRecurring(c.Request.Context(), slot.CreateRecurringRequest{
		CreateRequest: slot.CreateRequest{
			TenantID:    identity.TenantID,
			ServiceID:   body.ServiceID,
			StartTime:   body.StartTime,
			EndTime:     body.EndTime,
			MaxBookings: body.MaxBookings,
		},
		Recurrence: slot.Recurrence{
			Pattern:     slot.Pattern(body.Recurrence.Pattern),
			Interval:    body.Recurrence.Interval,
			Occurrences: body.Recurrence.Occurrences,
			Until:       body.Recurrence.Until,
		},
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotResponse(s)
	}

	c.JSON(http.StatusCreated, gin.H{"slots": items, "count": len(items)})
}

func (h *Handler) Get(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	identity := auth.GetIdentity(c)

	s, err := h.service.GetByID(c.Request.Context(), params.ID, identity.TenantID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewSlotResponse(s))
}

func (h *Handler) ListAvailable(c *gin.Context) {
	var query ListAvailableSlotsRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	slots, err := h.service.ListAvailable(c.Request.Context(), query.ServiceID, identity.TenantID, query.From, query.To)
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]SlotResponse, len(slots))
	for i, s := range slots {
		items[i] = NewSlotResponse(s)
	}

	c.JSON(http.StatusOK, gin.H{"slots": items, "count": len(items)})
}

func (h *Handler) Update(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body UpdateSlotRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	s, err := h.service.Update(c.Request.Context(), slot.UpdateRequest{
		TenantID:    identity.TenantID,
		SlotID:      params.ID,
		StartTime:   body.StartTime,
		EndTime:     body.EndTime,
		MaxBookings: body.MaxBookings,
		IsAvailable: body.IsAvailable,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewSlotResponse(s))
}

func (h *Handler) Delete(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	identity := auth.GetIdentity(c)

	if err := h.service.Delete(c.Request.Context(), params.ID, identity.TenantID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) AdjustCapacity(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	var body AdjustCapacityRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	s, err := h.service.AdjustCapacity(c.Request.Context(), params.ID, identity.TenantID, body.Delta, identity.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusOK, NewSlotResponse(s))
}
