package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/slotwise/booking-backend/internal/auth"
	"github.com/slotwise/booking-backend/internal/catalog"
	"github.com/slotwise/booking-backend/internal/pkg/request"
	"github.com/slotwise/booking-backend/internal/pkg/response"
)

type Handler struct {
	service catalog.Svc
}

func NewHandler(service catalog.Svc) *Handler {
	return &Handler{service: service}
}

func (h *Handler) Create(c *gin.Context) {
	var body CreateServiceRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	s, err := h.service.Create(c.Request.Context(), catalog.CreateRequest{
		TenantID:        identity.TenantID,
		ProviderID:      identity.UserID,
		Name:            body.Name,
		Description:     body.Description,
		Price:           body.Price,
		Currency:        body.Currency,
		DurationMinutes: body.DurationMinutes,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	c.JSON(http.StatusCreated, NewServiceResponse(s))
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

	c.JSON(http.StatusOK, NewServiceResponse(s))
}

func (h *Handler) List(c *gin.Context) {
	var query ListServicesRequest
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query parameters", "details": err.Error()})
		return
	}

	identity := auth.GetIdentity(c)

	services, total, err := h.service.List(c.Request.Context(), catalog.Filter{
		TenantID:   identity.TenantID,
		ProviderID: query.ProviderID,
		OnlyActive: query.OnlyActive,
		Page:       query.Page,
		PageSize:   query.PageSize,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]ServiceResponse, len(services))
	for i, s := range services {
		items[i] = NewServiceResponse(s)
	}

	c.JSON(http.StatusOK, response.NewPageResponse(items, query.Page, query.PageSize, total))
}

func (h *Handler) Deactivate(c *gin.Context) {
	var params request.ByIDRequest
	if err := c.ShouldBindUri(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid UUID"})
		return
	}

	identity := auth.GetIdentity(c)

	if err := h.service.Deactivate(c.Request.Context(), params.ID, identity.TenantID); err != nil {
		response.Error(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
