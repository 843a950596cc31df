package http

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/slotwise/booking-backend/internal/catalog"
	"github.com/slotwise/booking-backend/internal/pkg/request"
)

type CreateServiceRequest struct {
	Name            string          `json:"name" binding:"required"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency" binding:"omitempty,len=3"`
	DurationMinutes int             `json:"duration_minutes" binding:"omitempty,min=1"`
}

type ListServicesRequest struct {
	request.ListParams
	ProviderID string `form:"provider_id" binding:"omitempty,uuid"`
	OnlyActive bool   `form:"only_active"`
}

type ServiceResponse struct {
	ID              string          `json:"id"`
	ProviderID      string          `json:"provider_id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Price           decimal.Decimal `json:"price"`
	Currency        string          `json:"currency"`
	DurationMinutes int             `json:"duration_minutes"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func NewServiceResponse(s *catalog.Service) ServiceResponse {
	return ServiceResponse{
		ID:              s.ID,
		ProviderID:      s.ProviderID,
		Name:            s.Name,
		Description:     s.Description,
		Price:           s.Price,
		Currency:        s.Currency,
		DurationMinutes: s.DurationMinutes,
		IsActive:        s.IsActive,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}
