package catalog

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/slotwise/booking-backend/internal/pkg/apperror"
)

var (
	ErrNotFound     = apperror.New(http.StatusNotFound, "service not found")
	ErrEmptyName    = apperror.New(http.StatusBadRequest, "service name cannot be empty")
	ErrInvalidPrice = apperror.New(http.StatusBadRequest, "service price cannot be negative")
)

// Service is a provider offering that slots are published for.
type Service struct {
	ID              string
	TenantID        string
	ProviderID      string
	Name            string
	Description     string
	Price           decimal.Decimal
	Currency        string
	DurationMinutes int
	IsActive        bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Filter defines parameters for listing services.
type Filter struct {
	TenantID   string
	ProviderID string
	OnlyActive bool
	Page       int
	PageSize   int
}
