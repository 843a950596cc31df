package catalog

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
)

type CreateRequest struct {
	TenantID        string
	ProviderID      string
	Name            string
	Description     string
	Price           decimal.Decimal
	Currency        string
	DurationMinutes int
}

type Svc interface {
	Create(ctx context.Context, req CreateRequest) (*Service, error)
	GetByID(ctx context.Context, id, tenantID string) (*Service, error)
	List(ctx context.Context, filter Filter) ([]*Service, int, error)
	Deactivate(ctx context.Context, id, tenantID string) error
}

type svc struct {
	repo Repository
}

func NewService(repo Repository) Svc {
	return &svc{repo: repo}
}

func (s *svc) Create(ctx context.Context, req CreateRequest) (*Service, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, ErrEmptyName
	}
	if req.Price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}
	if req.DurationMinutes <= 0 {
		req.DurationMinutes = 60
	}

	service := &Service{
		TenantID:        req.TenantID,
		ProviderID:      req.ProviderID,
		Name:            req.Name,
		Description:     req.Description,
		Price:           req.Price,
		Currency:        req.Currency,
		DurationMinutes: req.DurationMinutes,
		IsActive:        true,
	}

	if err := s.repo.Create(ctx, service); err != nil {
		return nil, err
	}
	return service, nil
}

func (s *svc) GetByID(ctx context.Context, id, tenantID string) (*Service, error) {
	return s.repo.GetByID(ctx, id, tenantID)
}

func (s *svc) List(ctx context.Context, filter Filter) ([]*Service, int, error) {
	return s.repo.List(ctx, filter)
}

func (s *svc) Deactivate(ctx context.Context, id, tenantID string) error {
	if _, err := s.repo.GetByID(ctx, id, tenantID); err != nil {
		return err
	}
	return s.repo.SetActive(ctx, id, tenantID, false)
}
