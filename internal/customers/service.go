package customers

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// Service exposes customer records.
type Service interface {
	CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error)
}

// CreateCustomerInput captures a new credit customer. CreditDays overrides
// the store-wide default payment term when set.
type CreateCustomerInput struct {
	Name       string
	Phone      *string
	Email      *string
	CreditDays *int
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) CreateCustomer(ctx context.Context, input CreateCustomerInput) (*models.Customer, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if input.CreditDays != nil && *input.CreditDays < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "credit_days must not be negative")
	}
	customer := &models.Customer{
		Name:            name,
		Phone:           trimmed(input.Phone),
		Email:           trimmed(input.Email),
		CreditDays:      input.CreditDays,
		TotalDebtAmount: decimal.Zero,
	}
	if err := s.repo.Create(ctx, customer); err != nil {
		return nil, err
	}
	return customer, nil
}

func (s *service) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "customer id is required")
	}
	return s.repo.FindByID(ctx, id)
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}
