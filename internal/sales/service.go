// Package sales settles priced carts into committed sales: stock, books,
// receivables and the outbox move together or not at all.
package sales

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/internal/customers"
	"github.com/angelmondragon/tillbook-backend/internal/expenses"
	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	"github.com/angelmondragon/tillbook-backend/internal/pricing"
	"github.com/angelmondragon/tillbook-backend/internal/products"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
	"github.com/angelmondragon/tillbook-backend/pkg/metrics"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
)

// Service is the settlement entry point used by the till.
type Service interface {
	Quote(ctx context.Context, input QuoteInput) (*pricing.PricedSale, error)
	Checkout(ctx context.Context, actorID string, input CheckoutInput) (*models.Sale, error)
	CommitSale(ctx context.Context, actorID string, priced *pricing.PricedSale, settlement Settlement) (*models.Sale, error)
	VoidSale(ctx context.Context, actorID string, input VoidSaleInput) (*models.Sale, error)
	GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error)
}

// CartLine is one requested line. UnitPrice overrides the tier price of the
// product when set.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  decimal.Decimal
	UnitPrice *decimal.Decimal
	Promotion *pricing.Promotion
	Discount  pricing.Discount
	Giveaway  bool
}

// QuoteInput is a cart priced against the current catalogue.
type QuoteInput struct {
	Lines     []CartLine
	Discounts pricing.DiscountConfig
	VAT       pricing.VATConfig
}

// CheckoutInput prices a cart and commits it with settlement.
type CheckoutInput struct {
	QuoteInput
	Settlement Settlement
}

type VoidSaleInput struct {
	SaleID uuid.UUID
	Reason string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups the service collaborators.
type ServiceParams struct {
	Repository *Repository
	Products   *products.Repository
	Customers  *customers.Repository
	Credit     *credit.Repository
	Expenses   *expenses.Repository
	Ledger     *inventory.Ledger
	DB         txRunner
	Locker     locks.Locker
	Events     outbox.Emitter
	Policy     credit.Policy
	// DefaultCreditDays applies when neither the settlement nor the customer
	// sets credit terms.
	DefaultCreditDays int
	Clock             func() time.Time
	Metrics           *metrics.SettlementMetrics
	Logger            *logger.Logger
}

type service struct {
	repo       *Repository
	products   *products.Repository
	customers  *customers.Repository
	credit     *credit.Repository
	expenses   *expenses.Repository
	ledger     *inventory.Ledger
	db         txRunner
	locker     locks.Locker
	events     outbox.Emitter
	policy     credit.Policy
	creditDays int
	now        func() time.Time
	metrics    *metrics.SettlementMetrics
	logg       *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("sales repository required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer repository required")
	case params.Credit == nil:
		return nil, fmt.Errorf("credit repository required")
	case params.Expenses == nil:
		return nil, fmt.Errorf("expense repository required")
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case params.Events == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	now := params.Clock
	if now == nil {
		now = time.Now
	}
	policy := params.Policy
	if policy.Location == nil {
		policy.Location = time.UTC
	}
	return &service{
		repo:       params.Repository,
		products:   params.Products,
		customers:  params.Customers,
		credit:     params.Credit,
		expenses:   params.Expenses,
		ledger:     params.Ledger,
		db:         params.DB,
		locker:     params.Locker,
		events:     params.Events,
		policy:     policy,
		creditDays: params.DefaultCreditDays,
		now:        now,
		metrics:    params.Metrics,
		logg:       params.Logger,
	}, nil
}

// Quote prices the cart against the catalogue without writing anything. The
// result is rounded to the currency scale, exactly as CommitSale stores it.
func (s *service) Quote(ctx context.Context, input QuoteInput) (*pricing.PricedSale, error) {
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	ids := make([]uuid.UUID, 0, len(input.Lines))
	for _, line := range input.Lines {
		ids = append(ids, line.ProductID)
	}
	catalogue, err := s.products.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	cart := make([]pricing.RawLine, 0, len(input.Lines))
	for i, line := range input.Lines {
		product := catalogue[line.ProductID]
		if !product.IsActive {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product is not for sale").
				WithDetails(map[string]any{"line": i + 1, "product_id": product.ID.String()})
		}
		unitPrice := products.UnitPriceFor(product, line.Quantity)
		if line.UnitPrice != nil {
			unitPrice = *line.UnitPrice
		}
		cart = append(cart, pricing.RawLine{
			ProductID:   product.ID,
			ProductName: product.Name,
			Quantity:    line.Quantity,
			UnitPrice:   unitPrice,
			Promotion:   line.Promotion,
			Discount:    line.Discount,
			Giveaway:    line.Giveaway,
		})
	}

	priced, err := pricing.Price(cart, input.Discounts, input.VAT)
	if err != nil {
		return nil, err
	}
	return priced.Round(s.policy.CurrencyScale), nil
}

// Checkout is Quote followed by CommitSale.
func (s *service) Checkout(ctx context.Context, actorID string, input CheckoutInput) (*models.Sale, error) {
	priced, err := s.Quote(ctx, input.QuoteInput)
	if err != nil {
		return nil, err
	}
	return s.CommitSale(ctx, actorID, priced, input.Settlement)
}

func (s *service) GetSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *service) release(ctx context.Context, release locks.Release) {
	if err := release(ctx); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "sale lock release failed")
	}
}
