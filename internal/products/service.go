package products

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/internal/pricing"
	dbpkg "github.com/angelmondragon/tillbook-backend/pkg/db"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// Service exposes product catalogue operations.
type Service interface {
	CreateProduct(ctx context.Context, actorID string, input CreateProductInput) (*models.Product, error)
	GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
}

// CreateProductInput holds the validated payload to create a product. When
// SellingPrice is zero and GrossProfitPercent is set, the price is back-solved
// from the cost.
type CreateProductInput struct {
	SKU                string
	Name               string
	Unit               string
	CostPrice          decimal.Decimal
	SellingPrice       decimal.Decimal
	GrossProfitPercent *decimal.Decimal
	InitialStock       decimal.Decimal
	IsVisible          *bool
	Tiers              []TierInput
}

// TierInput is one quantity-break price.
type TierInput struct {
	Name        string
	MinQuantity decimal.Decimal
	Price       decimal.Decimal
}

// StockRecorder books the opening balance of a new product on the movement
// ledger inside the caller's transaction.
type StockRecorder interface {
	RecordInitialStock(ctx context.Context, tx *gorm.DB, actorID string, product *models.Product, quantity decimal.Decimal) (*models.ProductMovementLog, error)
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type service struct {
	repo          *Repository
	db            txRunner
	stock         StockRecorder
	currencyScale int32
}

// NewService constructs a product service instance.
func NewService(repo *Repository, db txRunner, stock StockRecorder, currencyScale int32) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if stock == nil {
		return nil, fmt.Errorf("stock recorder required")
	}
	return &service{repo: repo, db: db, stock: stock, currencyScale: currencyScale}, nil
}

func (s *service) CreateProduct(ctx context.Context, actorID string, input CreateProductInput) (*models.Product, error) {
	product, err := s.buildProduct(input)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, product); err != nil {
			if dbpkg.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "sku already exists").
					WithDetails(map[string]any{"sku": product.SKU})
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create product")
		}
		if input.InitialStock.IsPositive() {
			if _, err := s.stock.RecordInitialStock(ctx, tx, actorID, product, input.InitialStock); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.repo.FindByID(ctx, product.ID)
}

func (s *service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	return s.repo.FindByID(ctx, id)
}

func (s *service) buildProduct(input CreateProductInput) (*models.Product, error) {
	sku := strings.TrimSpace(input.SKU)
	name := strings.TrimSpace(input.Name)
	if sku == "" || name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sku and name are required")
	}
	if input.CostPrice.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cost_price must not be negative")
	}
	if input.InitialStock.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "initial_stock must not be negative")
	}

	price := input.SellingPrice
	if price.IsZero() && input.GrossProfitPercent != nil {
		solved, err := pricing.PriceFromMargin(input.CostPrice, *input.GrossProfitPercent)
		if err != nil {
			return nil, err
		}
		price = solved.Round(s.currencyScale)
	}
	if !price.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "selling_price must be positive")
	}

	unit := strings.TrimSpace(input.Unit)
	if unit == "" {
		unit = "pcs"
	}
	visible := true
	if input.IsVisible != nil {
		visible = *input.IsVisible
	}

	tiers := make([]models.ProductPriceTier, 0, len(input.Tiers))
	seen := make(map[string]struct{}, len(input.Tiers))
	for i, tier := range input.Tiers {
		if !tier.MinQuantity.IsPositive() || !tier.Price.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("tier %d needs a positive min_quantity and price", i+1))
		}
		key := tier.MinQuantity.String()
		if _, dup := seen[key]; dup {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("duplicate tier for min_quantity %s", key))
		}
		seen[key] = struct{}{}
		tierName := strings.TrimSpace(tier.Name)
		if tierName == "" {
			tierName = "tier " + key
		}
		tiers = append(tiers, models.ProductPriceTier{
			Name:        tierName,
			MinQuantity: tier.MinQuantity,
			Price:       tier.Price,
		})
	}

	return &models.Product{
		SKU:          sku,
		Name:         name,
		Unit:         unit,
		CostPrice:    input.CostPrice,
		SellingPrice: price,
		Stock:        decimal.Zero,
		IsActive:     true,
		IsVisible:    visible,
		PriceTiers:   tiers,
	}, nil
}
