package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/internal/products"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
	"github.com/angelmondragon/tillbook-backend/pkg/metrics"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox/payloads"
)

// Service exposes stock history and the manual stock operations.
type Service interface {
	GetMovementHistory(ctx context.Context, productID uuid.UUID) ([]models.ProductMovementLog, error)
	AdjustStock(ctx context.Context, actorID string, input AdjustStockInput) (*models.ProductMovementLog, error)
	Reconcile(ctx context.Context, productID uuid.UUID) (*Reconciliation, error)
}

// AdjustStockInput is a stock count correction or a goods receipt.
type AdjustStockInput struct {
	ProductID      uuid.UUID
	QuantityChange decimal.Decimal
	Type           enums.MovementType
	Reference      string
	Note           *string
}

// Reconciliation compares the stored stock with the sum of its ledger.
type Reconciliation struct {
	ProductID   uuid.UUID       `json:"product_id"`
	Stock       decimal.Decimal `json:"stock"`
	LedgerTotal decimal.Decimal `json:"ledger_total"`
	Movements   int             `json:"movements"`
	Balanced    bool            `json:"balanced"`
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups the service collaborators.
type ServiceParams struct {
	Ledger    *Ledger
	Products  *products.Repository
	Movements Repository
	DB        txRunner
	Locker    locks.Locker
	Events    outbox.Emitter
	Metrics   *metrics.SettlementMetrics
	Logger    *logger.Logger
}

type service struct {
	ledger    *Ledger
	products  *products.Repository
	movements Repository
	db        txRunner
	locker    locks.Locker
	events    outbox.Emitter
	metrics   *metrics.SettlementMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Ledger == nil:
		return nil, fmt.Errorf("inventory ledger required")
	case params.Products == nil:
		return nil, fmt.Errorf("product repository required")
	case params.Movements == nil:
		return nil, fmt.Errorf("movement repository required")
	case params.DB == nil:
		return nil, fmt.Errorf("db client required")
	case params.Locker == nil:
		return nil, fmt.Errorf("locker required")
	case params.Events == nil:
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		ledger:    params.Ledger,
		products:  params.Products,
		movements: params.Movements,
		db:        params.DB,
		locker:    params.Locker,
		events:    params.Events,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

func (s *service) GetMovementHistory(ctx context.Context, productID uuid.UUID) ([]models.ProductMovementLog, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, err
	}
	entries, err := s.movements.ListByProductID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	return entries, nil
}

func (s *service) AdjustStock(ctx context.Context, actorID string, input AdjustStockInput) (entry *models.ProductMovementLog, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("adjust_stock", start, err) }()

	switch input.Type {
	case enums.MovementTypeManualAdjustment:
	case enums.MovementTypePurchaseReceipt:
		if !input.QuantityChange.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "purchase receipts must add stock")
		}
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("movement type %q cannot be posted manually", input.Type))
	}

	release, err := s.locker.Acquire(ctx, locks.ProductKey(input.ProductID))
	if err != nil {
		return nil, err
	}
	defer func() {
		if relErr := release(ctx); relErr != nil && s.logg != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", relErr.Error()), "stock lock release failed")
		}
	}()

	causeRef := strings.TrimSpace(input.Reference)
	if causeRef == "" {
		causeRef = uuid.NewString()
	}

	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		entries, err := s.ledger.ApplyMovements(ctx, tx, actorID, []Delta{{
			ProductID:      input.ProductID,
			QuantityChange: input.QuantityChange,
			Type:           input.Type,
			CauseRef:       causeRef,
			Note:           input.Note,
		}})
		if err != nil {
			return err
		}
		entry = &entries[0]
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   entry.ProductID,
			ActorID:       actorID,
			OccurredAt:    entry.CreatedAt,
			Data: payloads.StockAdjustedEvent{
				ProductID:      entry.ProductID,
				MovementID:     entry.ID,
				MovementType:   entry.MovementType,
				QuantityChange: entry.QuantityChange,
				StockBefore:    entry.StockBefore,
				StockAfter:     entry.StockAfter,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncMovements(string(entry.MovementType), 1)
	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"product_id":      entry.ProductID.String(),
			"movement_type":   entry.MovementType,
			"quantity_change": entry.QuantityChange.String(),
			"stock_after":     entry.StockAfter.String(),
		})
		s.logg.Info(logCtx, "stock adjusted")
	}
	return entry, nil
}

func (s *service) Reconcile(ctx context.Context, productID uuid.UUID) (*Reconciliation, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	entries, err := s.movements.ListByProductID(ctx, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list movements")
	}
	total := decimal.Zero
	for _, e := range entries {
		total = total.Add(e.QuantityChange)
	}
	return &Reconciliation{
		ProductID:   product.ID,
		Stock:       product.Stock,
		LedgerTotal: total,
		Movements:   len(entries),
		Balanced:    total.Equal(product.Stock),
	}, nil
}
