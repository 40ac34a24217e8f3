package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/internal/products"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// Delta is one requested stock change.
type Delta struct {
	ProductID      uuid.UUID
	QuantityChange decimal.Decimal
	Type           enums.MovementType
	CauseRef       string
	Note           *string
}

// Ledger applies stock movements. It never opens its own transaction: the
// caller owns tx and therefore the atomicity of the whole batch.
type Ledger struct {
	products  *products.Repository
	movements Repository
	now       func() time.Time
}

// NewLedger wires the ledger. A nil clock defaults to time.Now.
func NewLedger(productRepo *products.Repository, movements Repository, now func() time.Time) (*Ledger, error) {
	if productRepo == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if movements == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	if now == nil {
		now = time.Now
	}
	return &Ledger{products: productRepo, movements: movements, now: now}, nil
}

type mergedDelta struct {
	productID uuid.UUID
	change    decimal.Decimal
	kind      enums.MovementType
	causeRef  string
	note      *string
}

// ApplyMovements merges deltas per product, locks the products in ascending
// id order and verifies every resulting stock level before writing anything.
// Any negative result fails the batch with INSUFFICIENT_STOCK. On success one
// log row per product is appended, returned in product id order.
func (l *Ledger) ApplyMovements(ctx context.Context, tx *gorm.DB, actorID string, deltas []Delta) ([]models.ProductMovementLog, error) {
	if tx == nil {
		return nil, errors.New("transaction required")
	}
	merged, err := mergeDeltas(deltas)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, nil
	}

	ids := make([]uuid.UUID, 0, len(merged))
	for _, d := range merged {
		ids = append(ids, d.productID)
	}

	productRepo := l.products.WithTx(tx)
	locked, err := productRepo.LockByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(locked))
	for _, p := range locked {
		byID[p.ID] = p
	}

	for _, d := range merged {
		product, ok := byID[d.productID]
		if !ok {
			return nil, pkgerrors.NotFound("product", d.productID.String())
		}
		if product.Stock.Add(d.change).IsNegative() {
			return nil, pkgerrors.InsufficientStock(product.ID.String(), product.Stock.String(), d.change.Neg().String())
		}
	}

	movementRepo := l.movements.WithTx(tx)
	entries := make([]models.ProductMovementLog, 0, len(merged))
	for _, d := range merged {
		product := byID[d.productID]
		after := product.Stock.Add(d.change)
		if err := productRepo.WriteStock(ctx, product.ID, product.Version, after); err != nil {
			return nil, err
		}
		entry := models.ProductMovementLog{
			ProductID:      product.ID,
			MovementType:   d.kind,
			QuantityChange: d.change,
			StockBefore:    product.Stock,
			StockAfter:     after,
			CostPrice:      product.CostPrice,
			SellingPrice:   product.SellingPrice,
			CauseRef:       d.causeRef,
			ActorID:        actorID,
			Note:           d.note,
			CreatedAt:      l.now().UTC(),
		}
		if err := movementRepo.Create(ctx, &entry); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append movement log")
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// RecordInitialStock books the opening quantity of a freshly created product.
func (l *Ledger) RecordInitialStock(ctx context.Context, tx *gorm.DB, actorID string, product *models.Product, quantity decimal.Decimal) (*models.ProductMovementLog, error) {
	entries, err := l.ApplyMovements(ctx, tx, actorID, []Delta{{
		ProductID:      product.ID,
		QuantityChange: quantity,
		Type:           enums.MovementTypeInitialStock,
		CauseRef:       product.ID.String(),
	}})
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, nil
	}
	product.Stock = entries[0].StockAfter
	product.Version++
	return &entries[0], nil
}

func mergeDeltas(deltas []Delta) ([]mergedDelta, error) {
	index := make(map[uuid.UUID]int, len(deltas))
	merged := make([]mergedDelta, 0, len(deltas))
	for i, d := range deltas {
		if d.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("delta %d: product id is required", i+1))
		}
		if !d.Type.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("delta %d: invalid movement type %q", i+1, d.Type))
		}
		if d.QuantityChange.IsZero() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("delta %d: quantity change must be non-zero", i+1))
		}
		if pos, ok := index[d.ProductID]; ok {
			first := merged[pos]
			if first.kind != d.Type || first.causeRef != d.CauseRef {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("delta %d: product %s already has a %s movement for %q in this batch", i+1, d.ProductID, first.kind, first.causeRef)).
					WithDetails(map[string]any{"product_id": d.ProductID.String(), "type": d.Type, "cause_ref": d.CauseRef})
			}
			merged[pos].change = first.change.Add(d.QuantityChange)
			continue
		}
		index[d.ProductID] = len(merged)
		merged = append(merged, mergedDelta{
			productID: d.ProductID,
			change:    d.QuantityChange,
			kind:      d.Type,
			causeRef:  d.CauseRef,
			note:      d.Note,
		})
	}

	out := merged[:0]
	for _, d := range merged {
		if d.change.IsZero() {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].productID.String() < out[j].productID.String()
	})
	return out, nil
}
