package sales

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/internal/expenses"
	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox/payloads"
)

// VoidSale reverses a committed sale. The stock comes back through reversal
// movements, giveaway expenses are cancelled and the customer's debt drops by
// what was still outstanding. History is never rewritten: the sale keeps its
// breakdown and settlement columns and only gains the void flag.
//
// A sale that already took payments after commit must have them voided first.
func (s *service) VoidSale(ctx context.Context, actorID string, input VoidSaleInput) (sale *models.Sale, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("void_sale", start, err) }()

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	current, err := s.repo.FindByID(ctx, input.SaleID)
	if err != nil {
		return nil, err
	}
	keys := locks.ProductKeys(lineProductIDs(current.LineItems))
	keys = append(keys, locks.SaleKey(current.ID))
	if current.CustomerID != nil {
		keys = append(keys, locks.CustomerKey(*current.CustomerID))
	}
	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	voidedAt := s.now().UTC()
	released := decimal.Zero
	var movements []models.ProductMovementLog
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		creditRepo := s.credit.WithTx(tx)
		locked, err := creditRepo.LockSale(ctx, current.ID)
		if err != nil {
			return err
		}
		if locked.IsVoided() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is already voided").
				WithDetails(map[string]any{"sale_id": locked.ID.String()})
		}
		payments, err := creditRepo.ListPayments(ctx, locked.ID)
		if err != nil {
			return err
		}
		for _, p := range payments {
			if !p.IsDeposit && !p.IsVoided() {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "sale has payments; void them first").
					WithDetails(map[string]any{"sale_id": locked.ID.String(), "payment_id": p.ID.String()})
			}
		}

		deltas := make([]inventory.Delta, 0, len(current.LineItems))
		for _, line := range current.LineItems {
			deltas = append(deltas, inventory.Delta{
				ProductID:      line.ProductID,
				QuantityChange: line.Quantity,
				Type:           enums.MovementTypeReversal,
				CauseRef:       locked.ReceiptNo,
				Note:           &reason,
			})
		}
		movements, err = s.ledger.ApplyMovements(ctx, tx, actorID, deltas)
		if err != nil {
			return err
		}

		expenseRepo := s.expenses.WithTx(tx)
		posted, err := expenseRepo.ListBySaleID(ctx, locked.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sale expenses")
		}
		for _, e := range posted {
			reversal := expenses.Reversal(e, actorID, voidedAt)
			if err := expenseRepo.Create(ctx, &reversal); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reverse expense")
			}
		}

		if locked.CustomerID != nil && locked.OutstandingAmount.IsPositive() {
			released = locked.OutstandingAmount
			if _, err := s.customers.WithTx(tx).AdjustDebt(ctx, *locked.CustomerID, released.Neg()); err != nil {
				return err
			}
		}

		if err := s.repo.WithTx(tx).MarkVoided(ctx, locked, actorID, reason, voidedAt); err != nil {
			return err
		}

		sale = locked
		sale.LineItems = current.LineItems
		sale.Payments = payments
		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleVoided,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			ActorID:       actorID,
			OccurredAt:    voidedAt,
			Data: payloads.SaleVoidedEvent{
				SaleID:       sale.ID,
				ReceiptNo:    sale.ReceiptNo,
				CustomerID:   sale.CustomerID,
				ReleasedDebt: released,
				Reason:       reason,
				VoidedAt:     voidedAt,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.IncMovements(string(enums.MovementTypeReversal), len(movements))
	if s.logg != nil {
		logCtx := s.logg.WithSale(ctx, sale.ID.String(), sale.ReceiptNo)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"reason":        reason,
			"released_debt": released.String(),
		})
		s.logg.Warn(logCtx, "sale voided")
	}
	return sale, nil
}

func lineProductIDs(lines []models.SaleLineItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}
