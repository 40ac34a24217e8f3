package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/internal/expenses"
	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	"github.com/angelmondragon/tillbook-backend/internal/pricing"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox/payloads"
)

// CommitSale settles a priced cart. Inside one transaction it draws the
// receipt number, takes the stock out of the ledger, posts giveaway expenses,
// stores the sale with its rounded breakdown, opens the receivable for credit
// sales and queues sale_committed. Any failure rolls all of it back.
//
// Product locks are taken in id order, then the customer lock, before the
// transaction starts.
func (s *service) CommitSale(ctx context.Context, actorID string, priced *pricing.PricedSale, settlement Settlement) (sale *models.Sale, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("commit_sale", start, err) }()

	if priced == nil || len(priced.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	priced = priced.Round(s.policy.CurrencyScale)
	soldAt := s.now().UTC()

	var customer *models.Customer
	if settlement.CustomerID != nil {
		customer, err = s.customers.FindByID(ctx, *settlement.CustomerID)
		if err != nil {
			return nil, err
		}
	}
	plan, err := s.planSettlement(priced.GrandTotal, settlement, customer, soldAt)
	if err != nil {
		return nil, err
	}

	productIDs := make([]uuid.UUID, 0, len(priced.Lines))
	for _, line := range priced.Lines {
		productIDs = append(productIDs, line.ProductID)
	}
	keys := locks.ProductKeys(productIDs)
	if customer != nil && settlement.Method.IsCredit() {
		keys = append(keys, locks.CustomerKey(customer.ID))
	}
	release, err := s.locker.Acquire(ctx, keys...)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	var (
		movements    []models.ProductMovementLog
		giveawayCost = decimal.Zero
	)
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		receiptNo, err := s.repo.WithTx(tx).NextReceiptNo(ctx, soldAt.In(s.policy.Location))
		if err != nil {
			return err
		}

		deltas := make([]inventory.Delta, 0, len(priced.Lines))
		for _, line := range priced.Lines {
			deltas = append(deltas, inventory.Delta{
				ProductID:      line.ProductID,
				QuantityChange: line.Quantity.Neg(),
				Type:           enums.MovementTypeSale,
				CauseRef:       receiptNo,
			})
		}
		movements, err = s.ledger.ApplyMovements(ctx, tx, actorID, deltas)
		if err != nil {
			return err
		}

		catalogue, err := s.products.WithTx(tx).FindByIDs(ctx, productIDs)
		if err != nil {
			return err
		}

		sale = buildSale(priced, settlement, plan, receiptNo, actorID, soldAt, catalogue)
		if customer != nil {
			sale.CustomerID = &customer.ID
		}
		if err := s.repo.WithTx(tx).Create(ctx, sale); err != nil {
			return err
		}

		expenseRepo := s.expenses.WithTx(tx)
		for _, line := range priced.GiveawayLines() {
			expense := expenses.GiveawayExpense(sale.ID, receiptNo, actorID, soldAt, expenses.GiveawayLine{
				ProductID:   line.ProductID,
				ProductName: catalogue[line.ProductID].Name,
				Quantity:    line.Quantity,
				CostPrice:   catalogue[line.ProductID].CostPrice,
			}, s.policy.CurrencyScale)
			if err := expenseRepo.Create(ctx, &expense); err != nil {
				return err
			}
			giveawayCost = giveawayCost.Add(expense.Amount)
		}

		if plan.deposit.IsPositive() {
			deposit := models.SalePayment{
				SaleID:    sale.ID,
				Amount:    plan.deposit,
				Method:    plan.depositMethod,
				IsDeposit: true,
				ActorID:   actorID,
				PaidAt:    soldAt,
			}
			if err := s.credit.WithTx(tx).AppendPayment(ctx, &deposit); err != nil {
				return err
			}
			sale.Payments = append(sale.Payments, deposit)
		}
		if sale.CustomerID != nil && plan.state.OutstandingAmount.IsPositive() {
			if _, err := s.customers.WithTx(tx).AdjustDebt(ctx, *sale.CustomerID, plan.state.OutstandingAmount); err != nil {
				return err
			}
		}

		return s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventSaleCommitted,
			AggregateType: enums.AggregateSale,
			AggregateID:   sale.ID,
			ActorID:       actorID,
			OccurredAt:    soldAt,
			Data: payloads.SaleCommittedEvent{
				SaleID:            sale.ID,
				ReceiptNo:         sale.ReceiptNo,
				CustomerID:        sale.CustomerID,
				PaymentMethod:     sale.PaymentMethod,
				GrandTotal:        sale.GrandTotal,
				PaidAmount:        sale.PaidAmount,
				OutstandingAmount: sale.OutstandingAmount,
				Status:            sale.Status,
				LineCount:         len(sale.LineItems),
				GiveawayExpenses:  giveawayCost,
				SoldAt:            soldAt,
			},
		})
	})
	if err != nil {
		if s.logg != nil && pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "sale rejected")
		}
		return nil, err
	}

	s.metrics.IncMovements(string(enums.MovementTypeSale), len(movements))
	if s.logg != nil {
		logCtx := s.logg.WithSale(ctx, sale.ID.String(), sale.ReceiptNo)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"grand_total":    sale.GrandTotal.String(),
			"payment_method": sale.PaymentMethod,
			"status":         sale.Status,
			"lines":          len(sale.LineItems),
		})
		s.logg.Info(logCtx, "sale committed")
	}
	return sale, nil
}

func buildSale(priced *pricing.PricedSale, settlement Settlement, plan settlementPlan, receiptNo, actorID string, soldAt time.Time, catalogue map[uuid.UUID]*models.Product) *models.Sale {
	overall := pricing.SpecOf(priced.OverallDiscount)
	sale := &models.Sale{
		ID:            uuid.New(),
		ReceiptNo:     receiptNo,
		PaymentMethod: settlement.Method,

		CartOriginalTotal:            priced.CartOriginalTotal,
		PromotionSavingsTotal:        priced.PromotionSavingsTotal,
		CartItemDiscountTotal:        priced.CartItemDiscountTotal,
		SubtotalAfterItemDiscounts:   priced.SubtotalAfterItemDiscounts,
		OverallDiscountKind:          overall.Kind,
		OverallDiscountValue:         overall.Value,
		OverallDiscountAmount:        priced.OverallDiscountAmount,
		SubtotalAfterOverallDiscount: priced.SubtotalAfterOverallDiscount,
		CouponAmount:                 priced.CouponAmount,
		SubtotalBeforeVAT:            priced.SubtotalBeforeVAT,
		VATMode:                      priced.VAT.Mode,
		VATRatePercent:               priced.VAT.RatePercent,
		VATAmount:                    priced.VATAmount,
		GrandTotal:                   priced.GrandTotal,

		AmountReceived: plan.received,
		ChangeDue:      plan.changeDue,

		Status:            plan.state.Status,
		PaidAmount:        plan.state.PaidAmount,
		OutstandingAmount: plan.state.OutstandingAmount,
		DueDate:           plan.dueDate,

		Note:    settlement.Note,
		ActorID: actorID,
		SoldAt:  soldAt,
	}

	sale.LineItems = make([]models.SaleLineItem, 0, len(priced.Lines))
	for _, line := range priced.Lines {
		discount := pricing.SpecOf(line.Discount)
		name := line.ProductName
		if name == "" {
			name = catalogue[line.ProductID].Name
		}
		sale.LineItems = append(sale.LineItems, models.SaleLineItem{
			SaleID:                 sale.ID,
			LineNo:                 line.LineNo,
			ProductID:              line.ProductID,
			ProductName:            name,
			Quantity:               line.Quantity,
			ListUnitPrice:          line.ListUnitPrice,
			OriginalUnitPrice:      line.OriginalUnitPrice,
			PromotionID:            line.PromotionID,
			DiscountKind:           discount.Kind,
			DiscountValue:          discount.Value,
			UnitPriceAfterDiscount: line.UnitPriceAfterDiscount,
			LineDiscountAmount:     line.LineDiscountAmount,
			LineTotal:              line.LineTotal,
			CostPrice:              catalogue[line.ProductID].CostPrice,
			IsGiveaway:             line.Giveaway,
		})
	}
	return sale
}
