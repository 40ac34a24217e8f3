package credit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/internal/customers"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
	"github.com/angelmondragon/tillbook-backend/pkg/metrics"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox/payloads"
)

// Service settles invoices and reports what customers owe.
type Service interface {
	ApplyPayment(ctx context.Context, actorID string, input ApplyPaymentInput) (*PaymentResult, error)
	VoidPayment(ctx context.Context, actorID string, input VoidPaymentInput) (*PaymentResult, error)
	ListPayments(ctx context.Context, saleID uuid.UUID) ([]models.SalePayment, error)
	GetCreditSummary(ctx context.Context, customerID uuid.UUID) (*CreditSummary, error)
	ListOpenInvoices(ctx context.Context, customerID uuid.UUID) ([]OpenInvoice, error)
}

type ApplyPaymentInput struct {
	SaleID uuid.UUID
	Amount decimal.Decimal
	Method enums.PaymentMethod
	Note   *string
}

type VoidPaymentInput struct {
	SaleID    uuid.UUID
	PaymentID uuid.UUID
	Reason    string
}

// PaymentResult is the sale after the operation and the payment it touched.
type PaymentResult struct {
	Sale    *models.Sale
	Payment *models.SalePayment
}

// OpenInvoice is an unpaid or partially paid sale with its aging as of the
// query.
type OpenInvoice struct {
	Sale         models.Sale
	Aging        enums.AgingStatus
	DaysUntilDue *int
}

// CreditSummary aggregates a customer's open invoices as of the query.
type CreditSummary struct {
	CustomerID       uuid.UUID
	TotalDebtAmount  decimal.Decimal
	OpenInvoiceCount int
	TotalOutstanding decimal.Decimal
	OverdueAmount    decimal.Decimal
	DueSoonAmount    decimal.Decimal
	EarliestDueDate  *time.Time
	Aging            *enums.AgingStatus
	AsOf             time.Time
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups the service collaborators.
type ServiceParams struct {
	Repository *Repository
	Customers  *customers.Repository
	DB         txRunner
	Locker     locks.Locker
	Events     outbox.Emitter
	Policy     Policy
	Clock      func() time.Time
	Metrics    *metrics.SettlementMetrics
	Logger     *logger.Logger
}

type service struct {
	repo      *Repository
	customers *customers.Repository
	db        txRunner
	locker    locks.Locker
	events    outbox.Emitter
	policy    Policy
	now       func() time.Time
	metrics   *metrics.SettlementMetrics
	logg      *logger.Logger
}

func NewService(params ServiceParams) (Service, error) {
	switch {
	case params.Repository == nil:
		return nil, fmt.Errorf("credit repository required")
	case params.Customers == nil:
		return nil, fmt.Errorf("customer repository required")
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
		repo:      params.Repository,
		customers: params.Customers,
		db:        params.DB,
		locker:    params.Locker,
		events:    params.Events,
		policy:    policy,
		now:       now,
		metrics:   params.Metrics,
		logg:      params.Logger,
	}, nil
}

// ApplyPayment settles part or all of a sale's outstanding balance. The sale
// lock is held for the whole call so a second payment always sees the first.
func (s *service) ApplyPayment(ctx context.Context, actorID string, input ApplyPaymentInput) (result *PaymentResult, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("apply_payment", start, err) }()

	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be greater than zero")
	}
	if err := checkScale(input.Amount, s.policy.CurrencyScale); err != nil {
		return nil, err
	}
	if !input.Method.IsValid() || input.Method.IsCredit() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("payment method %q cannot settle an invoice", input.Method))
	}

	release, err := s.lockSale(ctx, input.SaleID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	paidAt := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		creditRepo := s.repo.WithTx(tx)
		sale, err := creditRepo.LockSale(ctx, input.SaleID)
		if err != nil {
			return err
		}
		if sale.IsVoided() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is voided").
				WithDetails(map[string]any{"sale_id": sale.ID.String()})
		}
		if input.Amount.GreaterThan(sale.OutstandingAmount) {
			return pkgerrors.New(pkgerrors.CodeOverpayment, "payment exceeds outstanding amount").
				WithDetails(map[string]any{
					"sale_id":     sale.ID.String(),
					"outstanding": sale.OutstandingAmount.String(),
					"amount":      input.Amount.String(),
				})
		}

		if err := creditRepo.UpdateSettlement(ctx, sale, DeriveState(sale.GrandTotal, sale.PaidAmount.Add(input.Amount))); err != nil {
			return err
		}
		payment := &models.SalePayment{
			SaleID:  sale.ID,
			Amount:  input.Amount,
			Method:  input.Method,
			Note:    input.Note,
			ActorID: actorID,
			PaidAt:  paidAt,
		}
		if err := creditRepo.AppendPayment(ctx, payment); err != nil {
			return err
		}
		if sale.CustomerID != nil {
			if _, err := s.customers.WithTx(tx).AdjustDebt(ctx, *sale.CustomerID, input.Amount.Neg()); err != nil {
				return err
			}
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentApplied,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			ActorID:       actorID,
			OccurredAt:    paidAt,
			Data: payloads.PaymentAppliedEvent{
				SaleID:            sale.ID,
				PaymentID:         payment.ID,
				CustomerID:        sale.CustomerID,
				Amount:            payment.Amount,
				Method:            payment.Method,
				PaidAmount:        sale.PaidAmount,
				OutstandingAmount: sale.OutstandingAmount,
				Status:            sale.Status,
				PaidAt:            paidAt,
			},
		}); err != nil {
			return err
		}
		result = &PaymentResult{Sale: sale, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithSale(ctx, result.Sale.ID.String(), result.Sale.ReceiptNo)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id":  result.Payment.ID.String(),
			"amount":      result.Payment.Amount.String(),
			"outstanding": result.Sale.OutstandingAmount.String(),
			"status":      result.Sale.Status,
		})
		s.logg.Info(logCtx, "payment applied")
	}
	return result, nil
}

// VoidPayment reverses one payment: the record is flagged, the sale's triple
// is derived again from the remaining payments and the customer owes the
// amount again.
func (s *service) VoidPayment(ctx context.Context, actorID string, input VoidPaymentInput) (result *PaymentResult, err error) {
	start := time.Now()
	defer func() { s.metrics.Observe("void_payment", start, err) }()

	reason := strings.TrimSpace(input.Reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reason is required")
	}

	release, err := s.lockSale(ctx, input.SaleID)
	if err != nil {
		return nil, err
	}
	defer s.release(ctx, release)

	voidedAt := s.now().UTC()
	err = s.db.WithTx(ctx, func(tx *gorm.DB) error {
		creditRepo := s.repo.WithTx(tx)
		sale, err := creditRepo.LockSale(ctx, input.SaleID)
		if err != nil {
			return err
		}
		if sale.IsVoided() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "sale is voided").
				WithDetails(map[string]any{"sale_id": sale.ID.String()})
		}
		payment, err := creditRepo.FindPayment(ctx, sale.ID, input.PaymentID)
		if err != nil {
			return err
		}
		if payment.IsDeposit {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "deposit is voided with its sale").
				WithDetails(map[string]any{"sale_id": sale.ID.String(), "payment_id": payment.ID.String()})
		}
		if err := creditRepo.MarkPaymentVoided(ctx, payment, actorID, reason, voidedAt); err != nil {
			return err
		}
		if err := creditRepo.UpdateSettlement(ctx, sale, DeriveState(sale.GrandTotal, sale.PaidAmount.Sub(payment.Amount))); err != nil {
			return err
		}
		if sale.CustomerID != nil {
			if _, err := s.customers.WithTx(tx).AdjustDebt(ctx, *sale.CustomerID, payment.Amount); err != nil {
				return err
			}
		}
		if err := s.events.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentVoided,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			ActorID:       actorID,
			OccurredAt:    voidedAt,
			Data: payloads.PaymentVoidedEvent{
				SaleID:            sale.ID,
				PaymentID:         payment.ID,
				CustomerID:        sale.CustomerID,
				Amount:            payment.Amount,
				PaidAmount:        sale.PaidAmount,
				OutstandingAmount: sale.OutstandingAmount,
				Status:            sale.Status,
				Reason:            reason,
				VoidedAt:          voidedAt,
			},
		}); err != nil {
			return err
		}
		result = &PaymentResult{Sale: sale, Payment: payment}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithSale(ctx, result.Sale.ID.String(), result.Sale.ReceiptNo)
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"payment_id": result.Payment.ID.String(),
			"amount":     result.Payment.Amount.String(),
			"reason":     reason,
		})
		s.logg.Warn(logCtx, "payment voided")
	}
	return result, nil
}

func (s *service) ListPayments(ctx context.Context, saleID uuid.UUID) ([]models.SalePayment, error) {
	if _, err := s.repo.FindSale(ctx, saleID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, saleID)
}

func (s *service) ListOpenInvoices(ctx context.Context, customerID uuid.UUID) ([]OpenInvoice, error) {
	if _, err := s.customers.FindByID(ctx, customerID); err != nil {
		return nil, err
	}
	return s.openInvoices(ctx, customerID, s.now())
}

func (s *service) GetCreditSummary(ctx context.Context, customerID uuid.UUID) (*CreditSummary, error) {
	customer, err := s.customers.FindByID(ctx, customerID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	invoices, err := s.openInvoices(ctx, customerID, now)
	if err != nil {
		return nil, err
	}

	summary := &CreditSummary{
		CustomerID:       customer.ID,
		TotalDebtAmount:  customer.TotalDebtAmount,
		OpenInvoiceCount: len(invoices),
		TotalOutstanding: decimal.Zero,
		OverdueAmount:    decimal.Zero,
		DueSoonAmount:    decimal.Zero,
		AsOf:             now.UTC(),
	}
	for _, inv := range invoices {
		summary.TotalOutstanding = summary.TotalOutstanding.Add(inv.Sale.OutstandingAmount)
		switch inv.Aging {
		case enums.AgingStatusOverdue:
			summary.OverdueAmount = summary.OverdueAmount.Add(inv.Sale.OutstandingAmount)
		case enums.AgingStatusDueSoon:
			summary.DueSoonAmount = summary.DueSoonAmount.Add(inv.Sale.OutstandingAmount)
		}
		if due := inv.Sale.DueDate; due != nil && (summary.EarliestDueDate == nil || due.Before(*summary.EarliestDueDate)) {
			d := *due
			summary.EarliestDueDate = &d
		}
	}
	if len(invoices) > 0 {
		aging := ClassifyAging(summary.EarliestDueDate, now, s.policy.Location, s.policy.DueSoonDays)
		summary.Aging = &aging
	}
	return summary, nil
}

func (s *service) openInvoices(ctx context.Context, customerID uuid.UUID, now time.Time) ([]OpenInvoice, error) {
	sales, err := s.repo.ListOpenByCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]OpenInvoice, 0, len(sales))
	for _, sale := range sales {
		inv := OpenInvoice{
			Sale:  sale,
			Aging: ClassifyAging(sale.DueDate, now, s.policy.Location, s.policy.DueSoonDays),
		}
		if sale.DueDate != nil {
			days := DaysUntil(*sale.DueDate, now, s.policy.Location)
			inv.DaysUntilDue = &days
		}
		out = append(out, inv)
	}
	return out, nil
}

// lockSale takes the sale lock and, for credit sales, the customer lock
// after it.
func (s *service) lockSale(ctx context.Context, saleID uuid.UUID) (locks.Release, error) {
	if saleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "sale id is required")
	}
	sale, err := s.repo.FindSale(ctx, saleID)
	if err != nil {
		return nil, err
	}
	keys := []string{locks.SaleKey(sale.ID)}
	if sale.CustomerID != nil {
		keys = append(keys, locks.CustomerKey(*sale.CustomerID))
	}
	return s.locker.Acquire(ctx, keys...)
}

func (s *service) release(ctx context.Context, release locks.Release) {
	if err := release(ctx); err != nil && s.logg != nil {
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "credit lock release failed")
	}
}
