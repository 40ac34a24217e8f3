package sales

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// Settlement says how the customer pays for a sale.
//
// Cash, card and transfer sales are paid in full at the till; Received is the
// tendered amount when the cashier records it. Credit sales require a
// customer and may carry a Deposit paid by DepositMethod. The due date is
// DueDate when set, otherwise the sale day plus CreditDays, the customer's
// terms or the default terms, in that order.
type Settlement struct {
	Method        enums.PaymentMethod
	Received      *decimal.Decimal
	CustomerID    *uuid.UUID
	Deposit       decimal.Decimal
	DepositMethod enums.PaymentMethod
	CreditDays    *int
	DueDate       *time.Time
	Note          *string
}

// settlementPlan is a validated settlement resolved against the priced total.
type settlementPlan struct {
	state         credit.State
	changeDue     decimal.Decimal
	received      *decimal.Decimal
	deposit       decimal.Decimal
	depositMethod enums.PaymentMethod
	dueDate       *time.Time
}

func (s *service) planSettlement(grandTotal decimal.Decimal, settlement Settlement, customer *models.Customer, soldAt time.Time) (settlementPlan, error) {
	if !settlement.Method.IsValid() {
		return settlementPlan{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown payment method %q", settlement.Method))
	}
	if settlement.Method.IsCredit() {
		return s.planCredit(grandTotal, settlement, customer, soldAt)
	}

	if !settlement.Deposit.IsZero() {
		return settlementPlan{}, pkgerrors.New(pkgerrors.CodeValidation, "deposits only apply to credit sales")
	}
	plan := settlementPlan{
		state:     credit.DeriveState(grandTotal, grandTotal),
		changeDue: decimal.Zero,
	}
	if settlement.Received != nil {
		received := *settlement.Received
		if received.LessThan(grandTotal) {
			return settlementPlan{}, pkgerrors.New(pkgerrors.CodeValidation, "received amount is less than the grand total").
				WithDetails(map[string]any{"grand_total": grandTotal.String(), "received": received.String()})
		}
		if !received.Equal(received.Round(s.policy.CurrencyScale)) {
			return settlementPlan{}, pkgerrors.New(pkgerrors.CodeValidation, "received amount has too many decimal places")
		}
		plan.received = &received
		plan.changeDue = received.Sub(grandTotal)
	}
	return plan, nil
}

func (s *service) planCredit(grandTotal decimal.Decimal, settlement Settlement, customer *models.Customer, soldAt time.Time) (settlementPlan, error) {
	if customer == nil {
		return settlementPlan{}, pkgerrors.New(pkgerrors.CodeValidation, "credit sales require a customer")
	}
	if !settlement.Deposit.Equal(settlement.Deposit.Round(s.policy.CurrencyScale)) {
		return settlementPlan{}, pkgerrors.New(pkgerrors.CodeValidation, "deposit has too many decimal places")
	}
	state, err := credit.InitialState(grandTotal, settlement.Deposit)
	if err != nil {
		return settlementPlan{}, err
	}

	depositMethod := settlement.DepositMethod
	if depositMethod == "" {
		depositMethod = enums.PaymentMethodCash
	}
	if settlement.Deposit.IsPositive() && (!depositMethod.IsValid() || depositMethod.IsCredit()) {
		return settlementPlan{}, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("deposit method %q is not a payment", depositMethod))
	}

	due, err := s.dueDate(settlement, customer, soldAt)
	if err != nil {
		return settlementPlan{}, err
	}
	return settlementPlan{
		state:         state,
		changeDue:     decimal.Zero,
		deposit:       settlement.Deposit,
		depositMethod: depositMethod,
		dueDate:       &due,
	}, nil
}

func (s *service) dueDate(settlement Settlement, customer *models.Customer, soldAt time.Time) (time.Time, error) {
	loc := s.policy.Location
	if settlement.DueDate != nil {
		due := credit.DayStart(*settlement.DueDate, loc)
		if credit.DaysUntil(due, soldAt, loc) < 0 {
			return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "due date is before the sale date")
		}
		return due, nil
	}
	days := s.creditDays
	switch {
	case settlement.CreditDays != nil:
		days = *settlement.CreditDays
	case customer.CreditDays != nil:
		days = *customer.CreditDays
	}
	if days < 0 {
		return time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "credit days must not be negative")
	}
	if loc == nil {
		loc = time.UTC
	}
	return credit.DayStart(soldAt.In(loc).AddDate(0, 0, days), loc), nil
}
