// Package credit tracks what is owed on each sale: the paid/outstanding/status
// triple, immutable payment records and the read-time aging of open invoices.
package credit

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/pkg/config"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// State is the mutable settlement triple of a sale.
type State struct {
	PaidAmount        decimal.Decimal
	OutstandingAmount decimal.Decimal
	Status            enums.SaleStatus
}

// Policy carries the store settings the credit rules depend on.
type Policy struct {
	DueSoonDays   int
	Location      *time.Location
	CurrencyScale int32
}

// PolicyFromConfig builds a Policy from the settlement configuration.
func PolicyFromConfig(cfg config.SettlementConfig) Policy {
	return Policy{
		DueSoonDays:   cfg.DueSoonDays,
		Location:      cfg.Location(),
		CurrencyScale: cfg.CurrencyScale,
	}
}

// DeriveState computes the triple from the stored amounts. It is pure: the
// same inputs always give the same state.
func DeriveState(grandTotal, paidAmount decimal.Decimal) State {
	outstanding := decimal.Max(decimal.Zero, grandTotal.Sub(paidAmount))
	return State{
		PaidAmount:        paidAmount,
		OutstandingAmount: outstanding,
		Status:            DeriveStatus(paidAmount, outstanding),
	}
}

// DeriveStatus maps amounts to a status. A zero outstanding balance is paid,
// nothing paid is unpaid, anything else is partially paid.
func DeriveStatus(paidAmount, outstandingAmount decimal.Decimal) enums.SaleStatus {
	switch {
	case !outstandingAmount.IsPositive():
		return enums.SaleStatusPaid
	case !paidAmount.IsPositive():
		return enums.SaleStatusUnpaid
	default:
		return enums.SaleStatusPartiallyPaid
	}
}

// InitialState is the state of a credit sale at commit, given the deposit
// taken at the counter.
func InitialState(grandTotal, deposit decimal.Decimal) (State, error) {
	if deposit.IsNegative() {
		return State{}, pkgerrors.New(pkgerrors.CodeValidation, "deposit must not be negative")
	}
	if deposit.GreaterThan(grandTotal) {
		return State{}, pkgerrors.New(pkgerrors.CodeOverpayment, "deposit exceeds grand total").
			WithDetails(map[string]any{
				"outstanding": grandTotal.String(),
				"amount":      deposit.String(),
			})
	}
	return DeriveState(grandTotal, deposit), nil
}

// ClassifyAging places an open invoice relative to today in loc. Dates are
// compared as calendar days: due before today is overdue, due within
// dueSoonDays (inclusive) is due soon, later is pending. An invoice without
// a due date is pending.
func ClassifyAging(dueDate *time.Time, now time.Time, loc *time.Location, dueSoonDays int) enums.AgingStatus {
	if dueDate == nil {
		return enums.AgingStatusPending
	}
	days := DaysUntil(*dueDate, now, loc)
	switch {
	case days < 0:
		return enums.AgingStatusOverdue
	case days <= dueSoonDays:
		return enums.AgingStatusDueSoon
	default:
		return enums.AgingStatusPending
	}
}

// DaysUntil counts calendar days from today to due in loc; negative when due
// has passed.
func DaysUntil(due, now time.Time, loc *time.Location) int {
	if loc == nil {
		loc = time.UTC
	}
	return int(calendarDay(due, loc).Sub(calendarDay(now, loc)).Hours() / 24)
}

// DayStart is midnight, in loc, of the calendar day date names. Only the
// year, month and day of date are read, so a date parsed without a zone keeps
// its day wherever the store is.
func DayStart(date time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func calendarDay(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func checkScale(amount decimal.Decimal, scale int32) error {
	if !amount.Equal(amount.Round(scale)) {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("amount %s has more than %d decimal places", amount, scale))
	}
	return nil
}
