package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// PriceFromMargin back-solves the selling price that yields gpPercent gross
// profit on cost: price = cost / (1 - gp/100).
func PriceFromMargin(cost, gpPercent decimal.Decimal) (decimal.Decimal, error) {
	if cost.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "cost price must not be negative")
	}
	if gpPercent.IsNegative() || gpPercent.GreaterThanOrEqual(hundred) {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("gross profit %s%% outside [0, 100)", gpPercent))
	}
	return cost.Div(decimal.NewFromInt(1).Sub(gpPercent.Div(hundred))), nil
}

// MarginOf reports the gross profit percentage of selling at price.
func MarginOf(cost, price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, "selling price must be positive")
	}
	return price.Sub(cost).Div(price).Mul(hundred), nil
}
