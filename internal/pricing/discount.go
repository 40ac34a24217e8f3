package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

var hundred = decimal.NewFromInt(100)

// Discount is a closed set: NoDiscount, PercentDiscount or FixedDiscount.
type Discount interface {
	Kind() enums.DiscountKind
	Value() decimal.Decimal
	// amountOn returns how much the discount removes from base.
	amountOn(base decimal.Decimal) (decimal.Decimal, error)
}

type NoDiscount struct{}

func (NoDiscount) Kind() enums.DiscountKind { return enums.DiscountKindNone }
func (NoDiscount) Value() decimal.Decimal   { return decimal.Zero }
func (NoDiscount) amountOn(decimal.Decimal) (decimal.Decimal, error) {
	return decimal.Zero, nil
}

// PercentDiscount removes Percent% of the base. Percent must be in [0, 100).
type PercentDiscount struct {
	Percent decimal.Decimal
}

func (d PercentDiscount) Kind() enums.DiscountKind { return enums.DiscountKindPercent }
func (d PercentDiscount) Value() decimal.Decimal   { return d.Percent }
func (d PercentDiscount) amountOn(base decimal.Decimal) (decimal.Decimal, error) {
	if d.Percent.IsNegative() || d.Percent.GreaterThanOrEqual(hundred) {
		return decimal.Zero, pkgerrors.InvalidDiscount(fmt.Sprintf("percent discount %s outside [0, 100)", d.Percent))
	}
	return base.Mul(d.Percent).Div(hundred), nil
}

// FixedDiscount removes a flat Amount from the base.
type FixedDiscount struct {
	Amount decimal.Decimal
}

func (d FixedDiscount) Kind() enums.DiscountKind { return enums.DiscountKindFixed }
func (d FixedDiscount) Value() decimal.Decimal   { return d.Amount }
func (d FixedDiscount) amountOn(base decimal.Decimal) (decimal.Decimal, error) {
	if d.Amount.IsNegative() {
		return decimal.Zero, pkgerrors.InvalidDiscount(fmt.Sprintf("fixed discount %s is negative", d.Amount))
	}
	if d.Amount.GreaterThan(base) {
		return decimal.Zero, pkgerrors.InvalidDiscount(fmt.Sprintf("fixed discount %s exceeds price %s", d.Amount, base))
	}
	return d.Amount, nil
}

// orNone normalises a nil Discount.
func orNone(d Discount) Discount {
	if d == nil {
		return NoDiscount{}
	}
	return d
}

// DiscountSpec is the wire form of a Discount.
type DiscountSpec struct {
	Kind  enums.DiscountKind `json:"kind" validate:"omitempty,oneof=none percent fixed"`
	Value decimal.Decimal    `json:"value"`
}

// ToDiscount converts the wire form into a Discount. A nil spec means none.
func (s *DiscountSpec) ToDiscount() (Discount, error) {
	if s == nil {
		return NoDiscount{}, nil
	}
	switch s.Kind {
	case "", enums.DiscountKindNone:
		if !s.Value.IsZero() {
			return nil, pkgerrors.InvalidDiscount("discount value given without a kind")
		}
		return NoDiscount{}, nil
	case enums.DiscountKindPercent:
		return PercentDiscount{Percent: s.Value}, nil
	case enums.DiscountKindFixed:
		return FixedDiscount{Amount: s.Value}, nil
	default:
		return nil, pkgerrors.InvalidDiscount(fmt.Sprintf("unknown discount kind %q", s.Kind))
	}
}

// SpecOf converts a Discount back into its wire form.
func SpecOf(d Discount) DiscountSpec {
	d = orNone(d)
	return DiscountSpec{Kind: d.Kind(), Value: d.Value()}
}
