// Package pricing turns a cart into a complete price breakdown.
//
// Price is pure: it performs no I/O and keeps full decimal precision through
// every stage. Call Round on the result before persisting it.
package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// Promotion replaces a line's list price with Price.
type Promotion struct {
	ID    string
	Price decimal.Decimal
}

// RawLine is one unpriced cart line.
type RawLine struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	Promotion   *Promotion
	Discount    Discount
	// Giveaway marks a promotional line whose revenue may be zero while its
	// cost is real.
	Giveaway bool
}

type DiscountConfig struct {
	Overall Discount
	Coupon  decimal.Decimal
}

type VATConfig struct {
	Mode        enums.VATMode
	RatePercent decimal.Decimal
}

func (v VATConfig) rate() decimal.Decimal {
	return v.RatePercent.Div(hundred)
}

type PricedLine struct {
	LineNo      int
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal

	// ListUnitPrice is the price before promotion, kept for audit.
	ListUnitPrice     decimal.Decimal
	OriginalUnitPrice decimal.Decimal
	PromotionID       *string

	Discount               Discount
	UnitDiscountAmount     decimal.Decimal
	UnitPriceAfterDiscount decimal.Decimal
	LineDiscountAmount     decimal.Decimal
	LineTotal              decimal.Decimal
	Giveaway               bool
}

// PromotionSavings is what the promotion took off the list price for the line.
func (l PricedLine) PromotionSavings() decimal.Decimal {
	return l.ListUnitPrice.Sub(l.OriginalUnitPrice).Mul(l.Quantity)
}

type PricedSale struct {
	Lines []PricedLine

	CartOriginalTotal          decimal.Decimal
	PromotionSavingsTotal      decimal.Decimal
	CartItemDiscountTotal      decimal.Decimal
	SubtotalAfterItemDiscounts decimal.Decimal

	OverallDiscount              Discount
	OverallDiscountAmount        decimal.Decimal
	SubtotalAfterOverallDiscount decimal.Decimal

	CouponAmount      decimal.Decimal
	SubtotalBeforeVAT decimal.Decimal

	VAT        VATConfig
	VATAmount  decimal.Decimal
	GrandTotal decimal.Decimal

	// Scale is the number of decimal places values were rounded to, or -1
	// while the sale still carries full precision.
	Scale int32
}

// Price runs the pipeline: promotion, item discount, cart aggregation,
// overall discount, coupon, VAT.
func Price(cart []RawLine, discounts DiscountConfig, vat VATConfig) (*PricedSale, error) {
	if len(cart) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart is empty")
	}
	if err := validateVAT(vat); err != nil {
		return nil, err
	}

	sale := &PricedSale{
		Lines:                      make([]PricedLine, 0, len(cart)),
		CartOriginalTotal:          decimal.Zero,
		PromotionSavingsTotal:      decimal.Zero,
		CartItemDiscountTotal:      decimal.Zero,
		SubtotalAfterItemDiscounts: decimal.Zero,
		VAT:                        vat,
		Scale:                      -1,
	}

	for i, raw := range cart {
		line, err := priceLine(i+1, raw)
		if err != nil {
			return nil, err
		}
		sale.Lines = append(sale.Lines, line)

		sale.CartOriginalTotal = sale.CartOriginalTotal.Add(line.OriginalUnitPrice.Mul(line.Quantity))
		sale.PromotionSavingsTotal = sale.PromotionSavingsTotal.Add(line.PromotionSavings())
		sale.CartItemDiscountTotal = sale.CartItemDiscountTotal.Add(line.LineDiscountAmount)
		sale.SubtotalAfterItemDiscounts = sale.SubtotalAfterItemDiscounts.Add(line.LineTotal)
	}

	sale.OverallDiscount = orNone(discounts.Overall)
	overall, err := sale.OverallDiscount.amountOn(sale.SubtotalAfterItemDiscounts)
	if err != nil {
		return nil, err
	}
	sale.OverallDiscountAmount = overall
	sale.SubtotalAfterOverallDiscount = sale.SubtotalAfterItemDiscounts.Sub(overall)

	if discounts.Coupon.IsNegative() {
		return nil, pkgerrors.InvalidDiscount(fmt.Sprintf("coupon %s is negative", discounts.Coupon))
	}
	if discounts.Coupon.GreaterThan(sale.SubtotalAfterOverallDiscount) {
		return nil, pkgerrors.InvalidDiscount(fmt.Sprintf("coupon %s exceeds subtotal %s", discounts.Coupon, sale.SubtotalAfterOverallDiscount))
	}
	sale.CouponAmount = discounts.Coupon
	sale.SubtotalBeforeVAT = sale.SubtotalAfterOverallDiscount.Sub(discounts.Coupon)

	sale.VATAmount, sale.GrandTotal = applyVAT(sale.SubtotalBeforeVAT, vat)
	return sale, nil
}

func priceLine(lineNo int, raw RawLine) (PricedLine, error) {
	details := map[string]any{"line": lineNo, "product_id": raw.ProductID.String()}
	if raw.ProductID == uuid.Nil {
		return PricedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "line product is required").WithDetails(details)
	}
	if !raw.Quantity.IsPositive() {
		return PricedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "line quantity must be positive").WithDetails(details)
	}
	if raw.UnitPrice.IsNegative() {
		return PricedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "unit price must not be negative").WithDetails(details)
	}

	line := PricedLine{
		LineNo:            lineNo,
		ProductID:         raw.ProductID,
		ProductName:       raw.ProductName,
		Quantity:          raw.Quantity,
		ListUnitPrice:     raw.UnitPrice,
		OriginalUnitPrice: raw.UnitPrice,
		Discount:          orNone(raw.Discount),
		Giveaway:          raw.Giveaway,
	}

	if raw.Promotion != nil {
		if raw.Promotion.Price.IsNegative() {
			details["reason"] = "promotional price is negative"
			return PricedLine{}, pkgerrors.InvalidDiscount("promotional price is negative").WithDetails(details)
		}
		id := raw.Promotion.ID
		line.PromotionID = &id
		line.OriginalUnitPrice = raw.Promotion.Price
	}

	unitDiscount, err := line.Discount.amountOn(line.OriginalUnitPrice)
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil {
			details["reason"] = typed.Message()
			return PricedLine{}, typed.WithDetails(details)
		}
		return PricedLine{}, err
	}
	line.UnitDiscountAmount = unitDiscount
	line.UnitPriceAfterDiscount = line.OriginalUnitPrice.Sub(unitDiscount)

	if !line.UnitPriceAfterDiscount.IsPositive() && !raw.Giveaway {
		if line.Discount.Kind() != enums.DiscountKindNone || raw.Promotion != nil {
			details["reason"] = "non-positive price on a non-giveaway line"
			return PricedLine{}, pkgerrors.InvalidDiscount("discount leaves a non-positive price on a non-giveaway line").WithDetails(details)
		}
		return PricedLine{}, pkgerrors.New(pkgerrors.CodeValidation, "zero-priced lines must be flagged as giveaway").WithDetails(details)
	}

	line.LineDiscountAmount = unitDiscount.Mul(raw.Quantity)
	line.LineTotal = line.UnitPriceAfterDiscount.Mul(raw.Quantity)
	return line, nil
}

func validateVAT(vat VATConfig) error {
	if !vat.Mode.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown vat mode %q", vat.Mode))
	}
	if vat.RatePercent.IsNegative() || vat.RatePercent.GreaterThanOrEqual(hundred) {
		return pkgerrors.New(pkgerrors.CodeValidation, "vat rate must be in [0, 100)")
	}
	return nil
}

// applyVAT returns (vatAmount, grandTotal) for the given pre-VAT subtotal.
func applyVAT(subtotal decimal.Decimal, vat VATConfig) (decimal.Decimal, decimal.Decimal) {
	switch vat.Mode {
	case enums.VATModeAdd:
		amount := subtotal.Mul(vat.rate())
		return amount, subtotal.Add(amount)
	case enums.VATModeIncluded:
		net := subtotal.Div(decimal.NewFromInt(1).Add(vat.rate()))
		return subtotal.Sub(net), subtotal
	default:
		return decimal.Zero, subtotal
	}
}

// GiveawayLines returns the lines flagged as promotional giveaways.
func (s *PricedSale) GiveawayLines() []PricedLine {
	var out []PricedLine
	for _, line := range s.Lines {
		if line.Giveaway {
			out = append(out, line)
		}
	}
	return out
}
