package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

// Round returns a copy of the sale in the form it is stored and shown, with
// money rounded half away from zero to scale decimal places.
//
// Unit prices are rounded first and everything else is rebuilt from them, so
// the stored record adds up: each line total is quantity times the stored
// unit price, the item subtotal and item discount total are sums of the
// stored lines, and stages four to six are applied again on the stored
// subtotal. With fractional quantities a line total is rounded once more and
// may sit within half a unit of the last place from quantity times price.
func (s *PricedSale) Round(scale int32) *PricedSale {
	out := *s
	out.Lines = make([]PricedLine, len(s.Lines))
	out.CartOriginalTotal = decimal.Zero
	out.PromotionSavingsTotal = decimal.Zero
	out.CartItemDiscountTotal = decimal.Zero
	out.SubtotalAfterItemDiscounts = decimal.Zero

	for i, line := range s.Lines {
		line = line.round(scale)
		out.Lines[i] = line

		gross := line.OriginalUnitPrice.Mul(line.Quantity).Round(scale)
		out.CartOriginalTotal = out.CartOriginalTotal.Add(gross)
		out.PromotionSavingsTotal = out.PromotionSavingsTotal.Add(line.PromotionSavings().Round(scale))
		out.CartItemDiscountTotal = out.CartItemDiscountTotal.Add(line.LineDiscountAmount)
		out.SubtotalAfterItemDiscounts = out.SubtotalAfterItemDiscounts.Add(line.LineTotal)
	}

	subtotal := out.SubtotalAfterItemDiscounts
	out.OverallDiscountAmount = s.storedOverall(subtotal, scale)
	out.SubtotalAfterOverallDiscount = subtotal.Sub(out.OverallDiscountAmount)

	out.CouponAmount = decimal.Min(s.CouponAmount.Round(scale), out.SubtotalAfterOverallDiscount)
	out.SubtotalBeforeVAT = out.SubtotalAfterOverallDiscount.Sub(out.CouponAmount)

	vat, _ := applyVAT(out.SubtotalBeforeVAT, s.VAT)
	out.VATAmount = vat.Round(scale)
	out.GrandTotal = out.SubtotalBeforeVAT
	if s.VAT.Mode == enums.VATModeAdd {
		out.GrandTotal = out.SubtotalBeforeVAT.Add(out.VATAmount)
	}
	out.Scale = scale
	return &out
}

func (l PricedLine) round(scale int32) PricedLine {
	l.ListUnitPrice = l.ListUnitPrice.Round(scale)
	l.OriginalUnitPrice = l.OriginalUnitPrice.Round(scale)
	l.UnitPriceAfterDiscount = l.UnitPriceAfterDiscount.Round(scale)
	l.UnitDiscountAmount = l.OriginalUnitPrice.Sub(l.UnitPriceAfterDiscount)
	l.LineTotal = l.UnitPriceAfterDiscount.Mul(l.Quantity).Round(scale)
	l.LineDiscountAmount = l.OriginalUnitPrice.Mul(l.Quantity).Round(scale).Sub(l.LineTotal)
	return l
}

// storedOverall re-applies the overall discount to the stored subtotal. A
// fixed amount that no longer fits after rounding is capped at the subtotal.
func (s *PricedSale) storedOverall(subtotal decimal.Decimal, scale int32) decimal.Decimal {
	amount, err := orNone(s.OverallDiscount).amountOn(subtotal)
	if err != nil {
		amount = s.OverallDiscountAmount
	}
	return decimal.Min(amount.Round(scale), subtotal)
}
