// Package dto holds the JSON shapes returned by the settlement API.
package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/internal/pricing"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

type Sale struct {
	ID            uuid.UUID           `json:"id"`
	ReceiptNo     string              `json:"receipt_no"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	PaymentMethod enums.PaymentMethod `json:"payment_method"`
	Breakdown     Breakdown           `json:"breakdown"`

	AmountReceived *decimal.Decimal `json:"amount_received,omitempty"`
	ChangeDue      decimal.Decimal  `json:"change_due"`

	Status            enums.SaleStatus `json:"status"`
	PaidAmount        decimal.Decimal  `json:"paid_amount"`
	OutstandingAmount decimal.Decimal  `json:"outstanding_amount"`
	DueDate           *time.Time       `json:"due_date,omitempty"`

	Note       *string    `json:"note,omitempty"`
	ActorID    string     `json:"actor_id"`
	SoldAt     time.Time  `json:"sold_at"`
	VoidedAt   *time.Time `json:"voided_at,omitempty"`
	VoidedBy   *string    `json:"voided_by,omitempty"`
	VoidReason *string    `json:"void_reason,omitempty"`

	Lines    []Line    `json:"lines"`
	Payments []Payment `json:"payments"`
}

// Breakdown is the pricing pipeline output, shared by quotes and sales.
type Breakdown struct {
	CartOriginalTotal            decimal.Decimal      `json:"cart_original_total"`
	PromotionSavingsTotal        decimal.Decimal      `json:"promotion_savings_total"`
	CartItemDiscountTotal        decimal.Decimal      `json:"cart_item_discount_total"`
	SubtotalAfterItemDiscounts   decimal.Decimal      `json:"subtotal_after_item_discounts"`
	OverallDiscount              pricing.DiscountSpec `json:"overall_discount"`
	OverallDiscountAmount        decimal.Decimal      `json:"overall_discount_amount"`
	SubtotalAfterOverallDiscount decimal.Decimal      `json:"subtotal_after_overall_discount"`
	CouponAmount                 decimal.Decimal      `json:"coupon_amount"`
	SubtotalBeforeVAT            decimal.Decimal      `json:"subtotal_before_vat"`
	VATMode                      enums.VATMode        `json:"vat_mode"`
	VATRatePercent               decimal.Decimal      `json:"vat_rate_percent"`
	VATAmount                    decimal.Decimal      `json:"vat_amount"`
	GrandTotal                   decimal.Decimal      `json:"grand_total"`
}

type Line struct {
	LineNo                 int                  `json:"line_no"`
	ProductID              uuid.UUID            `json:"product_id"`
	ProductName            string               `json:"product_name"`
	Quantity               decimal.Decimal      `json:"quantity"`
	ListUnitPrice          decimal.Decimal      `json:"list_unit_price"`
	OriginalUnitPrice      decimal.Decimal      `json:"original_unit_price"`
	PromotionID            *string              `json:"promotion_id,omitempty"`
	Discount               pricing.DiscountSpec `json:"discount"`
	UnitPriceAfterDiscount decimal.Decimal      `json:"unit_price_after_discount"`
	LineDiscountAmount     decimal.Decimal      `json:"line_discount_amount"`
	LineTotal              decimal.Decimal      `json:"line_total"`
	Giveaway               bool                 `json:"giveaway"`
}

type Payment struct {
	ID         uuid.UUID           `json:"id"`
	SaleID     uuid.UUID           `json:"sale_id"`
	Amount     decimal.Decimal     `json:"amount"`
	Method     enums.PaymentMethod `json:"method"`
	Note       *string             `json:"note,omitempty"`
	IsDeposit  bool                `json:"is_deposit"`
	ActorID    string              `json:"actor_id"`
	PaidAt     time.Time           `json:"paid_at"`
	VoidedAt   *time.Time          `json:"voided_at,omitempty"`
	VoidedBy   *string             `json:"voided_by,omitempty"`
	VoidReason *string             `json:"void_reason,omitempty"`
}

// Quote is a priced cart that has not been committed.
type Quote struct {
	Breakdown
	Lines []Line `json:"lines"`
}

func FromSale(s *models.Sale) Sale {
	out := Sale{
		ID:            s.ID,
		ReceiptNo:     s.ReceiptNo,
		CustomerID:    s.CustomerID,
		PaymentMethod: s.PaymentMethod,
		Breakdown: Breakdown{
			CartOriginalTotal:            s.CartOriginalTotal,
			PromotionSavingsTotal:        s.PromotionSavingsTotal,
			CartItemDiscountTotal:        s.CartItemDiscountTotal,
			SubtotalAfterItemDiscounts:   s.SubtotalAfterItemDiscounts,
			OverallDiscount:              pricing.DiscountSpec{Kind: s.OverallDiscountKind, Value: s.OverallDiscountValue},
			OverallDiscountAmount:        s.OverallDiscountAmount,
			SubtotalAfterOverallDiscount: s.SubtotalAfterOverallDiscount,
			CouponAmount:                 s.CouponAmount,
			SubtotalBeforeVAT:            s.SubtotalBeforeVAT,
			VATMode:                      s.VATMode,
			VATRatePercent:               s.VATRatePercent,
			VATAmount:                    s.VATAmount,
			GrandTotal:                   s.GrandTotal,
		},
		AmountReceived:    s.AmountReceived,
		ChangeDue:         s.ChangeDue,
		Status:            s.Status,
		PaidAmount:        s.PaidAmount,
		OutstandingAmount: s.OutstandingAmount,
		DueDate:           s.DueDate,
		Note:              s.Note,
		ActorID:           s.ActorID,
		SoldAt:            s.SoldAt,
		VoidedAt:          s.VoidedAt,
		VoidedBy:          s.VoidedBy,
		VoidReason:        s.VoidReason,
		Lines:             make([]Line, 0, len(s.LineItems)),
		Payments:          FromPayments(s.Payments),
	}
	for _, li := range s.LineItems {
		out.Lines = append(out.Lines, Line{
			LineNo:                 li.LineNo,
			ProductID:              li.ProductID,
			ProductName:            li.ProductName,
			Quantity:               li.Quantity,
			ListUnitPrice:          li.ListUnitPrice,
			OriginalUnitPrice:      li.OriginalUnitPrice,
			PromotionID:            li.PromotionID,
			Discount:               pricing.DiscountSpec{Kind: li.DiscountKind, Value: li.DiscountValue},
			UnitPriceAfterDiscount: li.UnitPriceAfterDiscount,
			LineDiscountAmount:     li.LineDiscountAmount,
			LineTotal:              li.LineTotal,
			Giveaway:               li.IsGiveaway,
		})
	}
	return out
}

func FromPayment(p *models.SalePayment) Payment {
	return Payment{
		ID:         p.ID,
		SaleID:     p.SaleID,
		Amount:     p.Amount,
		Method:     p.Method,
		Note:       p.Note,
		IsDeposit:  p.IsDeposit,
		ActorID:    p.ActorID,
		PaidAt:     p.PaidAt,
		VoidedAt:   p.VoidedAt,
		VoidedBy:   p.VoidedBy,
		VoidReason: p.VoidReason,
	}
}

func FromPayments(payments []models.SalePayment) []Payment {
	out := make([]Payment, 0, len(payments))
	for i := range payments {
		out = append(out, FromPayment(&payments[i]))
	}
	return out
}

func FromQuote(p *pricing.PricedSale) Quote {
	out := Quote{
		Breakdown: Breakdown{
			CartOriginalTotal:            p.CartOriginalTotal,
			PromotionSavingsTotal:        p.PromotionSavingsTotal,
			CartItemDiscountTotal:        p.CartItemDiscountTotal,
			SubtotalAfterItemDiscounts:   p.SubtotalAfterItemDiscounts,
			OverallDiscount:              pricing.SpecOf(p.OverallDiscount),
			OverallDiscountAmount:        p.OverallDiscountAmount,
			SubtotalAfterOverallDiscount: p.SubtotalAfterOverallDiscount,
			CouponAmount:                 p.CouponAmount,
			SubtotalBeforeVAT:            p.SubtotalBeforeVAT,
			VATMode:                      p.VAT.Mode,
			VATRatePercent:               p.VAT.RatePercent,
			VATAmount:                    p.VATAmount,
			GrandTotal:                   p.GrandTotal,
		},
		Lines: make([]Line, 0, len(p.Lines)),
	}
	for _, l := range p.Lines {
		out.Lines = append(out.Lines, Line{
			LineNo:                 l.LineNo,
			ProductID:              l.ProductID,
			ProductName:            l.ProductName,
			Quantity:               l.Quantity,
			ListUnitPrice:          l.ListUnitPrice,
			OriginalUnitPrice:      l.OriginalUnitPrice,
			PromotionID:            l.PromotionID,
			Discount:               pricing.SpecOf(l.Discount),
			UnitPriceAfterDiscount: l.UnitPriceAfterDiscount,
			LineDiscountAmount:     l.LineDiscountAmount,
			LineTotal:              l.LineTotal,
			Giveaway:               l.Giveaway,
		})
	}
	return out
}
