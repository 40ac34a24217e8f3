package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/internal/pricing"
	internalsales "github.com/angelmondragon/tillbook-backend/internal/sales"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

const dueDateLayout = "2006-01-02"

type quoteRequest struct {
	Lines   []lineRequest         `json:"lines" validate:"required,min=1,max=200,dive"`
	Overall *pricing.DiscountSpec `json:"overall_discount,omitempty"`
	Coupon  decimal.Decimal       `json:"coupon_amount" validate:"dnonneg"`
	VAT     *vatRequest           `json:"vat,omitempty"`
}

type lineRequest struct {
	ProductID uuid.UUID             `json:"product_id" validate:"required"`
	Quantity  decimal.Decimal       `json:"quantity" validate:"dpos"`
	UnitPrice *decimal.Decimal      `json:"unit_price,omitempty" validate:"omitempty,dnonneg"`
	Promotion *promotionRequest     `json:"promotion,omitempty"`
	Discount  *pricing.DiscountSpec `json:"discount,omitempty"`
	Giveaway  bool                  `json:"giveaway"`
}

type promotionRequest struct {
	ID    string          `json:"id" validate:"required,max=64"`
	Price decimal.Decimal `json:"price" validate:"dnonneg"`
}

type vatRequest struct {
	Mode        enums.VATMode   `json:"mode" validate:"required,oneof=none add included"`
	RatePercent decimal.Decimal `json:"rate_percent" validate:"dnonneg"`
}

type checkoutRequest struct {
	Lines      []lineRequest         `json:"lines" validate:"required,min=1,max=200,dive"`
	Overall    *pricing.DiscountSpec `json:"overall_discount,omitempty"`
	Coupon     decimal.Decimal       `json:"coupon_amount" validate:"dnonneg"`
	VAT        *vatRequest           `json:"vat,omitempty"`
	Settlement settlementRequest     `json:"settlement"`
}

type settlementRequest struct {
	Method        enums.PaymentMethod `json:"method" validate:"required,oneof=cash card transfer credit"`
	Received      *decimal.Decimal    `json:"received,omitempty" validate:"omitempty,dnonneg"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	Deposit       decimal.Decimal     `json:"deposit" validate:"dnonneg"`
	DepositMethod enums.PaymentMethod `json:"deposit_method,omitempty" validate:"omitempty,oneof=cash card transfer"`
	CreditDays    *int                `json:"credit_days,omitempty" validate:"omitempty,min=0,max=3650"`
	DueDate       *string             `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Note          *string             `json:"note,omitempty" validate:"omitempty,max=500"`
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

func (r quoteRequest) toInput() (internalsales.QuoteInput, error) {
	input := internalsales.QuoteInput{
		Lines: make([]internalsales.CartLine, 0, len(r.Lines)),
		Discounts: pricing.DiscountConfig{
			Coupon: r.Coupon,
		},
		VAT: pricing.VATConfig{Mode: enums.VATModeNone},
	}
	overall, err := r.Overall.ToDiscount()
	if err != nil {
		return input, err
	}
	input.Discounts.Overall = overall
	if r.VAT != nil {
		input.VAT = pricing.VATConfig{Mode: r.VAT.Mode, RatePercent: r.VAT.RatePercent}
	}

	for i, line := range r.Lines {
		discount, err := line.Discount.ToDiscount()
		if err != nil {
			return input, withLine(err, i)
		}
		cartLine := internalsales.CartLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Discount:  discount,
			Giveaway:  line.Giveaway,
		}
		if line.Promotion != nil {
			cartLine.Promotion = &pricing.Promotion{ID: line.Promotion.ID, Price: line.Promotion.Price}
		}
		input.Lines = append(input.Lines, cartLine)
	}
	return input, nil
}

func (r checkoutRequest) toInput() (internalsales.CheckoutInput, error) {
	cart := quoteRequest{Lines: r.Lines, Overall: r.Overall, Coupon: r.Coupon, VAT: r.VAT}
	quote, err := cart.toInput()
	if err != nil {
		return internalsales.CheckoutInput{}, err
	}
	settlement := internalsales.Settlement{
		Method:        r.Settlement.Method,
		Received:      r.Settlement.Received,
		CustomerID:    r.Settlement.CustomerID,
		Deposit:       r.Settlement.Deposit,
		DepositMethod: r.Settlement.DepositMethod,
		CreditDays:    r.Settlement.CreditDays,
		Note:          r.Settlement.Note,
	}
	if r.Settlement.DueDate != nil {
		// A bare calendar day; the sales service pins it to the store timezone.
		due, err := time.Parse(dueDateLayout, *r.Settlement.DueDate)
		if err != nil {
			return internalsales.CheckoutInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid due_date")
		}
		settlement.DueDate = &due
	}
	return internalsales.CheckoutInput{QuoteInput: quote, Settlement: settlement}, nil
}

func withLine(err error, index int) error {
	typed := pkgerrors.As(err)
	if typed == nil {
		return err
	}
	return pkgerrors.New(typed.Code(), typed.Message()).
		WithDetails(map[string]any{"line": index + 1, "reason": typed.Message()})
}
