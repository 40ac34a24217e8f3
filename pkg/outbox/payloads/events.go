package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

// SaleCommittedEvent is emitted once a sale, its stock movements and its
// credit state are durable.
type SaleCommittedEvent struct {
	SaleID            uuid.UUID           `json:"sale_id"`
	ReceiptNo         string              `json:"receipt_no"`
	CustomerID        *uuid.UUID          `json:"customer_id,omitempty"`
	PaymentMethod     enums.PaymentMethod `json:"payment_method"`
	GrandTotal        decimal.Decimal     `json:"grand_total"`
	PaidAmount        decimal.Decimal     `json:"paid_amount"`
	OutstandingAmount decimal.Decimal     `json:"outstanding_amount"`
	Status            enums.SaleStatus    `json:"status"`
	LineCount         int                 `json:"line_count"`
	GiveawayExpenses  decimal.Decimal     `json:"giveaway_expenses"`
	SoldAt            time.Time           `json:"sold_at"`
}

// SaleVoidedEvent reports a reversed sale.
type SaleVoidedEvent struct {
	SaleID       uuid.UUID       `json:"sale_id"`
	ReceiptNo    string          `json:"receipt_no"`
	CustomerID   *uuid.UUID      `json:"customer_id,omitempty"`
	ReleasedDebt decimal.Decimal `json:"released_debt"`
	Reason       string          `json:"reason"`
	VoidedAt     time.Time       `json:"voided_at"`
}

// PaymentAppliedEvent carries the invoice state after a payment.
type PaymentAppliedEvent struct {
	SaleID            uuid.UUID           `json:"sale_id"`
	PaymentID         uuid.UUID           `json:"payment_id"`
	CustomerID        *uuid.UUID          `json:"customer_id,omitempty"`
	Amount            decimal.Decimal     `json:"amount"`
	Method            enums.PaymentMethod `json:"method"`
	PaidAmount        decimal.Decimal     `json:"paid_amount"`
	OutstandingAmount decimal.Decimal     `json:"outstanding_amount"`
	Status            enums.SaleStatus    `json:"status"`
	PaidAt            time.Time           `json:"paid_at"`
}

// PaymentVoidedEvent is the audit record of a payment correction.
type PaymentVoidedEvent struct {
	SaleID            uuid.UUID        `json:"sale_id"`
	PaymentID         uuid.UUID        `json:"payment_id"`
	CustomerID        *uuid.UUID       `json:"customer_id,omitempty"`
	Amount            decimal.Decimal  `json:"amount"`
	PaidAmount        decimal.Decimal  `json:"paid_amount"`
	OutstandingAmount decimal.Decimal  `json:"outstanding_amount"`
	Status            enums.SaleStatus `json:"status"`
	Reason            string           `json:"reason"`
	VoidedAt          time.Time        `json:"voided_at"`
}

// StockAdjustedEvent reports a manual adjustment or purchase receipt.
type StockAdjustedEvent struct {
	ProductID      uuid.UUID          `json:"product_id"`
	MovementID     uuid.UUID          `json:"movement_id"`
	MovementType   enums.MovementType `json:"movement_type"`
	QuantityChange decimal.Decimal    `json:"quantity_change"`
	StockBefore    decimal.Decimal    `json:"stock_before"`
	StockAfter     decimal.Decimal    `json:"stock_after"`
}
