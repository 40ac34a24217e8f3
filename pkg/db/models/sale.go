package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

// Sale is the committed settlement record. Only Status, PaidAmount,
// OutstandingAmount and the void columns change after commit.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:char(36);primaryKey"`
	ReceiptNo     string              `gorm:"column:receipt_no;size:32;not null;uniqueIndex"`
	CustomerID    *uuid.UUID          `gorm:"column:customer_id;type:char(36);index"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;size:16;not null"`

	CartOriginalTotal            decimal.Decimal    `gorm:"column:cart_original_total;type:decimal(20,4);not null"`
	PromotionSavingsTotal        decimal.Decimal    `gorm:"column:promotion_savings_total;type:decimal(20,4);not null"`
	CartItemDiscountTotal        decimal.Decimal    `gorm:"column:cart_item_discount_total;type:decimal(20,4);not null"`
	SubtotalAfterItemDiscounts   decimal.Decimal    `gorm:"column:subtotal_after_item_discounts;type:decimal(20,4);not null"`
	OverallDiscountKind          enums.DiscountKind `gorm:"column:overall_discount_kind;size:16;not null"`
	OverallDiscountValue         decimal.Decimal    `gorm:"column:overall_discount_value;type:decimal(20,4);not null"`
	OverallDiscountAmount        decimal.Decimal    `gorm:"column:overall_discount_amount;type:decimal(20,4);not null"`
	SubtotalAfterOverallDiscount decimal.Decimal    `gorm:"column:subtotal_after_overall_discount;type:decimal(20,4);not null"`
	CouponAmount                 decimal.Decimal    `gorm:"column:coupon_amount;type:decimal(20,4);not null"`
	SubtotalBeforeVAT            decimal.Decimal    `gorm:"column:subtotal_before_vat;type:decimal(20,4);not null"`
	VATMode                      enums.VATMode      `gorm:"column:vat_mode;size:16;not null"`
	VATRatePercent               decimal.Decimal    `gorm:"column:vat_rate_percent;type:decimal(9,4);not null"`
	VATAmount                    decimal.Decimal    `gorm:"column:vat_amount;type:decimal(20,4);not null"`
	GrandTotal                   decimal.Decimal    `gorm:"column:grand_total;type:decimal(20,4);not null"`

	AmountReceived *decimal.Decimal `gorm:"column:amount_received;type:decimal(20,4)"`
	ChangeDue      decimal.Decimal  `gorm:"column:change_due;type:decimal(20,4);not null"`

	Status            enums.SaleStatus `gorm:"column:status;size:16;not null;index"`
	PaidAmount        decimal.Decimal  `gorm:"column:paid_amount;type:decimal(20,4);not null"`
	OutstandingAmount decimal.Decimal  `gorm:"column:outstanding_amount;type:decimal(20,4);not null"`
	DueDate           *time.Time       `gorm:"column:due_date"`

	Note       *string    `gorm:"column:note"`
	ActorID    string     `gorm:"column:actor_id;size:64;not null"`
	SoldAt     time.Time  `gorm:"column:sold_at;not null"`
	VoidedAt   *time.Time `gorm:"column:voided_at"`
	VoidedBy   *string    `gorm:"column:voided_by;size:64"`
	VoidReason *string    `gorm:"column:void_reason"`
	Version    int64      `gorm:"column:version;not null;default:1"`

	LineItems []SaleLineItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments  []SalePayment  `gorm:"foreignKey:SaleID"`
	CreatedAt time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	ensureID(&s.ID)
	if s.Version == 0 {
		s.Version = 1
	}
	return nil
}

// IsVoided reports whether the sale was reversed.
func (s *Sale) IsVoided() bool {
	return s != nil && s.VoidedAt != nil
}

// SaleLineItem is one priced cart line frozen at settlement time.
type SaleLineItem struct {
	ID                     uuid.UUID          `gorm:"column:id;type:char(36);primaryKey"`
	SaleID                 uuid.UUID          `gorm:"column:sale_id;type:char(36);not null;index"`
	LineNo                 int                `gorm:"column:line_no;not null"`
	ProductID              uuid.UUID          `gorm:"column:product_id;type:char(36);not null;index"`
	ProductName            string             `gorm:"column:product_name;size:255;not null"`
	Quantity               decimal.Decimal    `gorm:"column:quantity;type:decimal(20,4);not null"`
	ListUnitPrice          decimal.Decimal    `gorm:"column:list_unit_price;type:decimal(20,4);not null"`
	OriginalUnitPrice      decimal.Decimal    `gorm:"column:original_unit_price;type:decimal(20,4);not null"`
	PromotionID            *string            `gorm:"column:promotion_id;size:64"`
	DiscountKind           enums.DiscountKind `gorm:"column:discount_kind;size:16;not null"`
	DiscountValue          decimal.Decimal    `gorm:"column:discount_value;type:decimal(20,4);not null"`
	UnitPriceAfterDiscount decimal.Decimal    `gorm:"column:unit_price_after_discount;type:decimal(20,4);not null"`
	LineDiscountAmount     decimal.Decimal    `gorm:"column:line_discount_amount;type:decimal(20,4);not null"`
	LineTotal              decimal.Decimal    `gorm:"column:line_total;type:decimal(20,4);not null"`
	CostPrice              decimal.Decimal    `gorm:"column:cost_price;type:decimal(20,4);not null"`
	IsGiveaway             bool               `gorm:"column:is_giveaway;not null;default:false"`
}

func (l *SaleLineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}
