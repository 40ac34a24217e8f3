package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

// SalePayment is an immutable payment applied to a sale. The void columns
// are the only permitted mutation.
type SalePayment struct {
	ID         uuid.UUID           `gorm:"column:id;type:char(36);primaryKey"`
	SaleID     uuid.UUID           `gorm:"column:sale_id;type:char(36);not null;index"`
	Amount     decimal.Decimal     `gorm:"column:amount;type:decimal(20,4);not null"`
	Method     enums.PaymentMethod `gorm:"column:method;size:16;not null"`
	Note       *string             `gorm:"column:note"`
	IsDeposit  bool                `gorm:"column:is_deposit;not null;default:false"`
	ActorID    string              `gorm:"column:actor_id;size:64;not null"`
	PaidAt     time.Time           `gorm:"column:paid_at;not null"`
	VoidedAt   *time.Time          `gorm:"column:voided_at"`
	VoidedBy   *string             `gorm:"column:voided_by;size:64"`
	VoidReason *string             `gorm:"column:void_reason"`
	CreatedAt  time.Time           `gorm:"column:created_at;autoCreateTime"`
}

func (p *SalePayment) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

func (p *SalePayment) IsVoided() bool {
	return p != nil && p.VoidedAt != nil
}
