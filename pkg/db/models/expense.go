package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

// Expense is a book entry posted alongside a sale, e.g. the cost of a
// promotional giveaway.
type Expense struct {
	ID          uuid.UUID             `gorm:"column:id;type:char(36);primaryKey"`
	Category    enums.ExpenseCategory `gorm:"column:category;size:32;not null"`
	Amount      decimal.Decimal       `gorm:"column:amount;type:decimal(20,4);not null"`
	Description string                `gorm:"column:description;not null"`
	SaleID      *uuid.UUID            `gorm:"column:sale_id;type:char(36);index"`
	ReceiptNo   *string               `gorm:"column:receipt_no;size:32"`
	ProductID   *uuid.UUID            `gorm:"column:product_id;type:char(36)"`
	ActorID     string                `gorm:"column:actor_id;size:64;not null"`
	IncurredAt  time.Time             `gorm:"column:incurred_at;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
}

func (e *Expense) BeforeCreate(*gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
