package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

// ProductMovementLog is an append-only stock ledger row. Rows are never
// updated or deleted.
type ProductMovementLog struct {
	ID             uuid.UUID          `gorm:"column:id;type:char(36);primaryKey"`
	ProductID      uuid.UUID          `gorm:"column:product_id;type:char(36);not null;index:idx_movement_product_time,priority:1"`
	MovementType   enums.MovementType `gorm:"column:movement_type;size:32;not null"`
	QuantityChange decimal.Decimal    `gorm:"column:quantity_change;type:decimal(20,4);not null"`
	StockBefore    decimal.Decimal    `gorm:"column:stock_before;type:decimal(20,4);not null"`
	StockAfter     decimal.Decimal    `gorm:"column:stock_after;type:decimal(20,4);not null"`
	CostPrice      decimal.Decimal    `gorm:"column:cost_price;type:decimal(20,4);not null"`
	SellingPrice   decimal.Decimal    `gorm:"column:selling_price;type:decimal(20,4);not null"`
	CauseRef       string             `gorm:"column:cause_ref;size:64;not null"`
	ActorID        string             `gorm:"column:actor_id;size:64;not null"`
	Note           *string            `gorm:"column:note"`
	CreatedAt      time.Time          `gorm:"column:created_at;not null;index:idx_movement_product_time,priority:2"`
}

func (m *ProductMovementLog) BeforeCreate(*gorm.DB) error {
	ensureID(&m.ID)
	return nil
}
