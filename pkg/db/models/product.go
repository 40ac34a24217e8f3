package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a stock-keeping unit. Stock is only written by the inventory
// ledger, guarded by Version.
type Product struct {
	ID           uuid.UUID          `gorm:"column:id;type:char(36);primaryKey"`
	SKU          string             `gorm:"column:sku;size:64;not null;uniqueIndex"`
	Name         string             `gorm:"column:name;size:255;not null"`
	Unit         string             `gorm:"column:unit;size:32;not null;default:'pcs'"`
	CostPrice    decimal.Decimal    `gorm:"column:cost_price;type:decimal(20,4);not null"`
	SellingPrice decimal.Decimal    `gorm:"column:selling_price;type:decimal(20,4);not null"`
	Stock        decimal.Decimal    `gorm:"column:stock;type:decimal(20,4);not null"`
	IsActive     bool               `gorm:"column:is_active;not null;default:true"`
	IsVisible    bool               `gorm:"column:is_visible;not null;default:true"`
	Version      int64              `gorm:"column:version;not null;default:1"`
	PriceTiers   []ProductPriceTier `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
	CreatedAt    time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// ProductPriceTier is a quantity-break selling price.
type ProductPriceTier struct {
	ID          uuid.UUID       `gorm:"column:id;type:char(36);primaryKey"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:char(36);not null;index"`
	Name        string          `gorm:"column:name;size:64;not null"`
	MinQuantity decimal.Decimal `gorm:"column:min_quantity;type:decimal(20,4);not null"`
	Price       decimal.Decimal `gorm:"column:price;type:decimal(20,4);not null"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (t *ProductPriceTier) BeforeCreate(*gorm.DB) error {
	ensureID(&t.ID)
	return nil
}
