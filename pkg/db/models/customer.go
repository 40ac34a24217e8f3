package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer holds the running receivable balance for credit sales.
type Customer struct {
	ID              uuid.UUID       `gorm:"column:id;type:char(36);primaryKey"`
	Name            string          `gorm:"column:name;size:255;not null"`
	Phone           *string         `gorm:"column:phone;size:32"`
	Email           *string         `gorm:"column:email;size:255"`
	CreditDays      *int            `gorm:"column:credit_days"`
	TotalDebtAmount decimal.Decimal `gorm:"column:total_debt_amount;type:decimal(20,4);not null"`
	Version         int64           `gorm:"column:version;not null;default:1"`
	CreatedAt       time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	if c.Version == 0 {
		c.Version = 1
	}
	return nil
}
