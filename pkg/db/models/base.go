package models

import (
	"github.com/google/uuid"
)

// ensureID assigns a fresh identifier when the caller left it blank.
func ensureID(id *uuid.UUID) {
	if *id == uuid.Nil {
		*id = uuid.New()
	}
}

// All lists every persisted model, in dependency order, for AutoMigrate.
func All() []any {
	return []any{
		&Product{},
		&ProductPriceTier{},
		&Customer{},
		&Sale{},
		&SaleLineItem{},
		&SalePayment{},
		&ProductMovementLog{},
		&Expense{},
		&ReceiptCounter{},
		&OutboxEvent{},
		&OutboxDLQ{},
	}
}
