package expenses

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

// GiveawayLine is a promotional line whose cost is booked as a selling expense.
type GiveawayLine struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    decimal.Decimal
	CostPrice   decimal.Decimal
}

// GiveawayExpense builds the selling-expense row for a giveaway line:
// cost price times quantity, tagged with the sale's receipt.
func GiveawayExpense(saleID uuid.UUID, receiptNo, actorID string, at time.Time, line GiveawayLine, scale int32) models.Expense {
	productID := line.ProductID
	return models.Expense{
		Category:    enums.ExpenseCategorySelling,
		Amount:      line.CostPrice.Mul(line.Quantity).Round(scale),
		Description: fmt.Sprintf("Giveaway %s x%s (receipt %s)", line.ProductName, line.Quantity.String(), receiptNo),
		SaleID:      &saleID,
		ReceiptNo:   &receiptNo,
		ProductID:   &productID,
		ActorID:     actorID,
		IncurredAt:  at,
	}
}

// Reversal builds the posting that cancels expense when its sale is voided.
func Reversal(expense models.Expense, actorID string, at time.Time) models.Expense {
	return models.Expense{
		Category:    expense.Category,
		Amount:      expense.Amount.Neg(),
		Description: "Reversal: " + expense.Description,
		SaleID:      expense.SaleID,
		ReceiptNo:   expense.ReceiptNo,
		ProductID:   expense.ProductID,
		ActorID:     actorID,
		IncurredAt:  at,
	}
}
