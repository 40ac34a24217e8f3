package expenses

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tillbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

func TestGiveawayExpenseRoundTrip(t *testing.T) {
	client := dbtest.Open(t)
	repo := NewRepository(client.DB())
	saleID := uuid.New()
	at := time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

	expense := GiveawayExpense(saleID, "R20260504-0003", "cashier-1", at, GiveawayLine{
		ProductID:   uuid.New(),
		ProductName: "Tote bag",
		Quantity:    decimal.NewFromInt(3),
		CostPrice:   decimal.RequireFromString("12.345"),
	}, 2)
	assert.Equal(t, enums.ExpenseCategorySelling, expense.Category)
	assert.True(t, expense.Amount.Equal(decimal.RequireFromString("37.04")), "got %s", expense.Amount)
	assert.Contains(t, expense.Description, "R20260504-0003")

	require.NoError(t, repo.Create(context.Background(), &expense))

	rows, err := repo.ListBySaleID(context.Background(), saleID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NotNil(t, rows[0].ReceiptNo)
	assert.Equal(t, "R20260504-0003", *rows[0].ReceiptNo)
}

func TestReversalCancelsExpense(t *testing.T) {
	saleID := uuid.New()
	at := time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC)
	original := GiveawayExpense(saleID, "R20260504-0003", "cashier-1", at.Add(-time.Hour), GiveawayLine{
		ProductID:   uuid.New(),
		ProductName: "Keyring",
		Quantity:    decimal.NewFromInt(2),
		CostPrice:   decimal.RequireFromString("4.50"),
	}, 2)

	reversal := Reversal(original, "manager-1", at)
	assert.True(t, reversal.Amount.Add(original.Amount).IsZero())
	assert.Equal(t, original.SaleID, reversal.SaleID)
	assert.Equal(t, "manager-1", reversal.ActorID)
	assert.Equal(t, at, reversal.IncurredAt)
}
