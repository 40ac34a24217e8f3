package inventory

import (
	"context"
	"math/rand"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

func (f *fixture) apply(t *testing.T, deltas ...Delta) ([]models.ProductMovementLog, error) {
	t.Helper()
	var entries []models.ProductMovementLog
	err := f.client.WithTx(context.Background(), func(tx *gorm.DB) error {
		var err error
		entries, err = f.ledger.ApplyMovements(context.Background(), tx, "cashier-1", deltas)
		return err
	})
	return entries, err
}

func TestApplyMovementsWritesOneLogPerProduct(t *testing.T) {
	f := newFixture(t)
	a := f.seedProduct(t, "A", "10")
	b := f.seedProduct(t, "B", "4")

	entries, err := f.apply(t,
		Delta{ProductID: a.ID, QuantityChange: dec("-2"), Type: enums.MovementTypeSale, CauseRef: "R1"},
		Delta{ProductID: b.ID, QuantityChange: dec("-1"), Type: enums.MovementTypeSale, CauseRef: "R1"},
		Delta{ProductID: a.ID, QuantityChange: dec("-3"), Type: enums.MovementTypeSale, CauseRef: "R1"},
	)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].ProductID.String() < entries[1].ProductID.String())

	for _, e := range entries {
		assert.True(t, e.StockAfter.Equal(e.StockBefore.Add(e.QuantityChange)))
		assert.Equal(t, "R1", e.CauseRef)
		assert.Equal(t, "cashier-1", e.ActorID)
		assert.True(t, e.CostPrice.Equal(dec("6")))
		assert.True(t, e.SellingPrice.Equal(dec("10")))
	}
	assert.True(t, f.stockOf(t, a).Equal(dec("5")))
	assert.True(t, f.stockOf(t, b).Equal(dec("3")))
}

func TestApplyMovementsIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	plenty := f.seedProduct(t, "PLENTY", "100")
	scarce := f.seedProduct(t, "SCARCE", "3")

	_, err := f.apply(t,
		Delta{ProductID: plenty.ID, QuantityChange: dec("-10"), Type: enums.MovementTypeSale, CauseRef: "R2"},
		Delta{ProductID: scarce.ID, QuantityChange: dec("-5"), Type: enums.MovementTypeSale, CauseRef: "R2"},
	)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, appErr.Code())
	details, ok := appErr.Details().(map[string]any)
	require.True(t, ok)
	assert.Equal(t, scarce.ID.String(), details["product_id"])

	assert.True(t, f.stockOf(t, plenty).Equal(dec("100")))
	assert.True(t, f.stockOf(t, scarce).Equal(dec("3")))

	logs, err := f.movements.ListByCauseRef(context.Background(), "R2")
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestApplyMovementsValidation(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "A", "1")

	cases := []struct {
		name  string
		delta Delta
		code  pkgerrors.Code
	}{
		{name: "nil product", delta: Delta{QuantityChange: dec("1"), Type: enums.MovementTypeSale}, code: pkgerrors.CodeValidation},
		{name: "bad type", delta: Delta{ProductID: p.ID, QuantityChange: dec("1"), Type: "shrinkage"}, code: pkgerrors.CodeValidation},
		{name: "zero change", delta: Delta{ProductID: p.ID, QuantityChange: decimal.Zero, Type: enums.MovementTypeSale}, code: pkgerrors.CodeValidation},
		{name: "unknown product", delta: Delta{ProductID: uuid.New(), QuantityChange: dec("-1"), Type: enums.MovementTypeSale}, code: pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.apply(t, tc.delta)
			assert.True(t, pkgerrors.IsCode(err, tc.code), "got %v", err)
		})
	}

	err := f.client.WithTx(context.Background(), func(*gorm.DB) error {
		_, err := f.ledger.ApplyMovements(context.Background(), nil, "x", nil)
		return err
	})
	assert.Error(t, err)
}

func TestApplyMovementsRejectsMixedMovementsPerProduct(t *testing.T) {
	f := newFixture(t)
	p := f.seedProduct(t, "A", "10")

	cases := []struct {
		name   string
		second Delta
	}{
		{name: "mixed type", second: Delta{ProductID: p.ID, QuantityChange: dec("5"), Type: enums.MovementTypePurchaseReceipt, CauseRef: "R1"}},
		{name: "mixed cause", second: Delta{ProductID: p.ID, QuantityChange: dec("-1"), Type: enums.MovementTypeSale, CauseRef: "R2"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.apply(t,
				Delta{ProductID: p.ID, QuantityChange: dec("-2"), Type: enums.MovementTypeSale, CauseRef: "R1"},
				tc.second,
			)
			assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "got %v", err)
			assert.True(t, f.stockOf(t, p).Equal(dec("10")))
		})
	}
}

func TestStockEqualsSumOfMovements(t *testing.T) {
	f := newFixture(t)
	rng := rand.New(rand.NewSource(7))
	items := []*models.Product{
		f.seedProduct(t, "A", "20"),
		f.seedProduct(t, "B", "5"),
		f.seedProduct(t, "C", "0.5"),
	}

	for i := 0; i < 60; i++ {
		var deltas []Delta
		for _, p := range items {
			if rng.Intn(2) == 0 {
				continue
			}
			change := decimal.NewFromInt(int64(rng.Intn(9) - 5))
			if change.IsZero() {
				change = decimal.NewFromInt(1)
			}
			kind := enums.MovementTypeSale
			if change.IsPositive() {
				kind = enums.MovementTypePurchaseReceipt
			}
			deltas = append(deltas, Delta{ProductID: p.ID, QuantityChange: change, Type: kind, CauseRef: "batch"})
		}
		if len(deltas) == 0 {
			continue
		}
		_, err := f.apply(t, deltas...)
		if err != nil {
			require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientStock), "unexpected error %v", err)
		}
	}

	for _, p := range items {
		rec, err := f.service.Reconcile(context.Background(), p.ID)
		require.NoError(t, err)
		assert.True(t, rec.Balanced, "product %s stock %s ledger %s", p.SKU, rec.Stock, rec.LedgerTotal)
		assert.False(t, rec.Stock.IsNegative())

		history, err := f.service.GetMovementHistory(context.Background(), p.ID)
		require.NoError(t, err)
		for i := 1; i < len(history); i++ {
			assert.True(t, history[i-1].StockAfter.Equal(history[i].StockBefore), "history gap at %d", i)
		}
	}
}
