package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tillbook-backend/internal/products"
	"github.com/angelmondragon/tillbook-backend/pkg/db"
	"github.com/angelmondragon/tillbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
)

// stepClock advances one millisecond per reading so log order is deterministic.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock {
	return &stepClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Millisecond)
	return c.now
}

type fixture struct {
	client    *db.Client
	products  *products.Repository
	movements Repository
	ledger    *Ledger
	catalogue products.Service
	service   Service
	outbox    *outbox.Repository
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	productRepo := products.NewRepository(client.DB())
	movements := NewRepository(client.DB())
	ledger, err := NewLedger(productRepo, movements, newStepClock().Now)
	require.NoError(t, err)
	catalogue, err := products.NewService(productRepo, client, ledger, 2)
	require.NoError(t, err)
	outboxRepo := outbox.NewRepository(client.DB())
	svc, err := NewService(ServiceParams{
		Ledger:    ledger,
		Products:  productRepo,
		Movements: movements,
		DB:        client,
		Locker:    locks.NewLocal(5 * time.Second),
		Events:    outbox.NewService(outboxRepo, nil),
	})
	require.NoError(t, err)
	return &fixture{
		client:    client,
		products:  productRepo,
		movements: movements,
		ledger:    ledger,
		catalogue: catalogue,
		service:   svc,
		outbox:    outboxRepo,
	}
}

func (f *fixture) seedProduct(t *testing.T, sku, stock string) *models.Product {
	t.Helper()
	product, err := f.catalogue.CreateProduct(context.Background(), "seed", products.CreateProductInput{
		SKU:          sku,
		Name:         "product " + sku,
		CostPrice:    dec("6"),
		SellingPrice: dec("10"),
		InitialStock: dec(stock),
	})
	require.NoError(t, err)
	return product
}

func (f *fixture) stockOf(t *testing.T, product *models.Product) decimal.Decimal {
	t.Helper()
	got, err := f.products.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	return got.Stock
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}
