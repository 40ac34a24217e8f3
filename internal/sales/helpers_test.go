package sales

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/internal/customers"
	"github.com/angelmondragon/tillbook-backend/internal/expenses"
	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	"github.com/angelmondragon/tillbook-backend/internal/products"
	"github.com/angelmondragon/tillbook-backend/pkg/db"
	"github.com/angelmondragon/tillbook-backend/pkg/db/dbtest"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
)

var testDay = time.Date(2026, 6, 15, 9, 0, 0, 0, time.UTC)

type stepClock struct {
	mu  sync.Mutex
	now time.Time
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
	customers *customers.Repository
	movements inventory.Repository
	expenses  *expenses.Repository
	outbox    *outbox.Repository
	catalogue products.Service
	stock     inventory.Service
	credit    credit.Service
	service   Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureIn(t, time.UTC)
}

func newFixtureIn(t *testing.T, loc *time.Location) *fixture {
	t.Helper()
	client := dbtest.Open(t)
	clock := &stepClock{now: testDay}

	productRepo := products.NewRepository(client.DB())
	customerRepo := customers.NewRepository(client.DB())
	creditRepo := credit.NewRepository(client.DB())
	expenseRepo := expenses.NewRepository(client.DB())
	movements := inventory.NewRepository(client.DB())
	outboxRepo := outbox.NewRepository(client.DB())
	events := outbox.NewService(outboxRepo, nil)
	locker := locks.NewLocal(5 * time.Second)
	policy := credit.Policy{DueSoonDays: 3, Location: loc, CurrencyScale: 2}

	ledger, err := inventory.NewLedger(productRepo, movements, clock.Now)
	require.NoError(t, err)
	catalogue, err := products.NewService(productRepo, client, ledger, 2)
	require.NoError(t, err)
	stock, err := inventory.NewService(inventory.ServiceParams{
		Ledger:    ledger,
		Products:  productRepo,
		Movements: movements,
		DB:        client,
		Locker:    locker,
		Events:    events,
	})
	require.NoError(t, err)
	creditSvc, err := credit.NewService(credit.ServiceParams{
		Repository: creditRepo,
		Customers:  customerRepo,
		DB:         client,
		Locker:     locker,
		Events:     events,
		Policy:     policy,
		Clock:      clock.Now,
	})
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repository:        NewRepository(client.DB()),
		Products:          productRepo,
		Customers:         customerRepo,
		Credit:            creditRepo,
		Expenses:          expenseRepo,
		Ledger:            ledger,
		DB:                client,
		Locker:            locker,
		Events:            events,
		Policy:            policy,
		DefaultCreditDays: 30,
		Clock:             clock.Now,
	})
	require.NoError(t, err)

	return &fixture{
		client:    client,
		products:  productRepo,
		customers: customerRepo,
		movements: movements,
		expenses:  expenseRepo,
		outbox:    outboxRepo,
		catalogue: catalogue,
		stock:     stock,
		credit:    creditSvc,
		service:   svc,
	}
}

func (f *fixture) seedProduct(t *testing.T, sku, price, cost, stock string, tiers ...products.TierInput) *models.Product {
	t.Helper()
	product, err := f.catalogue.CreateProduct(context.Background(), "seed", products.CreateProductInput{
		SKU:          sku,
		Name:         "product " + sku,
		CostPrice:    dec(cost),
		SellingPrice: dec(price),
		InitialStock: dec(stock),
		Tiers:        tiers,
	})
	require.NoError(t, err)
	return product
}

func (f *fixture) seedCustomer(t *testing.T, creditDays *int) *models.Customer {
	t.Helper()
	customer := &models.Customer{Name: "Somchai Store", CreditDays: creditDays}
	require.NoError(t, f.customers.Create(context.Background(), customer))
	return customer
}

func (f *fixture) stockOf(t *testing.T, product *models.Product) decimal.Decimal {
	t.Helper()
	got, err := f.products.FindByID(context.Background(), product.ID)
	require.NoError(t, err)
	return got.Stock
}

func (f *fixture) debtOf(t *testing.T, customer *models.Customer) decimal.Decimal {
	t.Helper()
	got, err := f.customers.FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	return got.TotalDebtAmount
}

func (f *fixture) countRows(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.client.DB().Model(model).Count(&n).Error)
	return n
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func decPtr(v string) *decimal.Decimal {
	d := dec(v)
	return &d
}

func intPtr(v int) *int {
	return &v
}
