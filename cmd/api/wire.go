package main

import (
	"fmt"

	"github.com/angelmondragon/tillbook-backend/api/routes"
	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/internal/customers"
	"github.com/angelmondragon/tillbook-backend/internal/expenses"
	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	"github.com/angelmondragon/tillbook-backend/internal/products"
	"github.com/angelmondragon/tillbook-backend/internal/sales"
	"github.com/angelmondragon/tillbook-backend/pkg/config"
	"github.com/angelmondragon/tillbook-backend/pkg/db"
	"github.com/angelmondragon/tillbook-backend/pkg/locks"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
	"github.com/angelmondragon/tillbook-backend/pkg/metrics"
	"github.com/angelmondragon/tillbook-backend/pkg/outbox"
)

// wireServices builds the repositories and domain services on one database
// client and fills the service fields of deps.
func wireServices(deps *routes.Dependencies, cfg *config.Config, logg *logger.Logger, dbClient *db.Client, locker locks.Locker, m *metrics.SettlementMetrics) error {
	conn := dbClient.DB()
	productRepo := products.NewRepository(conn)
	customerRepo := customers.NewRepository(conn)
	creditRepo := credit.NewRepository(conn)
	movementRepo := inventory.NewRepository(conn)
	events := outbox.NewService(outbox.NewRepository(conn), logg)
	policy := credit.PolicyFromConfig(cfg.Settlement)

	ledger, err := inventory.NewLedger(productRepo, movementRepo, nil)
	if err != nil {
		return fmt.Errorf("ledger: %w", err)
	}

	deps.Products, err = products.NewService(productRepo, dbClient, ledger, cfg.Settlement.CurrencyScale)
	if err != nil {
		return fmt.Errorf("products service: %w", err)
	}
	deps.Customers, err = customers.NewService(customerRepo)
	if err != nil {
		return fmt.Errorf("customers service: %w", err)
	}
	deps.Inventory, err = inventory.NewService(inventory.ServiceParams{
		Ledger:    ledger,
		Products:  productRepo,
		Movements: movementRepo,
		DB:        dbClient,
		Locker:    locker,
		Events:    events,
		Metrics:   m,
		Logger:    logg,
	})
	if err != nil {
		return fmt.Errorf("inventory service: %w", err)
	}
	deps.Credit, err = credit.NewService(credit.ServiceParams{
		Repository: creditRepo,
		Customers:  customerRepo,
		DB:         dbClient,
		Locker:     locker,
		Events:     events,
		Policy:     policy,
		Metrics:    m,
		Logger:     logg,
	})
	if err != nil {
		return fmt.Errorf("credit service: %w", err)
	}
	deps.Sales, err = sales.NewService(sales.ServiceParams{
		Repository:        sales.NewRepository(conn),
		Products:          productRepo,
		Customers:         customerRepo,
		Credit:            creditRepo,
		Expenses:          expenses.NewRepository(conn),
		Ledger:            ledger,
		DB:                dbClient,
		Locker:            locker,
		Events:            events,
		Policy:            policy,
		DefaultCreditDays: cfg.Settlement.DefaultCreditDays,
		Metrics:           m,
		Logger:            logg,
	})
	if err != nil {
		return fmt.Errorf("sales service: %w", err)
	}
	return nil
}
