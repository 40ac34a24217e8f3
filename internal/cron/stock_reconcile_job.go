package cron

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
	"github.com/angelmondragon/tillbook-backend/pkg/metrics"
)

const defaultReconcileBatch = 200

type StockReconcileJobParams struct {
	Logger    *logger.Logger
	Products  productLister
	Inventory stockReconciler
	Metrics   *metrics.JobMetrics
	BatchSize int
}

type productLister interface {
	ListIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error)
}

type stockReconciler interface {
	Reconcile(ctx context.Context, productID uuid.UUID) (*inventory.Reconciliation, error)
}

// NewStockReconcileJob checks every product's stored stock against the sum of
// its movement log and reports the products that drifted.
func NewStockReconcileJob(params StockReconcileJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Products == nil || params.Inventory == nil {
		return nil, fmt.Errorf("product lister and inventory service required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = defaultReconcileBatch
	}
	return &stockReconcileJob{
		logg:      params.Logger,
		products:  params.Products,
		inventory: params.Inventory,
		metrics:   params.Metrics,
		batch:     batch,
	}, nil
}

type stockReconcileJob struct {
	logg      *logger.Logger
	products  productLister
	inventory stockReconciler
	metrics   *metrics.JobMetrics
	batch     int
}

func (j *stockReconcileJob) Name() string { return "stock-reconcile" }

// Run walks the catalogue in id order. A product that fails to reconcile is
// recorded and the sweep moves on; the job fails only after the full pass.
func (j *stockReconcileJob) Run(ctx context.Context) error {
	var (
		after   uuid.UUID
		checked int
		drifted int
		errs    error
	)
	for {
		ids, err := j.products.ListIDs(ctx, after, j.batch)
		if err != nil {
			return fmt.Errorf("list products: %w", err)
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return err
			}
			rec, err := j.inventory.Reconcile(ctx, id)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("reconcile %s: %w", id, err))
				continue
			}
			checked++
			if rec.Balanced {
				continue
			}
			drifted++
			j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
				"product_id":   id.String(),
				"stock":        rec.Stock.String(),
				"ledger_total": rec.LedgerTotal.String(),
				"movements":    rec.Movements,
			}), "stock does not match movement log")
		}
		if len(ids) < j.batch {
			break
		}
		after = ids[len(ids)-1]
	}

	j.metrics.SetStockDrift(drifted)
	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"checked": checked,
		"drifted": drifted,
	}), "stock reconciliation complete")
	return errs
}
