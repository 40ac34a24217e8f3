package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	"github.com/angelmondragon/tillbook-backend/pkg/metrics"
)

type pagedProducts struct {
	ids   []uuid.UUID
	calls int
}

func (p *pagedProducts) ListIDs(_ context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	p.calls++
	start := 0
	if after != uuid.Nil {
		for i, id := range p.ids {
			if id == after {
				start = i + 1
			}
		}
	}
	end := start + limit
	if end > len(p.ids) {
		end = len(p.ids)
	}
	return p.ids[start:end], nil
}

type fakeReconciler struct {
	drifted map[uuid.UUID]bool
	failing map[uuid.UUID]bool
	seen    []uuid.UUID
}

func (f *fakeReconciler) Reconcile(_ context.Context, id uuid.UUID) (*inventory.Reconciliation, error) {
	f.seen = append(f.seen, id)
	if f.failing[id] {
		return nil, errors.New("db down")
	}
	rec := &inventory.Reconciliation{ProductID: id, Stock: decimal.NewFromInt(5), LedgerTotal: decimal.NewFromInt(5), Balanced: true}
	if f.drifted[id] {
		rec.LedgerTotal = decimal.NewFromInt(4)
		rec.Balanced = false
	}
	return rec, nil
}

func TestStockReconcileJobPagesAndCountsDrift(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	products := &pagedProducts{ids: ids}
	reconciler := &fakeReconciler{drifted: map[uuid.UUID]bool{ids[1]: true, ids[4]: true}}
	reg := prometheus.NewRegistry()

	job, err := NewStockReconcileJob(StockReconcileJobParams{
		Logger:    testLogger(),
		Products:  products,
		Inventory: reconciler,
		Metrics:   metrics.NewJobMetrics(reg),
		BatchSize: 2,
	})
	require.NoError(t, err)
	require.NoError(t, job.Run(context.Background()))

	assert.Equal(t, ids, reconciler.seen)
	assert.Equal(t, 3, products.calls)
	assert.Equal(t, 2.0, gaugeValue(t, reg, "tillbook_stock_drift_products", ""))
}

func TestStockReconcileJobContinuesPastFailures(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	reconciler := &fakeReconciler{failing: map[uuid.UUID]bool{ids[0]: true}}
	job, err := NewStockReconcileJob(StockReconcileJobParams{
		Logger:    testLogger(),
		Products:  &pagedProducts{ids: ids},
		Inventory: reconciler,
	})
	require.NoError(t, err)

	err = job.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), ids[0].String())
	assert.Len(t, reconciler.seen, 2)
}

type fakeOpenReceivables struct {
	sales []models.Sale
	err   error
}

func (f *fakeOpenReceivables) ListOpen(context.Context) ([]models.Sale, error) {
	return f.sales, f.err
}

func TestReceivablesJobBucketsByAging(t *testing.T) {
	now := time.Date(2026, 6, 15, 10, 0, 0, 0, time.UTC)
	day := func(offset int) *time.Time {
		d := time.Date(2026, 6, 15+offset, 0, 0, 0, 0, time.UTC)
		return &d
	}
	open := &fakeOpenReceivables{sales: []models.Sale{
		{OutstandingAmount: decimal.RequireFromString("100"), DueDate: day(-1)},
		{OutstandingAmount: decimal.RequireFromString("40.50"), DueDate: day(0)},
		{OutstandingAmount: decimal.RequireFromString("9.50"), DueDate: day(3)},
		{OutstandingAmount: decimal.RequireFromString("25"), DueDate: day(10)},
		{OutstandingAmount: decimal.RequireFromString("5"), DueDate: nil},
	}}
	reg := prometheus.NewRegistry()
	jobIface, err := NewReceivablesJob(ReceivablesJobParams{
		Logger:  testLogger(),
		Credit:  open,
		Policy:  credit.Policy{DueSoonDays: 3, Location: time.UTC, CurrencyScale: 2},
		Metrics: metrics.NewJobMetrics(reg),
		Clock:   func() time.Time { return now },
	})
	require.NoError(t, err)
	job := jobIface.(*receivablesJob)

	totals := job.snapshot(open.sales)
	assert.Equal(t, "100", totals[enums.AgingStatusOverdue].String())
	assert.Equal(t, "50", totals[enums.AgingStatusDueSoon].String())
	assert.Equal(t, "30", totals[enums.AgingStatusPending].String())

	require.NoError(t, job.Run(context.Background()))
	assert.Equal(t, 100.0, gaugeValue(t, reg, "tillbook_receivables_outstanding", "overdue"))
	assert.Equal(t, 50.0, gaugeValue(t, reg, "tillbook_receivables_outstanding", "due_soon"))
}

func TestReceivablesJobPropagatesListError(t *testing.T) {
	job, err := NewReceivablesJob(ReceivablesJobParams{
		Logger: testLogger(),
		Credit: &fakeOpenReceivables{err: errors.New("timeout")},
	})
	require.NoError(t, err)
	assert.Error(t, job.Run(context.Background()))
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name, aging string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, m := range family.GetMetric() {
			if aging == "" {
				return m.GetGauge().GetValue()
			}
			for _, label := range m.GetLabel() {
				if label.GetName() == "aging" && label.GetValue() == aging {
					return m.GetGauge().GetValue()
				}
			}
		}
	}
	t.Fatalf("gauge %s{%s} not found", name, aging)
	return 0
}
