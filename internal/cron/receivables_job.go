package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
	"github.com/angelmondragon/tillbook-backend/pkg/metrics"
)

type ReceivablesJobParams struct {
	Logger  *logger.Logger
	Credit  openReceivables
	Policy  credit.Policy
	Metrics *metrics.JobMetrics
	Clock   func() time.Time
}

type openReceivables interface {
	ListOpen(ctx context.Context) ([]models.Sale, error)
}

// NewReceivablesJob snapshots the outstanding credit balance per aging
// bucket. Aging is never stored; the snapshot only feeds logs and gauges.
func NewReceivablesJob(params ReceivablesJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Credit == nil {
		return nil, fmt.Errorf("credit repository required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &receivablesJob{
		logg:    params.Logger,
		credit:  params.Credit,
		policy:  params.Policy,
		metrics: params.Metrics,
		now:     clock,
	}, nil
}

type receivablesJob struct {
	logg    *logger.Logger
	credit  openReceivables
	policy  credit.Policy
	metrics *metrics.JobMetrics
	now     func() time.Time
}

func (j *receivablesJob) Name() string { return "receivables-aging" }

func (j *receivablesJob) Run(ctx context.Context) error {
	open, err := j.credit.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("list open receivables: %w", err)
	}
	totals := j.snapshot(open)

	fields := map[string]any{"open_invoices": len(open)}
	for _, aging := range []enums.AgingStatus{enums.AgingStatusPending, enums.AgingStatusDueSoon, enums.AgingStatusOverdue} {
		amount := totals[aging]
		j.metrics.SetReceivables(string(aging), amount.InexactFloat64())
		fields[string(aging)] = amount.String()
	}
	j.logg.Info(j.logg.WithFields(ctx, fields), "receivables aging snapshot")
	return nil
}

func (j *receivablesJob) snapshot(open []models.Sale) map[enums.AgingStatus]decimal.Decimal {
	now := j.now()
	totals := map[enums.AgingStatus]decimal.Decimal{
		enums.AgingStatusPending: decimal.Zero,
		enums.AgingStatusDueSoon: decimal.Zero,
		enums.AgingStatusOverdue: decimal.Zero,
	}
	for _, sale := range open {
		aging := credit.ClassifyAging(sale.DueDate, now, j.policy.Location, j.policy.DueSoonDays)
		totals[aging] = totals[aging].Add(sale.OutstandingAmount)
	}
	return totals
}
