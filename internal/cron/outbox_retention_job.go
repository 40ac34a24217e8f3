package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/pkg/logger"
)

const (
	outboxRetentionDays = 30
	outboxMinAttempts   = 10
	outboxPurgeBatch    = 500
	outboxMaxBatches    = 200
)

type OutboxRetentionJobParams struct {
	Logger      *logger.Logger
	DB          txRunner
	Repository  outboxPurger
	Retention   int
	MinAttempts int
	BatchSize   int
}

type outboxPurger interface {
	PurgeSettled(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

// NewOutboxRetentionJob trims settlement events that are past the retention
// window and no longer pending. MinAttempts should match the relay's max
// attempts so nothing still retryable is removed.
func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("logger required")
	case params.DB == nil:
		return nil, fmt.Errorf("db runner required")
	case params.Repository == nil:
		return nil, fmt.Errorf("outbox repository required")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		purger:      params.Repository,
		retention:   orDefault(params.Retention, outboxRetentionDays),
		minAttempts: orDefault(params.MinAttempts, outboxMinAttempts),
		batch:       orDefault(params.BatchSize, outboxPurgeBatch),
		now:         time.Now,
	}
	return job, nil
}

type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	purger      outboxPurger
	retention   int
	minAttempts int
	batch       int
	now         func() time.Time
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

// Run deletes in short transactions so the relay's row locks are never held
// up by one large delete. A cycle stops after outboxMaxBatches and the rest
// waits for the next tick.
func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.retention)
	var total int64
	batches := 0
	for ; batches < outboxMaxBatches; batches++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		var n int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			var err error
			n, err = j.purger.PurgeSettled(ctx, tx, cutoff, j.minAttempts, j.batch)
			return err
		})
		if err != nil {
			return fmt.Errorf("purge outbox before %s: %w", cutoff.Format(time.DateOnly), err)
		}
		total += n
		if n < int64(j.batch) {
			batches++
			break
		}
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff.Format(time.DateOnly),
		"rows_deleted": total,
		"batches":      batches,
	}), "outbox retention complete")
	return nil
}

func orDefault(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}
