package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tillbook-backend/internal/repo"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

const receiptDayLayout = "20060102"

type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// NextReceiptNo bumps the counter row of day (upserting it on the first sale
// of the day) and formats the result as R<yyyymmdd>-<seq>. The upsert holds
// the counter row until the surrounding transaction ends, so two sales can
// never draw the same number.
func (r *Repository) NextReceiptNo(ctx context.Context, day time.Time) (string, error) {
	key := day.Format(receiptDayLayout)
	db := r.base.DB(ctx)

	counter := models.ReceiptCounter{Day: key, LastSeq: 1}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}},
		DoUpdates: clause.Assignments(map[string]any{
			"last_seq": gorm.Expr("receipt_counters.last_seq + 1"),
		}),
	}).Create(&counter).Error
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "bump receipt counter")
	}

	if err := db.First(&counter, "day = ?", key).Error; err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read receipt counter")
	}
	return fmt.Sprintf("R%s-%04d", key, counter.LastSeq), nil
}

// Create inserts the sale together with its line items.
func (r *Repository) Create(ctx context.Context, sale *models.Sale) error {
	if err := r.base.DB(ctx).Create(sale).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}
	return nil
}

// FindByID loads the sale with its lines in receipt order and its payments in
// the order they were taken.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	err := r.base.DB(ctx).
		Preload("LineItems", func(db *gorm.DB) *gorm.DB { return db.Order("line_no ASC") }).
		Preload("Payments", func(db *gorm.DB) *gorm.DB { return db.Order("paid_at ASC").Order("created_at ASC") }).
		First(&sale, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("sale", id.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return &sale, nil
}

// ListByDay returns the sales whose receipt was issued on day, newest first.
func (r *Repository) ListByDay(ctx context.Context, day time.Time) ([]models.Sale, error) {
	var rows []models.Sale
	err := r.base.DB(ctx).
		Where("receipt_no LIKE ?", "R"+day.Format(receiptDayLayout)+"-%").
		Order("receipt_no DESC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	return rows, nil
}

// MarkVoided flags the sale reversed when it still carries the version it was
// read with.
func (r *Repository) MarkVoided(ctx context.Context, sale *models.Sale, actorID, reason string, at time.Time) error {
	res := r.base.DB(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND version = ? AND voided_at IS NULL", sale.ID, sale.Version).
		Updates(map[string]any{
			"voided_at":   at,
			"voided_by":   actorID,
			"void_reason": reason,
			"version":     gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "void sale")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ConcurrentModification("sale", sale.ID.String())
	}
	sale.VoidedAt = &at
	sale.VoidedBy = &actorID
	sale.VoidReason = &reason
	sale.Version++
	return nil
}
