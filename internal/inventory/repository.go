package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
)

// Repository persists the append-only movement log. It has no update or
// delete path.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.ProductMovementLog) error
	ListByProductID(ctx context.Context, productID uuid.UUID) ([]models.ProductMovementLog, error)
	ListByCauseRef(ctx context.Context, causeRef string) ([]models.ProductMovementLog, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a movement log repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.ProductMovementLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) ListByProductID(ctx context.Context, productID uuid.UUID) ([]models.ProductMovementLog, error) {
	var entries []models.ProductMovementLog
	if err := r.db.WithContext(ctx).
		Where("product_id = ?", productID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByCauseRef(ctx context.Context, causeRef string) ([]models.ProductMovementLog, error) {
	var entries []models.ProductMovementLog
	if err := r.db.WithContext(ctx).
		Where("cause_ref = ?", causeRef).
		Order("created_at ASC").
		Order("product_id ASC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
