package expenses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/tillbook-backend/internal/repo"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
)

// Repository records auxiliary expense postings.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, expense *models.Expense) error {
	return r.base.DB(ctx).Create(expense).Error
}

func (r *Repository) ListBySaleID(ctx context.Context, saleID uuid.UUID) ([]models.Expense, error) {
	var rows []models.Expense
	err := r.base.DB(ctx).
		Where("sale_id = ?", saleID).
		Order("incurred_at ASC").
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}
