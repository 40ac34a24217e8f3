package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tillbook-backend/internal/repo"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// Repository is the product store. Stock is only changed through WriteStock.
type Repository struct {
	base repo.Base
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

// Create inserts the product together with its price tiers.
func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	return r.base.DB(ctx).Create(product).Error
}

// FindByID loads the product with its tiers ordered by minimum quantity.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.base.DB(ctx).
		Preload("PriceTiers", orderTiers).
		First(&product, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("product", id.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return &product, nil
}

// ListIDs pages through product ids in id order, starting after the given id.
func (r *Repository) ListIDs(ctx context.Context, after uuid.UUID, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.base.DB(ctx).
		Model(&models.Product{}).
		Where("id > ?", after).
		Order("id ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list product ids")
	}
	return ids, nil
}

// FindByIDs loads every requested product keyed by id. Missing ids fail with
// NOT_FOUND naming the first one absent.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	var rows []models.Product
	if len(ids) > 0 {
		err := r.base.DB(ctx).
			Preload("PriceTiers", orderTiers).
			Where("id IN ?", ids).
			Find(&rows).Error
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load products")
		}
	}
	byID := make(map[uuid.UUID]*models.Product, len(rows))
	for i := range rows {
		byID[rows[i].ID] = &rows[i]
	}
	for _, id := range ids {
		if _, ok := byID[id]; !ok {
			return nil, pkgerrors.NotFound("product", id.String())
		}
	}
	return byID, nil
}

// LockByIDs reads the products with row locks in ascending id order.
func (r *Repository) LockByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	if len(ids) == 0 {
		return rows, nil
	}
	err := r.base.DB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock products")
	}
	return rows, nil
}

// WriteStock sets the stock when the row still carries expectedVersion and
// bumps the version. A lost race reports CONCURRENT_MODIFICATION.
func (r *Repository) WriteStock(ctx context.Context, id uuid.UUID, expectedVersion int64, stock decimal.Decimal) error {
	res := r.base.DB(ctx).
		Model(&models.Product{}).
		Where("id = ? AND version = ?", id, expectedVersion).
		Updates(map[string]any{
			"stock":   stock,
			"version": gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "write stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ConcurrentModification("product", id.String())
	}
	return nil
}

func orderTiers(db *gorm.DB) *gorm.DB {
	return db.Order("min_quantity ASC")
}
