package customers

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

// Repository is the customer store.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) Create(ctx context.Context, customer *models.Customer) error {
	if err := r.base.DB(ctx).Create(customer).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create customer")
	}
	return nil
}

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return r.find(r.base.DB(ctx), id)
}

// LockByID reads the customer with a row lock for the rest of the transaction.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return r.find(r.base.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *Repository) find(db *gorm.DB, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := db.First(&customer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("customer", id.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
	}
	return &customer, nil
}

// AdjustDebt adds delta to the customer's receivable, flooring the balance at
// zero. The write is conditional on the version read here.
func (r *Repository) AdjustDebt(ctx context.Context, id uuid.UUID, delta decimal.Decimal) (*models.Customer, error) {
	db := r.base.DB(ctx)
	customer, err := r.find(db.Clauses(clause.Locking{Strength: "UPDATE"}), id)
	if err != nil {
		return nil, err
	}
	next := decimal.Max(decimal.Zero, customer.TotalDebtAmount.Add(delta))

	res := db.Model(&models.Customer{}).
		Where("id = ? AND version = ?", id, customer.Version).
		Updates(map[string]any{
			"total_debt_amount": next,
			"version":           gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "adjust customer debt")
	}
	if res.RowsAffected == 0 {
		return nil, pkgerrors.ConcurrentModification("customer", id.String())
	}
	customer.TotalDebtAmount = next
	customer.Version++
	return customer, nil
}
