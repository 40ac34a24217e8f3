package credit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/tillbook-backend/internal/repo"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

// Repository is the payment store plus the settlement columns of sales.
type Repository struct {
	base repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{base: repo.NewBase(db)}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{base: r.base.WithTx(tx)}
}

func (r *Repository) FindSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	return findSale(r.base.DB(ctx), id)
}

// LockSale reads the sale with a row lock held until the transaction ends.
func (r *Repository) LockSale(ctx context.Context, id uuid.UUID) (*models.Sale, error) {
	return findSale(r.base.DB(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func findSale(db *gorm.DB, id uuid.UUID) (*models.Sale, error) {
	var sale models.Sale
	if err := db.First(&sale, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("sale", id.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	return &sale, nil
}

// UpdateSettlement writes the triple when the sale still carries the version
// it was read with, then reflects the write on sale.
func (r *Repository) UpdateSettlement(ctx context.Context, sale *models.Sale, state State) error {
	res := r.base.DB(ctx).
		Model(&models.Sale{}).
		Where("id = ? AND version = ?", sale.ID, sale.Version).
		Updates(map[string]any{
			"paid_amount":        state.PaidAmount,
			"outstanding_amount": state.OutstandingAmount,
			"status":             state.Status,
			"version":            gorm.Expr("version + 1"),
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "update sale settlement")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.ConcurrentModification("sale", sale.ID.String())
	}
	sale.PaidAmount = state.PaidAmount
	sale.OutstandingAmount = state.OutstandingAmount
	sale.Status = state.Status
	sale.Version++
	return nil
}

func (r *Repository) AppendPayment(ctx context.Context, payment *models.SalePayment) error {
	if err := r.base.DB(ctx).Create(payment).Error; err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append payment")
	}
	return nil
}

func (r *Repository) FindPayment(ctx context.Context, saleID, paymentID uuid.UUID) (*models.SalePayment, error) {
	var payment models.SalePayment
	err := r.base.DB(ctx).First(&payment, "id = ? AND sale_id = ?", paymentID, saleID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.NotFound("payment", paymentID.String())
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	return &payment, nil
}

// MarkPaymentVoided sets the void columns, the only mutation a payment
// record allows. A payment already voided reports STATE_CONFLICT.
func (r *Repository) MarkPaymentVoided(ctx context.Context, payment *models.SalePayment, actorID, reason string, at time.Time) error {
	res := r.base.DB(ctx).
		Model(&models.SalePayment{}).
		Where("id = ? AND voided_at IS NULL", payment.ID).
		Updates(map[string]any{
			"voided_at":   at,
			"voided_by":   actorID,
			"void_reason": reason,
		})
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "void payment")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "payment already voided").
			WithDetails(map[string]any{"payment_id": payment.ID.String()})
	}
	payment.VoidedAt = &at
	payment.VoidedBy = &actorID
	payment.VoidReason = &reason
	return nil
}

// ListPayments returns every payment of the sale, voided ones included, in
// the order they were taken.
func (r *Repository) ListPayments(ctx context.Context, saleID uuid.UUID) ([]models.SalePayment, error) {
	var rows []models.SalePayment
	err := r.base.DB(ctx).
		Where("sale_id = ?", saleID).
		Order("paid_at ASC").
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	return rows, nil
}

// ListOpenByCustomer returns the customer's unpaid and partially paid sales,
// earliest due first.
func (r *Repository) ListOpenByCustomer(ctx context.Context, customerID uuid.UUID) ([]models.Sale, error) {
	var rows []models.Sale
	err := r.base.DB(ctx).
		Where("customer_id = ?", customerID).
		Where("status IN ?", []enums.SaleStatus{enums.SaleStatusUnpaid, enums.SaleStatusPartiallyPaid}).
		Where("voided_at IS NULL").
		Order("due_date ASC").
		Order("sold_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open invoices")
	}
	return rows, nil
}

// ListOpen returns every open credit invoice across customers.
func (r *Repository) ListOpen(ctx context.Context) ([]models.Sale, error) {
	var rows []models.Sale
	err := r.base.DB(ctx).
		Where("customer_id IS NOT NULL").
		Where("status IN ?", []enums.SaleStatus{enums.SaleStatusUnpaid, enums.SaleStatusPartiallyPaid}).
		Where("voided_at IS NULL").
		Find(&rows).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list open receivables")
	}
	return rows, nil
}
