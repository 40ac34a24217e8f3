// Package products covers the catalogue and its stock ledger.
package products

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/api/controllers/dto"
	"github.com/angelmondragon/tillbook-backend/api/middleware"
	"github.com/angelmondragon/tillbook-backend/api/responses"
	"github.com/angelmondragon/tillbook-backend/api/validators"
	"github.com/angelmondragon/tillbook-backend/internal/inventory"
	internalproducts "github.com/angelmondragon/tillbook-backend/internal/products"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
)

type createRequest struct {
	SKU                string           `json:"sku" validate:"required,max=64"`
	Name               string           `json:"name" validate:"required,max=255"`
	Unit               string           `json:"unit" validate:"omitempty,max=32"`
	CostPrice          decimal.Decimal  `json:"cost_price" validate:"dnonneg"`
	SellingPrice       decimal.Decimal  `json:"selling_price" validate:"dnonneg"`
	GrossProfitPercent *decimal.Decimal `json:"gross_profit_percent,omitempty"`
	InitialStock       decimal.Decimal  `json:"initial_stock" validate:"dnonneg"`
	IsVisible          *bool            `json:"is_visible,omitempty"`
	Tiers              []tierRequest    `json:"price_tiers" validate:"max=20,dive"`
}

type tierRequest struct {
	Name        string          `json:"name" validate:"required,max=64"`
	MinQuantity decimal.Decimal `json:"min_quantity" validate:"dpos"`
	Price       decimal.Decimal `json:"price" validate:"dnonneg"`
}

type adjustRequest struct {
	QuantityChange decimal.Decimal    `json:"quantity_change" validate:"dnonzero"`
	Type           enums.MovementType `json:"type" validate:"required,oneof=manual_adjustment purchase_receipt"`
	Reference      string             `json:"reference" validate:"required,max=64"`
	Note           *string            `json:"note,omitempty" validate:"omitempty,max=500"`
}

func Create(svc internalproducts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}
		actorID, err := middleware.RequireActorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := internalproducts.CreateProductInput{
			SKU:                validators.SanitizeString(payload.SKU, 64),
			Name:               validators.SanitizeString(payload.Name, 255),
			Unit:               validators.SanitizeString(payload.Unit, 32),
			CostPrice:          payload.CostPrice,
			SellingPrice:       payload.SellingPrice,
			GrossProfitPercent: payload.GrossProfitPercent,
			InitialStock:       payload.InitialStock,
			IsVisible:          payload.IsVisible,
			Tiers:              make([]internalproducts.TierInput, 0, len(payload.Tiers)),
		}
		for _, tier := range payload.Tiers {
			input.Tiers = append(input.Tiers, internalproducts.TierInput{
				Name:        tier.Name,
				MinQuantity: tier.MinQuantity,
				Price:       tier.Price,
			})
		}

		product, err := svc.CreateProduct(r.Context(), actorID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.FromProduct(product))
	}
}

func Get(svc internalproducts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "products service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := svc.GetProduct(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromProduct(product))
	}
}

// Movements returns the product's stock ledger, oldest first.
func Movements(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.GetMovementHistory(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromMovements(rows))
	}
}

// Adjust books a stock count correction or a goods receipt.
func Adjust(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		actorID, err := middleware.RequireActorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adjustRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		movement, err := svc.AdjustStock(r.Context(), actorID, inventory.AdjustStockInput{
			ProductID:      productID,
			QuantityChange: payload.QuantityChange,
			Type:           payload.Type,
			Reference:      validators.SanitizeString(payload.Reference, 64),
			Note:           payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.FromMovement(movement))
	}
}

func Reconcile(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}
		productID, err := validators.ParseUUIDParam(r, "productId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Reconcile(r.Context(), productID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
