// Package payments records and voids instalments against credit sales.
package payments

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/api/controllers/dto"
	"github.com/angelmondragon/tillbook-backend/api/middleware"
	"github.com/angelmondragon/tillbook-backend/api/responses"
	"github.com/angelmondragon/tillbook-backend/api/validators"
	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
)

type applyRequest struct {
	Amount decimal.Decimal     `json:"amount" validate:"dpos"`
	Method enums.PaymentMethod `json:"method" validate:"required,oneof=cash card transfer"`
	Note   *string             `json:"note,omitempty" validate:"omitempty,max=500"`
}

type voidRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// Apply records a payment against an open invoice.
func Apply(svc credit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}
		actorID, err := middleware.RequireActorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saleID, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload applyRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.ApplyPayment(r.Context(), actorID, credit.ApplyPaymentInput{
			SaleID: saleID,
			Amount: payload.Amount,
			Method: payload.Method,
			Note:   payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.FromPaymentResult(result))
	}
}

func List(svc credit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}
		saleID, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		payments, err := svc.ListPayments(r.Context(), saleID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromPayments(payments))
	}
}

// Void flags a payment voided and puts its amount back on the invoice.
func Void(svc credit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}
		actorID, err := middleware.RequireActorID(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		saleID, err := validators.ParseUUIDParam(r, "saleId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		paymentID, err := validators.ParseUUIDParam(r, "paymentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload voidRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.VoidPayment(r.Context(), actorID, credit.VoidPaymentInput{
			SaleID:    saleID,
			PaymentID: paymentID,
			Reason:    validators.SanitizeString(payload.Reason, 500),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromPaymentResult(result))
	}
}
