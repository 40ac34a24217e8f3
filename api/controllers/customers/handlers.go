// Package customers manages credit customers and their receivables.
package customers

import (
	"net/http"

	"github.com/angelmondragon/tillbook-backend/api/controllers/dto"
	"github.com/angelmondragon/tillbook-backend/api/responses"
	"github.com/angelmondragon/tillbook-backend/api/validators"
	"github.com/angelmondragon/tillbook-backend/internal/credit"
	internalcustomers "github.com/angelmondragon/tillbook-backend/internal/customers"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
)

type createRequest struct {
	Name       string  `json:"name" validate:"required,max=255"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Email      *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	CreditDays *int    `json:"credit_days,omitempty" validate:"omitempty,min=0,max=3650"`
}

func Create(svc internalcustomers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customers service unavailable"))
			return
		}

		var payload createRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.CreateCustomer(r.Context(), internalcustomers.CreateCustomerInput{
			Name:       validators.SanitizeString(payload.Name, 255),
			Phone:      payload.Phone,
			Email:      payload.Email,
			CreditDays: payload.CreditDays,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, dto.FromCustomer(customer))
	}
}

func Get(svc internalcustomers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "customers service unavailable"))
			return
		}
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		customer, err := svc.GetCustomer(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromCustomer(customer))
	}
}

// CreditSummary reports the customer's receivable position, aged against
// the current clock.
func CreditSummary(svc credit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.GetCreditSummary(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromCreditSummary(summary))
	}
}

func OpenInvoices(svc credit.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "credit service unavailable"))
			return
		}
		customerID, err := validators.ParseUUIDParam(r, "customerId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		invoices, err := svc.ListOpenInvoices(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dto.FromOpenInvoices(invoices))
	}
}
