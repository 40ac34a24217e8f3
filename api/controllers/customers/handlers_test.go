package customers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/tillbook-backend/internal/credit"
	internalcustomers "github.com/angelmondragon/tillbook-backend/internal/customers"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

type stubCustomers struct {
	created internalcustomers.CreateCustomerInput
	get     func(context.Context, uuid.UUID) (*models.Customer, error)
}

func (s *stubCustomers) CreateCustomer(_ context.Context, input internalcustomers.CreateCustomerInput) (*models.Customer, error) {
	s.created = input
	return &models.Customer{ID: uuid.New(), Name: input.Name, CreditDays: input.CreditDays}, nil
}

func (s *stubCustomers) GetCustomer(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	return s.get(ctx, id)
}

type stubCredit struct {
	summary  *credit.CreditSummary
	invoices []credit.OpenInvoice
}

func (s *stubCredit) ApplyPayment(context.Context, string, credit.ApplyPaymentInput) (*credit.PaymentResult, error) {
	panic("not implemented")
}

func (s *stubCredit) VoidPayment(context.Context, string, credit.VoidPaymentInput) (*credit.PaymentResult, error) {
	panic("not implemented")
}

func (s *stubCredit) ListPayments(context.Context, uuid.UUID) ([]models.SalePayment, error) {
	panic("not implemented")
}

func (s *stubCredit) GetCreditSummary(context.Context, uuid.UUID) (*credit.CreditSummary, error) {
	return s.summary, nil
}

func (s *stubCredit) ListOpenInvoices(context.Context, uuid.UUID) ([]credit.OpenInvoice, error) {
	return s.invoices, nil
}

func withCustomerID(req *http.Request, id string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("customerId", id)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func TestCreateCustomer(t *testing.T) {
	svc := &stubCustomers{}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(`{"name":"  Somchai Store ","credit_days":45}`))
	resp := httptest.NewRecorder()
	Create(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	assert.Equal(t, "Somchai Store", svc.created.Name)
	require.NotNil(t, svc.created.CreditDays)
	assert.Equal(t, 45, *svc.created.CreditDays)
}

func TestCreateCustomerValidatesEmail(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/customers", strings.NewReader(`{"name":"A","email":"not-an-email"}`))
	resp := httptest.NewRecorder()
	Create(&stubCustomers{}, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestGetCustomerNotFound(t *testing.T) {
	id := uuid.New()
	svc := &stubCustomers{get: func(context.Context, uuid.UUID) (*models.Customer, error) {
		return nil, pkgerrors.NotFound("customer", id.String())
	}}
	req := withCustomerID(httptest.NewRequest(http.MethodGet, "/", nil), id.String())
	resp := httptest.NewRecorder()
	Get(svc, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestCreditSummary(t *testing.T) {
	id := uuid.New()
	overdue := enums.AgingStatusOverdue
	due := time.Date(2026, 6, 10, 0, 0, 0, 0, time.UTC)
	svc := &stubCredit{summary: &credit.CreditSummary{
		CustomerID:       id,
		TotalDebtAmount:  decimal.NewFromInt(300),
		OpenInvoiceCount: 2,
		TotalOutstanding: decimal.NewFromInt(300),
		OverdueAmount:    decimal.NewFromInt(120),
		EarliestDueDate:  &due,
		Aging:            &overdue,
		AsOf:             time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC),
	}}
	req := withCustomerID(httptest.NewRequest(http.MethodGet, "/", nil), id.String())
	resp := httptest.NewRecorder()
	CreditSummary(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	assert.Equal(t, "300", envelope.Data["total_outstanding"])
	assert.Equal(t, "120", envelope.Data["overdue_amount"])
	assert.Equal(t, "overdue", envelope.Data["aging"])
	assert.EqualValues(t, 2, envelope.Data["open_invoice_count"])
}

func TestOpenInvoices(t *testing.T) {
	id := uuid.New()
	days := 2
	svc := &stubCredit{invoices: []credit.OpenInvoice{{
		Sale: models.Sale{
			ID:                uuid.New(),
			ReceiptNo:         "R20260615-0003",
			GrandTotal:        decimal.NewFromInt(80),
			OutstandingAmount: decimal.NewFromInt(80),
			Status:            enums.SaleStatusUnpaid,
		},
		Aging:        enums.AgingStatusDueSoon,
		DaysUntilDue: &days,
	}}}
	req := withCustomerID(httptest.NewRequest(http.MethodGet, "/", nil), id.String())
	resp := httptest.NewRecorder()
	OpenInvoices(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var envelope struct {
		Data []map[string]any `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	require.Len(t, envelope.Data, 1)
	assert.Equal(t, "R20260615-0003", envelope.Data[0]["receipt_no"])
	assert.Equal(t, "due_soon", envelope.Data[0]["aging"])
	assert.EqualValues(t, 2, envelope.Data[0]["days_until_due"])
}
