package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/tillbook-backend/internal/credit"
	"github.com/angelmondragon/tillbook-backend/pkg/db/models"
	"github.com/angelmondragon/tillbook-backend/pkg/enums"
)

type Product struct {
	ID           uuid.UUID       `json:"id"`
	SKU          string          `json:"sku"`
	Name         string          `json:"name"`
	Unit         string          `json:"unit"`
	CostPrice    decimal.Decimal `json:"cost_price"`
	SellingPrice decimal.Decimal `json:"selling_price"`
	Stock        decimal.Decimal `json:"stock"`
	IsActive     bool            `json:"is_active"`
	IsVisible    bool            `json:"is_visible"`
	Tiers        []PriceTier     `json:"price_tiers"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

type PriceTier struct {
	Name        string          `json:"name"`
	MinQuantity decimal.Decimal `json:"min_quantity"`
	Price       decimal.Decimal `json:"price"`
}

type Movement struct {
	ID             uuid.UUID          `json:"id"`
	ProductID      uuid.UUID          `json:"product_id"`
	MovementType   enums.MovementType `json:"movement_type"`
	QuantityChange decimal.Decimal    `json:"quantity_change"`
	StockBefore    decimal.Decimal    `json:"stock_before"`
	StockAfter     decimal.Decimal    `json:"stock_after"`
	CostPrice      decimal.Decimal    `json:"cost_price"`
	SellingPrice   decimal.Decimal    `json:"selling_price"`
	CauseRef       string             `json:"cause_ref"`
	ActorID        string             `json:"actor_id"`
	Note           *string            `json:"note,omitempty"`
	CreatedAt      time.Time          `json:"created_at"`
}

type Customer struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Phone           *string         `json:"phone,omitempty"`
	Email           *string         `json:"email,omitempty"`
	CreditDays      *int            `json:"credit_days,omitempty"`
	TotalDebtAmount decimal.Decimal `json:"total_debt_amount"`
	CreatedAt       time.Time       `json:"created_at"`
}

type CreditSummary struct {
	CustomerID       uuid.UUID          `json:"customer_id"`
	TotalDebtAmount  decimal.Decimal    `json:"total_debt_amount"`
	OpenInvoiceCount int                `json:"open_invoice_count"`
	TotalOutstanding decimal.Decimal    `json:"total_outstanding"`
	OverdueAmount    decimal.Decimal    `json:"overdue_amount"`
	DueSoonAmount    decimal.Decimal    `json:"due_soon_amount"`
	EarliestDueDate  *time.Time         `json:"earliest_due_date,omitempty"`
	Aging            *enums.AgingStatus `json:"aging,omitempty"`
	AsOf             time.Time          `json:"as_of"`
}

type OpenInvoice struct {
	SaleID            uuid.UUID         `json:"sale_id"`
	ReceiptNo         string            `json:"receipt_no"`
	GrandTotal        decimal.Decimal   `json:"grand_total"`
	PaidAmount        decimal.Decimal   `json:"paid_amount"`
	OutstandingAmount decimal.Decimal   `json:"outstanding_amount"`
	Status            enums.SaleStatus  `json:"status"`
	SoldAt            time.Time         `json:"sold_at"`
	DueDate           *time.Time        `json:"due_date,omitempty"`
	Aging             enums.AgingStatus `json:"aging"`
	DaysUntilDue      *int              `json:"days_until_due,omitempty"`
}

// PaymentResult is the sale state after a payment was applied or voided.
type PaymentResult struct {
	Sale    Sale    `json:"sale"`
	Payment Payment `json:"payment"`
}

func FromProduct(p *models.Product) Product {
	out := Product{
		ID:           p.ID,
		SKU:          p.SKU,
		Name:         p.Name,
		Unit:         p.Unit,
		CostPrice:    p.CostPrice,
		SellingPrice: p.SellingPrice,
		Stock:        p.Stock,
		IsActive:     p.IsActive,
		IsVisible:    p.IsVisible,
		Tiers:        make([]PriceTier, 0, len(p.PriceTiers)),
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
	}
	for _, t := range p.PriceTiers {
		out.Tiers = append(out.Tiers, PriceTier{Name: t.Name, MinQuantity: t.MinQuantity, Price: t.Price})
	}
	return out
}

func FromMovement(m *models.ProductMovementLog) Movement {
	return Movement{
		ID:             m.ID,
		ProductID:      m.ProductID,
		MovementType:   m.MovementType,
		QuantityChange: m.QuantityChange,
		StockBefore:    m.StockBefore,
		StockAfter:     m.StockAfter,
		CostPrice:      m.CostPrice,
		SellingPrice:   m.SellingPrice,
		CauseRef:       m.CauseRef,
		ActorID:        m.ActorID,
		Note:           m.Note,
		CreatedAt:      m.CreatedAt,
	}
}

func FromMovements(rows []models.ProductMovementLog) []Movement {
	out := make([]Movement, 0, len(rows))
	for i := range rows {
		out = append(out, FromMovement(&rows[i]))
	}
	return out
}

func FromCustomer(c *models.Customer) Customer {
	return Customer{
		ID:              c.ID,
		Name:            c.Name,
		Phone:           c.Phone,
		Email:           c.Email,
		CreditDays:      c.CreditDays,
		TotalDebtAmount: c.TotalDebtAmount,
		CreatedAt:       c.CreatedAt,
	}
}

func FromCreditSummary(s *credit.CreditSummary) CreditSummary {
	return CreditSummary{
		CustomerID:       s.CustomerID,
		TotalDebtAmount:  s.TotalDebtAmount,
		OpenInvoiceCount: s.OpenInvoiceCount,
		TotalOutstanding: s.TotalOutstanding,
		OverdueAmount:    s.OverdueAmount,
		DueSoonAmount:    s.DueSoonAmount,
		EarliestDueDate:  s.EarliestDueDate,
		Aging:            s.Aging,
		AsOf:             s.AsOf,
	}
}

func FromOpenInvoices(invoices []credit.OpenInvoice) []OpenInvoice {
	out := make([]OpenInvoice, 0, len(invoices))
	for _, inv := range invoices {
		out = append(out, OpenInvoice{
			SaleID:            inv.Sale.ID,
			ReceiptNo:         inv.Sale.ReceiptNo,
			GrandTotal:        inv.Sale.GrandTotal,
			PaidAmount:        inv.Sale.PaidAmount,
			OutstandingAmount: inv.Sale.OutstandingAmount,
			Status:            inv.Sale.Status,
			SoldAt:            inv.Sale.SoldAt,
			DueDate:           inv.Sale.DueDate,
			Aging:             inv.Aging,
			DaysUntilDue:      inv.DaysUntilDue,
		})
	}
	return out
}

func FromPaymentResult(r *credit.PaymentResult) PaymentResult {
	return PaymentResult{Sale: FromSale(r.Sale), Payment: FromPayment(r.Payment)}
}
