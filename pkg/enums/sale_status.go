package enums

import "fmt"

// SaleStatus is the settlement state of a sale, derived from paid vs grand total.
type SaleStatus string

const (
	SaleStatusUnpaid        SaleStatus = "unpaid"
	SaleStatusPartiallyPaid SaleStatus = "partially_paid"
	SaleStatusPaid          SaleStatus = "paid"
)

var validSaleStatuss = []SaleStatus{
	SaleStatusUnpaid,
	SaleStatusPartiallyPaid,
	SaleStatusPaid,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuss {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}

// IsOpen reports whether the sale still carries an outstanding balance.
func (s SaleStatus) IsOpen() bool {
	return s == SaleStatusUnpaid || s == SaleStatusPartiallyPaid
}
