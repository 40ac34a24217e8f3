package enums

import "fmt"

// MovementType maps to the movement_type column of product_movement_logs.
type MovementType string

const (
	MovementTypeInitialStock     MovementType = "initial_stock"
	MovementTypeSale             MovementType = "sale"
	MovementTypePurchaseReceipt  MovementType = "purchase_receipt"
	MovementTypeManualAdjustment MovementType = "manual_adjustment"
	MovementTypeReversal         MovementType = "reversal"
)

var validMovementTypes = []MovementType{
	MovementTypeInitialStock,
	MovementTypeSale,
	MovementTypePurchaseReceipt,
	MovementTypeManualAdjustment,
	MovementTypeReversal,
}

// String implements fmt.Stringer.
func (m MovementType) String() string {
	return string(m)
}

// IsValid reports whether the value is a known MovementType.
func (m MovementType) IsValid() bool {
	for _, candidate := range validMovementTypes {
		if candidate == m {
			return true
		}
	}
	return false
}

// ParseMovementType converts raw input into a MovementType.
func ParseMovementType(value string) (MovementType, error) {
	for _, candidate := range validMovementTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid movement type %q", value)
}
