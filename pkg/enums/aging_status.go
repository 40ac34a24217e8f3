package enums

import "fmt"

// AgingStatus classifies an open invoice by its due date at read time. Never stored.
type AgingStatus string

const (
	AgingStatusPending AgingStatus = "pending"
	AgingStatusDueSoon AgingStatus = "due_soon"
	AgingStatusOverdue AgingStatus = "overdue"
)

var validAgingStatuss = []AgingStatus{
	AgingStatusPending,
	AgingStatusDueSoon,
	AgingStatusOverdue,
}

// String implements fmt.Stringer.
func (a AgingStatus) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AgingStatus.
func (a AgingStatus) IsValid() bool {
	for _, candidate := range validAgingStatuss {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAgingStatus converts raw input into a AgingStatus.
func ParseAgingStatus(value string) (AgingStatus, error) {
	for _, candidate := range validAgingStatuss {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aging status %q", value)
}
