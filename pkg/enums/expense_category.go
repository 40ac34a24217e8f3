package enums

import "fmt"

// ExpenseCategory tags auto-posted expense rows.
type ExpenseCategory string

const (
	ExpenseCategorySelling ExpenseCategory = "selling_expense"
)

var validExpenseCategorys = []ExpenseCategory{
	ExpenseCategorySelling,
}

// IsValid reports whether the value is a known ExpenseCategory.
func (e ExpenseCategory) IsValid() bool {
	for _, candidate := range validExpenseCategorys {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseExpenseCategory converts raw input into a ExpenseCategory.
func ParseExpenseCategory(value string) (ExpenseCategory, error) {
	for _, candidate := range validExpenseCategorys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid expense category %q", value)
}
