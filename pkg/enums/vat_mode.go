package enums

import "fmt"

// VATMode controls whether tax is absent, added on top of, or embedded in line prices.
type VATMode string

const (
	VATModeNone     VATMode = "none"
	VATModeAdd      VATMode = "add"
	VATModeIncluded VATMode = "included"
)

var validVATModes = []VATMode{
	VATModeNone,
	VATModeAdd,
	VATModeIncluded,
}

// String implements fmt.Stringer.
func (v VATMode) String() string {
	return string(v)
}

// IsValid reports whether the value is a known VATMode.
func (v VATMode) IsValid() bool {
	for _, candidate := range validVATModes {
		if candidate == v {
			return true
		}
	}
	return false
}

// ParseVATMode converts raw input into a VATMode.
func ParseVATMode(value string) (VATMode, error) {
	for _, candidate := range validVATModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid vat mode %q", value)
}
