// Package env reads the few process settings needed before the typed config
// is loaded.
package env

import (
	"os"
	"strings"
)

// Get returns the trimmed value of the environment variable or fallback when
// it is unset or blank.
func Get(key, fallback string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	return fallback
}

// Port resolves the listen port. The platform-provided PORT wins over the
// configured port.
func Port(configured string) string {
	return Get("PORT", configured)
}
