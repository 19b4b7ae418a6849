package persistence

import (
	"strings"
)

// ValidateSortOrder validates and normalizes the sort order to ASC or DESC.
// Returns "DESC" as the default if the input is invalid or empty.
func ValidateSortOrder(orderDir string) string {
	if strings.ToUpper(strings.TrimSpace(orderDir)) == "ASC" {
		return "ASC"
	}
	return "DESC"
}

// ValidateSortField validates the sort field against a whitelist of allowed fields.
// Returns the defaultField if the input is invalid, empty, or not in the whitelist.
func ValidateSortField(sortField string, allowedFields map[string]bool, defaultField string) string {
	trimmed := strings.TrimSpace(sortField)
	if allowedFields[trimmed] {
		return trimmed
	}
	return defaultField
}

// LicenseApplicationSortFields contains allowed sort fields for license applications
var LicenseApplicationSortFields = map[string]bool{
	"created_at":              true,
	"updated_at":              true,
	"submitted_at":            true,
	"status":                  true,
	"priority":                true,
	"license_type":            true,
	"title":                   true,
	"estimated_completion_at": true,
	"expiry_date":             true,
}
