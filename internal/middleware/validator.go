package middleware

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

var (
	tenantPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)
	runIDPattern  = regexp.MustCompile(`^[a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12}$`)
)

// ValidateTenantID validates tenant ID format
func ValidateTenantID(tenant string) error {
	if tenant == "" {
		return fmt.Errorf("tenant ID cannot be empty")
	}
	if !tenantPattern.MatchString(tenant) {
		return fmt.Errorf("invalid tenant ID format (alphanumeric, dash, underscore only, max 64 chars)")
	}
	return nil
}

// ValidateRunID accepts the UUIDs generated for runs.
func ValidateRunID(id string) error {
	if id == "" {
		return fmt.Errorf("run ID cannot be empty")
	}
	if !runIDPattern.MatchString(id) {
		return fmt.Errorf("invalid run ID format")
	}
	return nil
}

// ValidateUpload checks an uploaded workbook's name and size.
func ValidateUpload(filename string, size, maxBytes int64) error {
	name := SanitizeString(filepath.Base(filename))
	if name == "" || name == "." {
		return fmt.Errorf("file name cannot be empty")
	}
	if !strings.EqualFold(filepath.Ext(name), ".xlsx") {
		return fmt.Errorf("only .xlsx workbooks are accepted")
	}
	if size <= 0 {
		return fmt.Errorf("file is empty")
	}
	if maxBytes > 0 && size > maxBytes {
		return fmt.Errorf("file exceeds %d bytes", maxBytes)
	}
	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	input = strings.ReplaceAll(input, "\x00", "")

	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}

// ValidateLimit validates pagination limit
func ValidateLimit(limit int) int {
	if limit <= 0 {
		return 20 // default
	}
	if limit > 100 {
		return 100 // max limit
	}
	return limit
}

// ValidatePage clamps the page number to 1 or more.
func ValidatePage(page int) int {
	if page <= 0 {
		return 1
	}
	return page
}
