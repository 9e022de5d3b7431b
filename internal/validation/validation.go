// Package validation holds input checks shared by services and handlers.
package validation

import (
	"net/mail"
	"strings"

	"atelier/internal/models"
)

const (
	maxTenantNameLen = 120
	maxRoleNameLen   = 80
)

// NormalizeEmail lowercases and trims an address so lookups and uniqueness
// checks agree on one canonical form.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Email validates and normalizes an address. The normalized form is returned.
func Email(email string) (string, error) {
	normalized := NormalizeEmail(email)
	if normalized == "" {
		return "", models.NewMissingFieldError("email")
	}
	if _, err := mail.ParseAddress(normalized); err != nil {
		return "", models.NewValidationError("Invalid email address")
	}
	return normalized, nil
}

// TenantNames checks the locale-keyed display names of a tenant. At least one
// non-empty name is required.
func TenantNames(names models.LocaleNames) error {
	hasName := false
	for locale, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		if len(name) > maxTenantNameLen {
			return models.NewValidationError("Space name too long (max 120 characters)")
		}
		if locale == "" {
			return models.NewValidationError("Locale key must not be empty")
		}
		hasName = true
	}
	if !hasName {
		return models.NewMissingFieldError("name")
	}
	return nil
}

// Username checks an account handle: 3 to 30 word characters.
func Username(username string) error {
	if len(username) < 3 || len(username) > 30 {
		return models.NewValidationError("Username must be 3-30 characters")
	}
	for _, r := range username {
		if (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') && (r < '0' || r > '9') && r != '_' {
			return models.NewValidationError("Username may contain letters, digits, and underscores only")
		}
	}
	return nil
}

// Password enforces the minimum password length.
func Password(password string) error {
	if len(password) < 8 {
		return models.NewValidationError("Password must be at least 8 characters")
	}
	return nil
}

// RoleName checks a custom role label.
func RoleName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", models.NewMissingFieldError("name")
	}
	if len(name) > maxRoleNameLen {
		return "", models.NewValidationError("Role name too long (max 80 characters)")
	}
	return name, nil
}
