package broker

import (
	"html"
	"regexp"
	"strings"
)

// Identifier grammar for topic and subscription ids.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9-._]+$`)

const maxIDLength = 128

// Pagination and batch bounds shared by list and consume operations.
const (
	MaxLimit     = 100
	MaxBatchSize = 100
)

// ValidateID checks the identifier grammar [A-Za-z0-9._-]{1,128}.
func ValidateID(field, id string) error {
	if id == "" || len(id) > maxIDLength || !idPattern.MatchString(id) {
		return invalid("%s must match [a-zA-Z0-9-._]{1,%d}", field, maxIDLength)
	}
	return nil
}

// ValidatePage checks list pagination bounds: offset >= 0, limit in [1,100].
func ValidatePage(offset, limit int) error {
	if offset < 0 {
		return invalid("offset must be >= 0")
	}
	if limit < 1 || limit > MaxLimit {
		return invalid("limit must be in [1,%d]", MaxLimit)
	}
	return nil
}

// ValidateBatchSize checks the consume batch bound [1,100].
func ValidateBatchSize(n int) error {
	if n < 1 || n > MaxBatchSize {
		return invalid("batch_size must be in [1,%d]", MaxBatchSize)
	}
	return nil
}

var controlChars = regexp.MustCompile("[\x00-\x08\x0B\x0C\x0E-\x1F\x7F]")

// sanitizeString strips control characters (keeping newlines and tabs) and
// HTML-escapes the rest, so filter content is safe to reflect back.
func sanitizeString(s string) string {
	s = controlChars.ReplaceAllString(s, "")
	return html.EscapeString(s)
}

// SanitizeFilter validates and sanitizes a subscription filter.
//
// The accepted shape is {"field": [primitive, ...]}: every value must be an
// array whose elements are strings, numbers, or booleans; null elements are
// rejected. String keys and elements are sanitized. A nil or empty filter is
// returned as-is and means accept-all.
func SanitizeFilter(filter map[string]any) (map[string]any, error) {
	if len(filter) == 0 {
		return filter, nil
	}

	sanitized := make(map[string]any, len(filter))
	for key, value := range filter {
		values, ok := value.([]any)
		if !ok {
			return nil, invalid("filter value for %q must be an array", key)
		}
		out := make([]any, 0, len(values))
		for _, item := range values {
			switch v := item.(type) {
			case string:
				out = append(out, sanitizeString(v))
			case float64, int, int64, bool:
				out = append(out, v)
			default:
				return nil, invalid("filter values for %q must be strings, numbers, or booleans", key)
			}
		}
		sanitized[sanitizeString(key)] = out
	}
	return sanitized, nil
}

// ValidateScopes checks that a space-separated scope string only contains
// known scopes, optionally narrowed to one resource id (resource:action:id).
func ValidateScopes(scopes string) error {
	validScopes := map[string]bool{
		"*":                     true,
		"topics:create":         true,
		"topics:read":           true,
		"topics:delete":         true,
		"topics:publish":        true,
		"subscriptions:create":  true,
		"subscriptions:read":    true,
		"subscriptions:delete":  true,
		"subscriptions:consume": true,
		"clients:create":        true,
		"clients:update":        true,
		"clients:read":          true,
		"clients:delete":        true,
	}
	if strings.TrimSpace(scopes) == "" {
		return invalid("scopes must not be empty")
	}
	for _, scope := range strings.Fields(scopes) {
		base := scope
		if parts := strings.Split(scope, ":"); len(parts) == 3 {
			base = parts[0] + ":" + parts[1]
		}
		if !validScopes[base] {
			return invalid("invalid scope %q", scope)
		}
	}
	return nil
}
