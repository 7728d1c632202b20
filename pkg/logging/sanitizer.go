// Package logging holds helpers for keeping server logs free of secrets and
// unbounded payloads.
package logging

import (
	"regexp"
)

const (
	// MaxQueryLogLength is the maximum length of a SQL statement to log.
	MaxQueryLogLength = 200
	// RedactedText is the replacement text for sensitive data.
	RedactedText = "[REDACTED]"
)

var (
	// Matches API keys that leak into error messages from LLM providers.
	apiKeyPattern = regexp.MustCompile(`(?i)(api[_-]?key|apikey|authorization|bearer)[=: ]+[A-Za-z0-9-_\.]{16,}`)

	// Matches absolute store paths that SQLite errors sometimes embed.
	filePathPattern = regexp.MustCompile(`(/[^\s:'"]+)+\.(db|sqlite|sqlite3)`)
)

// SanitizeQuery truncates a SQL statement for logging and strips anything
// that looks like a credential.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}
	sanitized := query
	if len(sanitized) > MaxQueryLogLength {
		sanitized = sanitized[:MaxQueryLogLength] + "..."
	}
	return apiKeyPattern.ReplaceAllString(sanitized, "${1}="+RedactedText)
}

// SanitizeError prepares an error message for logging: credentials and
// on-disk store paths are redacted.
func SanitizeError(err error) string {
	if err == nil {
		return ""
	}
	sanitized := apiKeyPattern.ReplaceAllString(err.Error(), "${1}="+RedactedText)
	return filePathPattern.ReplaceAllString(sanitized, RedactedText)
}

// TruncateString truncates a string to maxLen and adds ellipsis if needed.
func TruncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
