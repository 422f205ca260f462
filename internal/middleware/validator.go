package middleware

import (
	"fmt"
	"strings"
)

// Input validation and sanitization utilities

const maxObjectKeyLen = 1024

// ValidateObjectKey validates a storage object key (for security)
func ValidateObjectKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("key cannot be empty")
	}
	if len(key) > maxObjectKeyLen {
		return fmt.Errorf("key exceeds %d characters", maxObjectKeyLen)
	}

	// Block absolute keys and path traversal attempts
	if strings.HasPrefix(key, "/") {
		return fmt.Errorf("key must be relative to the bucket")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." {
			return fmt.Errorf("path traversal detected")
		}
	}
	if strings.HasSuffix(key, "/") {
		return fmt.Errorf("key must name an object, not a prefix")
	}

	// Block control characters
	for _, r := range key {
		if r < 32 || r == 127 {
			return fmt.Errorf("invalid characters in key")
		}
	}

	return nil
}

// SanitizeString removes dangerous characters from strings
func SanitizeString(input string) string {
	// Remove null bytes
	input = strings.ReplaceAll(input, "\x00", "")

	// Remove control characters
	var result strings.Builder
	for _, r := range input {
		if r >= 32 || r == '\t' {
			result.WriteRune(r)
		}
	}

	return strings.TrimSpace(result.String())
}
