package ai

import "errors"

var (
	// ErrQuotaExceeded indicates the AI provider returned a quota/limit error (HTTP 429 or similar).
	ErrQuotaExceeded = errors.New("ai quota exceeded")

	// ErrMissingCredential means no API key was configured for the provider.
	ErrMissingCredential = errors.New("ai api key is not configured")

	// ErrUnauthorized means the provider rejected the configured credential.
	ErrUnauthorized = errors.New("ai credential rejected")

	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("ai returned an empty response")
)
