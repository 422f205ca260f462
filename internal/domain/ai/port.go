package ai

import "context"

// Classifier sends raw file bytes plus a fixed instruction to a remote model
// and returns the model's text verbatim.
type Classifier interface {
	Classify(ctx context.Context, data []byte, mediaType, instructions string) (string, error)
}

// Unavailable is the classifier used when the real provider could not be
// configured at startup. Every call fails with Cause.
type Unavailable struct {
	Provider string
	Cause    error
}

func (u Unavailable) Classify(context.Context, []byte, string, string) (string, error) {
	if u.Cause == nil {
		return "", ErrMissingCredential
	}
	return "", u.Cause
}
