package analysis

import (
	"context"
	"errors"
)

var (
	// ErrObjectNotFound is returned by an ObjectSource for unknown keys.
	ErrObjectNotFound = errors.New("object not found")
	// ErrTooLarge means the content is bigger than the configured limit.
	ErrTooLarge = errors.New("file exceeds maximum size")
)

// ObjectSource reads a single stored object into memory.
type ObjectSource interface {
	Fetch(ctx context.Context, key string, maxBytes int64) (UploadedFile, error)
}
