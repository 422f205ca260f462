package analysis

import (
	"context"
	"errors"

	"github.com/bryanwahyu/fileguard/internal/domain/ai"
	domain "github.com/bryanwahyu/fileguard/internal/domain/analysis"
)

// Service implements the analysis use-cases.
// It keeps no per-request state and is safe for concurrent use.
type Service struct {
	Classifier   ai.Classifier
	Instructions string

	// Objects is nil when object storage is disabled.
	Objects  domain.ObjectSource
	MaxBytes int64
}

func NewService(classifier ai.Classifier, instructions string) *Service {
	return &Service{Classifier: classifier, Instructions: instructions}
}

// Analyze forwards the upload to the classifier once and returns its text untouched.
func (s *Service) Analyze(ctx context.Context, f domain.UploadedFile) (domain.Result, error) {
	if f.Filename == "" {
		return domain.Result{}, domain.BadRequestf("No selected file")
	}

	text, err := s.Classifier.Classify(ctx, f.Content, f.EffectiveMediaType(), s.Instructions)
	if err != nil {
		return domain.Result{}, domain.Failed(err)
	}
	return domain.Result{Analysis: text}, nil
}

// AnalyzeObject fetches key from the object source and analyzes it like an upload.
func (s *Service) AnalyzeObject(ctx context.Context, key string) (domain.Result, error) {
	if s.Objects == nil {
		return domain.Result{}, domain.BadRequestf("object storage is not configured")
	}

	f, err := s.Objects.Fetch(ctx, key, s.MaxBytes)
	switch {
	case errors.Is(err, domain.ErrObjectNotFound):
		return domain.Result{}, domain.BadRequestf("object not found: %s", key)
	case errors.Is(err, domain.ErrTooLarge):
		return domain.Result{}, domain.BadRequestf("file exceeds maximum size of %d bytes", s.MaxBytes)
	case err != nil:
		return domain.Result{}, domain.Failed(err)
	}
	return s.Analyze(ctx, f)
}
