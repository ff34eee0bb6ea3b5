package app

import (
	"context"
	"fmt"
	"time"

	"chromamind-service/internal/domain"
	"github.com/google/uuid"
)

// CatalogRepository loads the question catalog (from cache/backing store).
type CatalogRepository interface {
	GetCatalog(ctx context.Context) (domain.Catalog, error)
}

// SubmissionRepository abstracts how the central service stores submissions
// (Postgres, in-memory fallback).
type SubmissionRepository interface {
	// Save upserts by sessionId.
	Save(ctx context.Context, sub domain.Submission) error
	// List returns up to limit submissions, newest first.
	List(ctx context.Context, limit int) ([]domain.Submission, error)
	// Delete removes by sessionId; found reports whether it existed.
	Delete(ctx context.Context, sessionID string) (found bool, err error)
	DeleteAll(ctx context.Context) error
}

// SubmissionService contains the central-side use cases. It is the source of
// truth: client-computed scores are advisory and every accepted submission is
// rescored here against the shared catalog.
type SubmissionService struct {
	store   SubmissionRepository
	catalog CatalogRepository
	now     func() time.Time
}

func NewSubmissionService(store SubmissionRepository, catalog CatalogRepository) *SubmissionService {
	return &SubmissionService{store: store, catalog: catalog, now: time.Now}
}

// NewSubmissionServiceWithClock is test-only for deterministic timestamps.
func NewSubmissionServiceWithClock(store SubmissionRepository, catalog CatalogRepository, now func() time.Time) *SubmissionService {
	return &SubmissionService{store: store, catalog: catalog, now: now}
}

// Submit validates, scores and stores one quiz completion. A client-assigned
// sessionId is honored so retried creates upsert instead of duplicating.
func (s *SubmissionService) Submit(ctx context.Context, input domain.SubmissionInput) (domain.Submission, error) {
	if len(input.Answers) == 0 {
		return domain.Submission{}, fmt.Errorf("%w: answers required", domain.ErrValidation)
	}
	if input.Age < 0 {
		return domain.Submission{}, fmt.Errorf("%w: age must be non-negative", domain.ErrValidation)
	}

	catalog, err := s.catalog.GetCatalog(ctx)
	if err != nil {
		return domain.Submission{}, err
	}

	raw := NormalizeAnswers(input.Answers)
	breakdown, assigned := Score(raw, catalog)

	sessionID := input.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	sub := domain.Submission{
		SessionID:      sessionID,
		Name:           input.Name,
		Age:            input.Age,
		Timestamp:      s.now().UTC(),
		RawAnswers:     raw,
		ScoreBreakdown: breakdown,
		AssignedColor:  assigned,
	}
	if err := s.store.Save(ctx, sub); err != nil {
		return domain.Submission{}, fmt.Errorf("save submission: %w", err)
	}
	return sub, nil
}

// List returns recent submissions, newest first, capped at limit.
func (s *SubmissionService) List(ctx context.Context, limit int) ([]domain.Submission, error) {
	return s.store.List(ctx, limit)
}

// Delete removes one submission by sessionId.
func (s *SubmissionService) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return fmt.Errorf("%w: id required", domain.ErrValidation)
	}
	found, err := s.store.Delete(ctx, sessionID)
	if err != nil {
		return fmt.Errorf("delete submission: %w", err)
	}
	if !found {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteAll clears the submission store.
func (s *SubmissionService) DeleteAll(ctx context.Context) error {
	return s.store.DeleteAll(ctx)
}
