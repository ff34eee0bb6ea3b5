package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"chromamind-service/internal/app"
	"chromamind-service/internal/domain"
	"chromamind-service/internal/infra/memory"
)

func newTestService(now func() time.Time) *app.SubmissionService {
	store := memory.NewSubmissionRepository()
	catalog := memory.NewCatalogRepository(
		memory.NewStaticCatalogLoader(threeQuestionCatalog()), 5*time.Minute)
	return app.NewSubmissionServiceWithClock(store, catalog, now)
}

func TestSubmitRejectsEmptyAnswers(t *testing.T) {
	service := newTestService(time.Now)

	_, err := service.Submit(context.Background(), domain.SubmissionInput{Name: "Alice"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	_, err = service.Submit(context.Background(), domain.SubmissionInput{Answers: []string{"Red"}, Age: -3})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error for negative age, got %v", err)
	}
}

func TestSubmitScoresAndStores(t *testing.T) {
	ctx := context.Background()
	service := newTestService(time.Now)

	sub, err := service.Submit(ctx, domain.SubmissionInput{
		Name:    "Alice",
		Age:     30,
		Answers: []string{"Red like fire", "Red", "Blue like ice"},
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.SessionID == "" {
		t.Fatalf("expected assigned session id")
	}
	if sub.AssignedColor != "red" || sub.ScoreBreakdown["red"] != 4 || sub.ScoreBreakdown["blue"] != 1 {
		t.Fatalf("unexpected scoring: %+v", sub)
	}
	// answers are normalized to first-token form before storage
	if sub.RawAnswers[0] != "Red" || sub.RawAnswers[2] != "Blue" {
		t.Fatalf("expected normalized answers, got %v", sub.RawAnswers)
	}

	listed, err := service.List(ctx, 200)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].SessionID != sub.SessionID {
		t.Fatalf("expected stored submission, got %+v", listed)
	}
}

func TestSubmitUpsertsOnClientSessionID(t *testing.T) {
	ctx := context.Background()
	service := newTestService(time.Now)

	input := domain.SubmissionInput{
		SessionID: "client-1",
		Name:      "Alice",
		Answers:   []string{"Red"},
	}
	if _, err := service.Submit(ctx, input); err != nil {
		t.Fatalf("submit: %v", err)
	}
	// a sweep retry resends the same record; it must not duplicate
	if _, err := service.Submit(ctx, input); err != nil {
		t.Fatalf("resubmit: %v", err)
	}

	listed, _ := service.List(ctx, 200)
	if len(listed) != 1 {
		t.Fatalf("expected one record after resubmit, got %d", len(listed))
	}
}

func TestListNewestFirst(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	service := newTestService(func() time.Time {
		current = current.Add(time.Minute)
		return current
	})

	for _, id := range []string{"a", "b", "c"} {
		if _, err := service.Submit(ctx, domain.SubmissionInput{SessionID: id, Answers: []string{"Red"}}); err != nil {
			t.Fatalf("submit %s: %v", id, err)
		}
	}

	listed, _ := service.List(ctx, 200)
	if len(listed) != 3 || listed[0].SessionID != "c" || listed[2].SessionID != "a" {
		t.Fatalf("expected newest first [c b a], got %+v", listed)
	}

	capped, _ := service.List(ctx, 2)
	if len(capped) != 2 || capped[0].SessionID != "c" {
		t.Fatalf("expected capped list [c b], got %+v", capped)
	}
}

func TestDeleteSemantics(t *testing.T) {
	ctx := context.Background()
	service := newTestService(time.Now)

	if err := service.Delete(ctx, "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := service.Submit(ctx, domain.SubmissionInput{SessionID: "s1", Answers: []string{"Red"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := service.Delete(ctx, "s1"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}

	if _, err := service.Submit(ctx, domain.SubmissionInput{SessionID: "s2", Answers: []string{"Red"}}); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := service.DeleteAll(ctx); err != nil {
		t.Fatalf("delete all: %v", err)
	}
	listed, _ := service.List(ctx, 200)
	if len(listed) != 0 {
		t.Fatalf("expected empty store, got %+v", listed)
	}
}
