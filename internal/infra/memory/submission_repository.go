package memory

import (
	"context"
	"sort"
	"sync"

	"chromamind-service/internal/domain"
)

// SubmissionRepository is the in-memory central store, used when no Postgres
// URL is configured. Mirrors the Postgres semantics: upsert by sessionId,
// newest-first listing.
type SubmissionRepository struct {
	mu   sync.RWMutex
	subs map[string]domain.Submission
}

func NewSubmissionRepository() *SubmissionRepository {
	return &SubmissionRepository{subs: make(map[string]domain.Submission)}
}

func (r *SubmissionRepository) Save(_ context.Context, sub domain.Submission) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs[sub.SessionID] = sub
	return nil
}

func (r *SubmissionRepository) List(_ context.Context, limit int) ([]domain.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.Submission, 0, len(r.subs))
	for _, sub := range r.subs {
		out = append(out, sub)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Timestamp.Equal(out[j].Timestamp) {
			return out[i].Timestamp.After(out[j].Timestamp)
		}
		return out[i].SessionID < out[j].SessionID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *SubmissionRepository) Delete(_ context.Context, sessionID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.subs[sessionID]; !ok {
		return false, nil
	}
	delete(r.subs, sessionID)
	return true, nil
}

func (r *SubmissionRepository) DeleteAll(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.subs = make(map[string]domain.Submission)
	return nil
}
