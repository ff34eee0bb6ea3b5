package memory

import (
	"context"
	"sync"

	"chromamind-service/internal/domain"
)

// Ledger is an in-memory implementation of app.Ledger, for tests and
// deployments without Redis. It does not survive restarts.
type Ledger struct {
	mu       sync.RWMutex
	pending  map[string]domain.Submission
	deletes  map[string]struct{}
	clearAll bool
}

func NewLedger() *Ledger {
	return &Ledger{
		pending: make(map[string]domain.Submission),
		deletes: make(map[string]struct{}),
	}
}

func (l *Ledger) Put(_ context.Context, sub domain.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending[sub.SessionID] = sub
	return nil
}

func (l *Ledger) Remove(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.pending, sessionID)
	return nil
}

func (l *Ledger) List(_ context.Context) ([]domain.Submission, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Submission, 0, len(l.pending))
	for _, sub := range l.pending {
		out = append(out, sub)
	}
	return out, nil
}

// Clear drops entries and tombstones but keeps the clear-all flag: the flag
// is the record of an unconfirmed bulk clear and outlives its entries.
func (l *Ledger) Clear(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pending = make(map[string]domain.Submission)
	l.deletes = make(map[string]struct{})
	return nil
}

func (l *Ledger) MarkDelete(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.deletes[sessionID] = struct{}{}
	return nil
}

func (l *Ledger) UnmarkDelete(_ context.Context, sessionID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.deletes, sessionID)
	return nil
}

func (l *Ledger) PendingDeletes(_ context.Context) ([]string, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]string, 0, len(l.deletes))
	for id := range l.deletes {
		out = append(out, id)
	}
	return out, nil
}

func (l *Ledger) MarkClearAll(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearAll = true
	return nil
}

func (l *Ledger) UnmarkClearAll(_ context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.clearAll = false
	return nil
}

func (l *Ledger) ClearAllPending(_ context.Context) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.clearAll, nil
}
