package app

import (
	"context"
	"errors"
	"log"
	"sort"
	"sync"
	"time"

	"chromamind-service/internal/domain"
)

// Ledger is the durable client-side record of submissions not yet confirmed
// stored centrally, plus deletes not yet confirmed applied centrally.
// Presence in the ledger means "pending"; removal is the confirmation.
type Ledger interface {
	Put(ctx context.Context, sub domain.Submission) error
	Remove(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]domain.Submission, error)
	Clear(ctx context.Context) error

	MarkDelete(ctx context.Context, sessionID string) error
	UnmarkDelete(ctx context.Context, sessionID string) error
	PendingDeletes(ctx context.Context) ([]string, error)

	// The clear-all flag records a bulk clear that could not be confirmed
	// centrally. It survives Clear so the intent outlives the entries.
	MarkClearAll(ctx context.Context) error
	UnmarkClearAll(ctx context.Context) error
	ClearAllPending(ctx context.Context) (bool, error)
}

// Gateway is the fire-once RPC boundary to the central service. Calls carry a
// bounded timeout and map failures onto the domain error taxonomy; retrying
// is the Reconciler's job, never the gateway's.
type Gateway interface {
	Create(ctx context.Context, input domain.SubmissionInput) (domain.Submission, error)
	List(ctx context.Context, limit int) ([]domain.Submission, error)
	DeleteOne(ctx context.Context, sessionID string) error
	DeleteAll(ctx context.Context) error
}

// Reconciler drives the offline-first pipeline: write-through recording,
// the background retry sweep, and the server-preferring merged history view.
type Reconciler struct {
	ledger    Ledger
	gateway   Gateway
	interval  time.Duration
	pageLimit int
	now       func() time.Time

	mu          sync.Mutex
	sweeping    bool
	subscribers map[chan struct{}]struct{}

	kick chan struct{}
}

func NewReconciler(ledger Ledger, gateway Gateway, interval time.Duration, pageLimit int) *Reconciler {
	return NewReconcilerWithClock(ledger, gateway, interval, pageLimit, time.Now)
}

// NewReconcilerWithClock allows deterministic timestamps in tests.
func NewReconcilerWithClock(ledger Ledger, gateway Gateway, interval time.Duration, pageLimit int, now func() time.Time) *Reconciler {
	return &Reconciler{
		ledger:      ledger,
		gateway:     gateway,
		interval:    interval,
		pageLimit:   pageLimit,
		now:         now,
		subscribers: make(map[chan struct{}]struct{}),
		kick:        make(chan struct{}, 1),
	}
}

// RecordNew persists a freshly scored submission. The ledger write is
// synchronous and is the completion guarantee for the quiz flow: it never
// fails the caller (a ledger fault is logged and the push still runs). The
// central create happens asynchronously; on success the entry leaves the
// ledger and subscribers are notified.
func (r *Reconciler) RecordNew(ctx context.Context, sub domain.Submission) {
	if err := r.ledger.Put(ctx, sub); err != nil {
		log.Printf("ledger put %s: %v", sub.SessionID, err)
	}
	go func() {
		if r.pushOne(context.Background(), sub) {
			r.notify()
		}
	}()
}

// pushOne attempts one central create for a ledger entry. Returns true when
// the entry was accepted and evicted from the ledger.
func (r *Reconciler) pushOne(ctx context.Context, sub domain.Submission) bool {
	_, err := r.gateway.Create(ctx, domain.SubmissionInput{
		SessionID: sub.SessionID,
		Name:      sub.Name,
		Age:       sub.Age,
		Answers:   sub.RawAnswers,
	})
	if err != nil {
		if !errors.Is(err, domain.ErrUnreachable) {
			log.Printf("sync submission %s: %v", sub.SessionID, err)
		}
		return false
	}
	if err := r.ledger.Remove(ctx, sub.SessionID); err != nil {
		log.Printf("ledger remove %s: %v", sub.SessionID, err)
	}
	return true
}

// RetrySweep pushes all pending creates and deletes to the central service,
// sequentially, oldest first. The first ErrUnreachable aborts the whole
// sweep: a dead network is global, not per-entry. Entry-specific failures
// (rejected or invalid records) are logged and the sweep moves on. Only one
// sweep runs at a time; a request while one is active is dropped.
func (r *Reconciler) RetrySweep(ctx context.Context) {
	if !r.beginSweep() {
		return
	}
	defer r.endSweep()

	if !r.sweepCreates(ctx) {
		return
	}
	r.sweepDeletes(ctx)
}

func (r *Reconciler) beginSweep() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sweeping {
		return false
	}
	r.sweeping = true
	return true
}

func (r *Reconciler) endSweep() {
	r.mu.Lock()
	r.sweeping = false
	r.mu.Unlock()
}

// sweepCreates returns false when the network went away mid-sweep.
func (r *Reconciler) sweepCreates(ctx context.Context) bool {
	pending, err := r.ledger.List(ctx)
	if err != nil {
		log.Printf("ledger list: %v", err)
		return true
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].Timestamp.Before(pending[j].Timestamp)
	})

	for _, sub := range pending {
		_, err := r.gateway.Create(ctx, domain.SubmissionInput{
			SessionID: sub.SessionID,
			Name:      sub.Name,
			Age:       sub.Age,
			Answers:   sub.RawAnswers,
		})
		switch {
		case err == nil:
			if err := r.ledger.Remove(ctx, sub.SessionID); err != nil {
				log.Printf("ledger remove %s: %v", sub.SessionID, err)
			}
			r.notify()
		case errors.Is(err, domain.ErrUnreachable):
			return false
		default:
			log.Printf("sync submission %s: %v", sub.SessionID, err)
		}
	}
	return true
}

func (r *Reconciler) sweepDeletes(ctx context.Context) {
	if !r.sweepClearAll(ctx) {
		return
	}

	ids, err := r.ledger.PendingDeletes(ctx)
	if err != nil {
		log.Printf("ledger pending deletes: %v", err)
		return
	}
	sort.Strings(ids)

	for _, id := range ids {
		err := r.gateway.DeleteOne(ctx, id)
		switch {
		case err == nil, errors.Is(err, domain.ErrNotFound):
			if err := r.ledger.UnmarkDelete(ctx, id); err != nil {
				log.Printf("ledger unmark delete %s: %v", id, err)
			}
			r.notify()
		case errors.Is(err, domain.ErrUnreachable):
			return
		default:
			log.Printf("sync delete %s: %v", id, err)
		}
	}
}

// sweepClearAll replays an unconfirmed bulk clear. Returns false when the
// network went away; a rejected clear is logged and the per-id deletes still
// run.
func (r *Reconciler) sweepClearAll(ctx context.Context) bool {
	pending, err := r.ledger.ClearAllPending(ctx)
	if err != nil {
		log.Printf("ledger clear-all flag: %v", err)
		return true
	}
	if !pending {
		return true
	}

	switch err := r.gateway.DeleteAll(ctx); {
	case err == nil:
		if err := r.ledger.UnmarkClearAll(ctx); err != nil {
			log.Printf("ledger unmark clear-all: %v", err)
		}
		r.notify()
		return true
	case errors.Is(err, domain.ErrUnreachable):
		return false
	default:
		log.Printf("sync clear all: %v", err)
		return true
	}
}

// MergedView builds the deduplicated history: central records first, then
// ledger entries whose sessionId the server has not seen, minus anything with
// a pending delete (or everything server-side while a clear-all is pending),
// newest first. A failed central fetch degrades to the local view rather than
// erroring. The counts report how many displayed items came from each source.
func (r *Reconciler) MergedView(ctx context.Context) domain.MergedHistory {
	server, err := r.gateway.List(ctx, r.pageLimit)
	if err != nil {
		if !errors.Is(err, domain.ErrUnreachable) {
			log.Printf("list central submissions: %v", err)
		}
		server = nil
	}

	local, err := r.ledger.List(ctx)
	if err != nil {
		log.Printf("ledger list: %v", err)
		local = nil
	}

	tombstoned := make(map[string]bool)
	if ids, err := r.ledger.PendingDeletes(ctx); err == nil {
		for _, id := range ids {
			tombstoned[id] = true
		}
	}
	clearPending, err := r.ledger.ClearAllPending(ctx)
	if err != nil {
		log.Printf("ledger clear-all flag: %v", err)
		clearPending = false
	}

	merged := make(map[string]domain.Submission, len(server)+len(local))
	fromServer := make(map[string]bool, len(server))
	for _, sub := range server {
		if clearPending || tombstoned[sub.SessionID] {
			continue
		}
		merged[sub.SessionID] = sub
		fromServer[sub.SessionID] = true
	}
	for _, sub := range local {
		if tombstoned[sub.SessionID] {
			continue
		}
		if _, ok := merged[sub.SessionID]; !ok {
			merged[sub.SessionID] = sub
		}
	}

	items := make([]domain.Submission, 0, len(merged))
	serverCount := 0
	for _, sub := range merged {
		items = append(items, sub)
		if fromServer[sub.SessionID] {
			serverCount++
		}
	}
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Timestamp.Equal(items[j].Timestamp) {
			return items[i].Timestamp.After(items[j].Timestamp)
		}
		return items[i].SessionID < items[j].SessionID
	})

	return domain.MergedHistory{
		Items:       items,
		ServerCount: serverCount,
		LocalCount:  len(items) - serverCount,
	}
}

// DeleteOne removes a submission everywhere, best effort. The ledger entry
// always goes so the record never resurfaces in MergedView; if the central
// delete could not be confirmed the id is tombstoned and replayed by the
// sweep. A central NotFound is success: the record was local-only.
func (r *Reconciler) DeleteOne(ctx context.Context, sessionID string) {
	err := r.gateway.DeleteOne(ctx, sessionID)
	switch {
	case err == nil, errors.Is(err, domain.ErrNotFound):
	default:
		if markErr := r.ledger.MarkDelete(ctx, sessionID); markErr != nil {
			log.Printf("ledger mark delete %s: %v", sessionID, markErr)
		}
	}
	if err := r.ledger.Remove(ctx, sessionID); err != nil {
		log.Printf("ledger remove %s: %v", sessionID, err)
	}
	r.notify()
}

// DeleteAll clears both stores. An unconfirmed central clear raises the
// clear-all flag: the sweep replays it until it lands, and MergedView hides
// server records meanwhile so nothing resurfaces.
func (r *Reconciler) DeleteAll(ctx context.Context) {
	if err := r.gateway.DeleteAll(ctx); err != nil {
		log.Printf("clear central submissions: %v", err)
		if markErr := r.ledger.MarkClearAll(ctx); markErr != nil {
			log.Printf("ledger mark clear-all: %v", markErr)
		}
	}
	if err := r.ledger.Clear(ctx); err != nil {
		log.Printf("ledger clear: %v", err)
	}
	r.notify()
}

// Subscribe returns a channel that fires whenever the merged view may have
// changed. The caller must invoke cancel to avoid leaks.
func (r *Reconciler) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

func (r *Reconciler) notify() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for ch := range r.subscribers {
		select {
		case ch <- struct{}{}:
		default:
			// a pending signal already queued; coalesce
		}
	}
}

// Kick requests an immediate sweep, the regained-focus/connectivity signal.
// Signals coalesce; an already-queued kick absorbs new ones.
func (r *Reconciler) Kick() {
	select {
	case r.kick <- struct{}{}:
	default:
	}
}

// Run drives the recurring sweep until ctx is canceled.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RetrySweep(ctx)
		case <-r.kick:
			r.RetrySweep(ctx)
		}
	}
}
