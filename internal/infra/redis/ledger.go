package redis

import (
	"context"
	"encoding/json"
	"log"

	"chromamind-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Ledger is the Redis-backed pending store, durable across agent restarts.
// Layout under a well-known key prefix:
//
//	HSET {prefix}:pending {sessionID} {submission JSON}
//	SADD {prefix}:deletes {sessionID}
//	SET  {prefix}:clearall 1
//
// A blob that no longer parses is skipped and logged, never fatal: a corrupt
// ledger degrades to fewer pending entries, not a blocked quiz flow.
type Ledger struct {
	client *redis.Client
	prefix string
}

func NewLedger(client *redis.Client, prefix string) *Ledger {
	if prefix == "" {
		prefix = "chromamind:ledger"
	}
	return &Ledger{client: client, prefix: prefix}
}

func (l *Ledger) Put(ctx context.Context, sub domain.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	return l.client.HSet(ctx, l.pendingKey(), sub.SessionID, data).Err()
}

func (l *Ledger) Remove(ctx context.Context, sessionID string) error {
	// HDEL of an absent field is a no-op in Redis, matching the contract.
	return l.client.HDel(ctx, l.pendingKey(), sessionID).Err()
}

func (l *Ledger) List(ctx context.Context) ([]domain.Submission, error) {
	entries, err := l.client.HGetAll(ctx, l.pendingKey()).Result()
	if err != nil {
		return nil, err
	}
	out := make([]domain.Submission, 0, len(entries))
	for sessionID, blob := range entries {
		var sub domain.Submission
		if err := json.Unmarshal([]byte(blob), &sub); err != nil {
			log.Printf("ledger entry %s corrupt, skipping: %v", sessionID, err)
			continue
		}
		out = append(out, sub)
	}
	return out, nil
}

// Clear removes entries and tombstones; the clear-all flag stays until the
// bulk clear is confirmed centrally.
func (l *Ledger) Clear(ctx context.Context) error {
	return l.client.Del(ctx, l.pendingKey(), l.deletesKey()).Err()
}

func (l *Ledger) MarkDelete(ctx context.Context, sessionID string) error {
	return l.client.SAdd(ctx, l.deletesKey(), sessionID).Err()
}

func (l *Ledger) UnmarkDelete(ctx context.Context, sessionID string) error {
	return l.client.SRem(ctx, l.deletesKey(), sessionID).Err()
}

func (l *Ledger) PendingDeletes(ctx context.Context) ([]string, error) {
	return l.client.SMembers(ctx, l.deletesKey()).Result()
}

func (l *Ledger) MarkClearAll(ctx context.Context) error {
	return l.client.Set(ctx, l.clearAllKey(), "1", 0).Err()
}

func (l *Ledger) UnmarkClearAll(ctx context.Context) error {
	return l.client.Del(ctx, l.clearAllKey()).Err()
}

func (l *Ledger) ClearAllPending(ctx context.Context) (bool, error) {
	n, err := l.client.Exists(ctx, l.clearAllKey()).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (l *Ledger) pendingKey() string {
	return l.prefix + ":pending"
}

func (l *Ledger) deletesKey() string {
	return l.prefix + ":deletes"
}

func (l *Ledger) clearAllKey() string {
	return l.prefix + ":clearall"
}
