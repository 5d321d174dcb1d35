package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThanhXT2002/api-insurance-sub001/internal/cache"
)

// snapshotCache adapts the generic cache.Store to typed snapshots. Keys are
// "user:<id>" under the store's configured prefix.
type snapshotCache struct {
	store cache.Store
	ttl   time.Duration
}

// NewSnapshotCache wraps a cache.Store with JSON snapshot encoding and the
// configured TTL.
func NewSnapshotCache(store cache.Store, ttl time.Duration) SnapshotCache {
	return &snapshotCache{store: store, ttl: ttl}
}

func snapshotKey(userID int64) string {
	return fmt.Sprintf("user:%d", userID)
}

func (c *snapshotCache) Get(ctx context.Context, userID int64) (*Snapshot, error) {
	raw, err := c.store.Get(ctx, snapshotKey(userID))
	if err != nil {
		return nil, err
	}

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		// A corrupt entry is unusable; drop it and report a miss.
		_ = c.store.Delete(ctx, snapshotKey(userID))
		return nil, cache.ErrNotFound
	}
	return &snap, nil
}

func (c *snapshotCache) Set(ctx context.Context, snap *Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return c.store.Set(ctx, snapshotKey(snap.UserID), string(raw), c.ttl)
}

func (c *snapshotCache) Invalidate(ctx context.Context, userID int64) error {
	return c.store.Delete(ctx, snapshotKey(userID))
}

func (c *snapshotCache) InvalidateAll(ctx context.Context) error {
	return c.store.DeleteAll(ctx)
}
