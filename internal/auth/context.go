package auth

import "context"

type ctxKey string

// ContextSnapshotKey carries the resolved authorization snapshot for the
// current request.
const ContextSnapshotKey ctxKey = "authz_snapshot"

func SnapshotFromContext(ctx context.Context) (*Snapshot, bool) {
	snap, ok := ctx.Value(ContextSnapshotKey).(*Snapshot)
	return snap, ok
}

func ContextWithSnapshot(ctx context.Context, snap *Snapshot) context.Context {
	return context.WithValue(ctx, ContextSnapshotKey, snap)
}
