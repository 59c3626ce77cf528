package repository

import (
	"context"
	"time"
)

// Record is a live (unexpired) payload as returned by listing.
type Record struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// PrimaryStore is the low-latency payload backend. It expires entries on its
// own and cannot enumerate them. A missing key is reported as found=false with
// a nil error; errors always mean the backend could not answer.
type PrimaryStore interface {
	Get(ctx context.Context, key string) (value string, found bool, err error)
	Put(ctx context.Context, key, value string, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// ReplicaStore is the durable payload backend. Put is an upsert that also
// replaces the expiry. Get and List hide expired rows.
type ReplicaStore interface {
	PrimaryStore
	List(ctx context.Context) ([]Record, error)
	// PurgeExpired physically removes expired rows and returns how many went.
	PurgeExpired(ctx context.Context) (int64, error)
}
