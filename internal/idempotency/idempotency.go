package idempotency

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Record is what a store keeps per idempotency key.
type Record struct {
	RequestHash string `json:"request_hash"`
	BidID       string `json:"bid_id,omitempty"`
	Done        bool   `json:"done"`
}

// Store reserves idempotency keys for bid submissions.
//
// Reserve claims key for a request with hash. A fresh claim returns a zero Record. If the key
// already completed with the same hash the stored Record (Done=true) is returned for replay.
// A different hash fails with ErrIdempotencyMismatch and an in-flight claim with
// ErrIdempotencyConflict.
type Store interface {
	Reserve(ctx context.Context, key, hash string) (Record, error)
	Complete(ctx context.Context, key, bidID string) error
	Release(ctx context.Context, key string) error
}

// RequestHash fingerprints the fields of a request that must match on replay.
func RequestHash(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}
