package idempotency

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gift-auction/internal/auctionerrors"

	"github.com/benbjohnson/clock"
)

type memoryEntry struct {
	rec     Record
	expires time.Time
}

// MemoryStore keeps keys in process memory until their TTL passes.
type MemoryStore struct {
	mu      sync.Mutex
	clock   clock.Clock
	ttl     time.Duration
	entries map[string]memoryEntry
}

// NewMemoryStore creates a store whose keys expire ttl after their last write.
func NewMemoryStore(clk clock.Clock, ttl time.Duration) *MemoryStore {
	return &MemoryStore{clock: clk, ttl: ttl, entries: make(map[string]memoryEntry)}
}

func (s *MemoryStore) Reserve(_ context.Context, key, hash string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if e, ok := s.entries[key]; ok && now.Before(e.expires) {
		return checkExisting(key, hash, e.rec)
	}
	s.entries[key] = memoryEntry{rec: Record{RequestHash: hash}, expires: now.Add(s.ttl)}
	return Record{}, nil
}

func (s *MemoryStore) Complete(_ context.Context, key, bidID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return fmt.Errorf("idempotency: complete unknown key %s", key)
	}
	e.rec.BidID = bidID
	e.rec.Done = true
	e.expires = s.clock.Now().Add(s.ttl)
	s.entries[key] = e
	return nil
}

func (s *MemoryStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[key]; ok && !e.rec.Done {
		delete(s.entries, key)
	}
	return nil
}

func checkExisting(key, hash string, rec Record) (Record, error) {
	if rec.RequestHash != hash {
		return Record{}, fmt.Errorf("idempotency: key %s: %w", key, auctionerrors.ErrIdempotencyMismatch)
	}
	if !rec.Done {
		return Record{}, fmt.Errorf("idempotency: key %s: %w", key, auctionerrors.ErrIdempotencyConflict)
	}
	return rec, nil
}
