package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/models"
)

//go:generate mockgen -destination=mock_store.go -package=repository gift-auction/internal/repository Store

// Store is the journal the orchestrator writes every state change to. Each Save accepts a
// record only if its version is greater than the stored one; otherwise it fails with
// ErrVersionConflict and keeps the stored record.
type Store interface {
	SaveAuction(ctx context.Context, a models.Auction) error
	SaveRound(ctx context.Context, r models.Round) error
	SaveBid(ctx context.Context, b models.Bid) error
	SaveLedgerEntry(ctx context.Context, e models.LedgerEntry) error

	GetAuction(ctx context.Context, auctionID string) (models.Auction, error)
	ListRounds(ctx context.Context, auctionID string) ([]models.Round, error)
	ListBids(ctx context.Context, auctionID string) ([]models.Bid, error)
	GetLedgerEntry(ctx context.Context, userID string) (models.LedgerEntry, error)
}

type roundKey struct {
	auctionID string
	index     int
}

// MemoryRepo is a concurrency-safe in-memory Store
type MemoryRepo struct {
	mu       sync.RWMutex
	auctions map[string]models.Auction
	rounds   map[roundKey]models.Round
	bids     map[string]models.Bid
	entries  map[string]models.LedgerEntry
}

// NewMemoryRepo creates an empty in-memory repository
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		auctions: make(map[string]models.Auction),
		rounds:   make(map[roundKey]models.Round),
		bids:     make(map[string]models.Bid),
		entries:  make(map[string]models.LedgerEntry),
	}
}

func checkVersion(kind, id string, stored, incoming int64) error {
	if incoming <= stored {
		return fmt.Errorf("save %s %s: stored version %d, got %d: %w", kind, id, stored, incoming, auctionerrors.ErrVersionConflict)
	}
	return nil
}

func (r *MemoryRepo) SaveAuction(_ context.Context, a models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := checkVersion("auction", a.AuctionID, r.auctions[a.AuctionID].Version, a.Version); err != nil {
		return err
	}
	r.auctions[a.AuctionID] = a
	return nil
}

func (r *MemoryRepo) SaveRound(_ context.Context, rd models.Round) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := roundKey{rd.AuctionID, rd.Index}
	if err := checkVersion("round", fmt.Sprintf("%s/%d", rd.AuctionID, rd.Index), r.rounds[key].Version, rd.Version); err != nil {
		return err
	}
	r.rounds[key] = rd
	return nil
}

func (r *MemoryRepo) SaveBid(_ context.Context, b models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := checkVersion("bid", b.BidID, r.bids[b.BidID].Version, b.Version); err != nil {
		return err
	}
	r.bids[b.BidID] = b
	return nil
}

func (r *MemoryRepo) SaveLedgerEntry(_ context.Context, e models.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := checkVersion("ledger entry", e.UserID, r.entries[e.UserID].Version, e.Version); err != nil {
		return err
	}
	r.entries[e.UserID] = e
	return nil
}

func (r *MemoryRepo) GetAuction(_ context.Context, auctionID string) (models.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.auctions[auctionID]
	if !ok {
		return models.Auction{}, fmt.Errorf("get auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return a, nil
}

// ListRounds returns the auction's rounds ordered by index
func (r *MemoryRepo) ListRounds(_ context.Context, auctionID string) ([]models.Round, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Round
	for key, rd := range r.rounds {
		if key.auctionID == auctionID {
			out = append(out, rd)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// ListBids returns the auction's bids ordered by submission sequence
func (r *MemoryRepo) ListBids(_ context.Context, auctionID string) ([]models.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Bid
	for _, b := range r.bids {
		if b.AuctionID == auctionID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (r *MemoryRepo) GetLedgerEntry(_ context.Context, userID string) (models.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[userID]
	if !ok {
		return models.LedgerEntry{}, fmt.Errorf("get ledger entry %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	return e, nil
}
