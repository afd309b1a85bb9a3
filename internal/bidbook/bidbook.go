package bidbook

import (
	"fmt"
	"sort"
	"sync"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/models"
)

// Less reports whether a ranks ahead of b: higher amount first, then earlier submission.
// Seq and BidID only matter for bids submitted at the same instant, such as carried bids.
func Less(a, b models.Bid) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	if a.Seq != b.Seq {
		return a.Seq < b.Seq
	}
	return a.BidID < b.BidID
}

// BidBook keeps the pending bids of one round in ranked order.
// It is pure ordering logic: funds are locked by the caller before admission.
type BidBook struct {
	mu     sync.RWMutex
	ranked []models.Bid
}

// New creates an empty bid book
func New() *BidBook {
	return &BidBook{}
}

// Admit inserts bid at its ranked position.
func (b *BidBook) Admit(bid models.Bid) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.find(bid.BidID) >= 0 {
		return fmt.Errorf("bidbook: admit %s: %w - duplicate bid id", bid.BidID, auctionerrors.ErrInvalidBid)
	}
	b.insert(bid)
	return nil
}

// Replace removes oldBidID and inserts bid as one step; readers never see both or neither.
func (b *BidBook) Replace(oldBidID string, bid models.Bid) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	i := b.find(oldBidID)
	if i < 0 {
		return fmt.Errorf("bidbook: replace %s: %w", oldBidID, auctionerrors.ErrBidNotFound)
	}
	if bid.BidID != oldBidID && b.find(bid.BidID) >= 0 {
		return fmt.Errorf("bidbook: replace %s: %w - duplicate bid id %s", oldBidID, auctionerrors.ErrInvalidBid, bid.BidID)
	}
	b.ranked = append(b.ranked[:i], b.ranked[i+1:]...)
	b.insert(bid)
	return nil
}

// Get returns the pending bid with the given id
func (b *BidBook) Get(bidID string) (models.Bid, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	i := b.find(bidID)
	if i < 0 {
		return models.Bid{}, false
	}
	return b.ranked[i], true
}

// TopN returns a copy of the first n bids in ranked order.
func (b *BidBook) TopN(n int) []models.Bid {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if n < 0 {
		n = 0
	}
	n = min(n, len(b.ranked))
	return append([]models.Bid(nil), b.ranked[:n]...)
}

// Ranked returns a copy of every bid in ranked order
func (b *BidBook) Ranked() []models.Bid {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]models.Bid(nil), b.ranked...)
}

func (b *BidBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ranked)
}

func (b *BidBook) insert(bid models.Bid) {
	pos := sort.Search(len(b.ranked), func(i int) bool { return Less(bid, b.ranked[i]) })
	b.ranked = append(b.ranked, models.Bid{})
	copy(b.ranked[pos+1:], b.ranked[pos:])
	b.ranked[pos] = bid
}

func (b *BidBook) find(bidID string) int {
	for i := range b.ranked {
		if b.ranked[i].BidID == bidID {
			return i
		}
	}
	return -1
}
