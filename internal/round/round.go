package round

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gift-auction/internal/antisniping"
	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/bidbook"
	"gift-auction/internal/models"

	"github.com/benbjohnson/clock"
)

// Sequencer hands out the global submission order for bids
type Sequencer struct {
	n atomic.Uint64
}

func (s *Sequencer) Next() uint64 {
	return s.n.Add(1)
}

// Round is the live state of one round. Its mutex is the round's critical section:
// admission, anti-sniping and the Open -> Closing decision all run under it.
type Round struct {
	mu sync.Mutex

	rec       models.Round
	duration  time.Duration
	antiSnipe antisniping.Controller
	clock     clock.Clock
	seq       *Sequencer

	book    *bidbook.BidBook
	bids    map[string]*models.Bid
	order   []string
	carried map[string]string // predecessor bid id -> carried bid id
}

// Params holds everything needed to open a round
type Params struct {
	AuctionID string
	Index     int
	Final     bool
	Gifts     int
	Config    models.RoundConfig
	Clock     clock.Clock
	Sequencer *Sequencer
}

// New creates an open round whose deadline starts counting at the current clock time.
func New(p Params) *Round {
	now := p.Clock.Now()
	return &Round{
		rec: models.Round{
			AuctionID:      p.AuctionID,
			Index:          p.Index,
			Final:          p.Final,
			GiftsAllocated: p.Gifts,
			OpenedAt:       now,
			EndAt:          now.Add(p.Config.Duration),
			MaxExtensions:  p.Config.AntiSniping.MaxExtensions,
			Status:         models.RoundOpen,
			Version:        1,
		},
		duration:  p.Config.Duration,
		antiSnipe: antisniping.NewController(p.Config.AntiSniping),
		clock:     p.Clock,
		seq:       p.Sequencer,
		book:      bidbook.New(),
		bids:      make(map[string]*models.Bid),
		carried:   make(map[string]string),
	}
}

// Admission describes an accepted bid and the round deadline after it.
type Admission struct {
	Bid        models.Bid
	Superseded *models.Bid
	Round      models.Round
	Extended   bool
}

func (r *Round) acceptingLocked(now time.Time) error {
	if r.rec.Status != models.RoundOpen {
		return fmt.Errorf("round %d is %s: %w", r.rec.Index, r.rec.Status, auctionerrors.ErrRoundClosed)
	}
	if !now.Before(r.rec.EndAt) {
		return fmt.Errorf("round %d deadline %s passed: %w", r.rec.Index, r.rec.EndAt.Format(time.RFC3339), auctionerrors.ErrRoundClosed)
	}
	return nil
}

// Admit ranks a new bid. lockFunds runs inside the critical section after the round is known
// to be accepting; if it fails nothing is admitted. The bid's SubmittedAt and Seq are assigned here.
func (r *Round) Admit(bid models.Bid, lockFunds func() error) (Admission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if err := r.acceptingLocked(now); err != nil {
		return Admission{}, err
	}
	if _, exists := r.bids[bid.BidID]; exists {
		return Admission{}, fmt.Errorf("round %d: %w - duplicate bid id %s", r.rec.Index, auctionerrors.ErrInvalidBid, bid.BidID)
	}
	if err := lockFunds(); err != nil {
		return Admission{}, err
	}

	r.stampLocked(&bid, now)
	if err := r.book.Admit(bid); err != nil {
		// unreachable: ids are checked against r.bids above
		return Admission{}, err
	}
	r.storeLocked(bid)

	extended := r.extendLocked(now)
	return Admission{
		Bid:      bid,
		Round:    r.rec,
		Extended: extended,
	}, nil
}

// Replace supersedes a pending bid of the same user with a higher one. lockDelta is asked to
// lock only the difference between the two amounts.
func (r *Round) Replace(oldBidID string, bid models.Bid, lockDelta func(delta models.Money) error) (Admission, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	if err := r.acceptingLocked(now); err != nil {
		return Admission{}, err
	}
	old, ok := r.bids[oldBidID]
	if !ok || old.UserID != bid.UserID || old.Status != models.BidPending {
		return Admission{}, fmt.Errorf("round %d: replace %s: %w", r.rec.Index, oldBidID, auctionerrors.ErrBidNotFound)
	}
	if bid.Amount <= old.Amount {
		return Admission{}, fmt.Errorf("round %d: %w - current %d, requested %d", r.rec.Index, auctionerrors.ErrBidNotHigher, old.Amount, bid.Amount)
	}
	if _, exists := r.bids[bid.BidID]; exists {
		return Admission{}, fmt.Errorf("round %d: %w - duplicate bid id %s", r.rec.Index, auctionerrors.ErrInvalidBid, bid.BidID)
	}
	if err := lockDelta(bid.Amount - old.Amount); err != nil {
		return Admission{}, err
	}

	bid.SupersedesBidID = old.BidID
	bid.PredecessorBidID = old.PredecessorBidID
	r.stampLocked(&bid, now)
	if err := r.book.Replace(old.BidID, bid); err != nil {
		return Admission{}, err
	}
	old.Status = models.BidSuperseded
	old.Version++
	r.storeLocked(bid)

	superseded := *old
	extended := r.extendLocked(now)
	return Admission{
		Bid:        bid,
		Superseded: &superseded,
		Round:      r.rec,
		Extended:   extended,
	}, nil
}

func (r *Round) stampLocked(bid *models.Bid, now time.Time) {
	bid.AuctionID = r.rec.AuctionID
	bid.Round = r.rec.Index
	bid.SubmittedAt = now
	bid.Seq = r.seq.Next()
	bid.Status = models.BidPending
	bid.Version = 1
}

func (r *Round) storeLocked(bid models.Bid) {
	stored := bid
	r.bids[bid.BidID] = &stored
	r.order = append(r.order, bid.BidID)
}

func (r *Round) extendLocked(now time.Time) bool {
	d := r.antiSnipe.Evaluate(now, r.rec.EndAt, r.rec.ExtensionsUsed)
	if !d.Extended {
		return false
	}
	r.rec.EndAt = d.EndAt
	r.rec.ExtensionsUsed = d.ExtensionsUsed
	r.rec.Version++
	return true
}

// CloseResult is the outcome of a close attempt
type CloseResult struct {
	// Settle is true when the round is in Settling and the settlement pass must run.
	Settle bool
	// Transitioned is true when this call moved the round out of Open.
	Transitioned bool
	Round        models.Round
}

// BeginClose re-reads the deadline inside the critical section. A round whose deadline has
// passed moves Open -> Closing -> Settling; a round already Settling is reported again so an
// interrupted settlement can resume. A round not yet due is left untouched.
func (r *Round) BeginClose() CloseResult {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.rec.Status {
	case models.RoundOpen:
		if r.clock.Now().Before(r.rec.EndAt) {
			return CloseResult{Round: r.rec}
		}
		r.rec.Status = models.RoundClosing
		// admissions run under r.mu, so none is in flight once we hold it
		r.rec.Status = models.RoundSettling
		r.rec.Version++
		return CloseResult{Settle: true, Transitioned: true, Round: r.rec}
	case models.RoundClosing, models.RoundSettling:
		r.rec.Status = models.RoundSettling
		return CloseResult{Settle: true, Round: r.rec}
	default:
		return CloseResult{Round: r.rec}
	}
}

// Ranked returns the round's ranking frozen at close (or live while open).
func (r *Round) Ranked() []models.Bid {
	return r.book.Ranked()
}

// TopN returns the first n ranked bids
func (r *Round) TopN(n int) []models.Bid {
	return r.book.TopN(n)
}

// Resolve moves a pending bid to a terminal status. apply runs first, inside the critical
// section; the status only changes if it succeeds. Resolving a bid that is already terminal
// is a no-op and reports changed=false.
func (r *Round) Resolve(bidID string, status models.BidStatus, apply func(bid models.Bid) error) (models.Bid, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return models.Bid{}, false, fmt.Errorf("round %d: resolve %s: %w", r.rec.Index, bidID, auctionerrors.ErrBidNotFound)
	}
	if r.rec.Status != models.RoundSettling {
		return *bid, false, fmt.Errorf("round %d is %s, not settling: %w", r.rec.Index, r.rec.Status, auctionerrors.ErrRoundClosed)
	}
	if bid.Status.Terminal() {
		return *bid, false, nil
	}
	if apply != nil {
		if err := apply(*bid); err != nil {
			return *bid, false, err
		}
	}
	bid.Status = status
	bid.Version++
	return *bid, true, nil
}

// Carry adds a bid carried over from the previous round. Funds stay locked, so no ledger call
// is made. Carrying the same predecessor twice returns the existing record with changed=false.
func (r *Round) Carry(from models.Bid, bidID string) (models.Bid, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.carried[from.BidID]; ok {
		return *r.bids[id], false, nil
	}
	if r.rec.Status != models.RoundOpen {
		return models.Bid{}, false, fmt.Errorf("round %d is %s: carry %s: %w", r.rec.Index, r.rec.Status, from.BidID, auctionerrors.ErrRoundClosed)
	}

	bid := models.Bid{
		BidID:            bidID,
		UserID:           from.UserID,
		Amount:           from.Amount,
		PredecessorBidID: from.BidID,
	}
	// carried bids lose seniority: they count as submitted when this round opened
	r.stampLocked(&bid, r.rec.OpenedAt)
	if err := r.book.Admit(bid); err != nil {
		return models.Bid{}, false, err
	}
	r.storeLocked(bid)
	r.carried[from.BidID] = bid.BidID
	return bid, true, nil
}

// Reopen restarts the deadline of a round that is still Open and has not started accepting
// bids, for example when the settlement that built it was halted and resumed later. The
// deadline becomes now plus the round duration, the extension budget is reset and carried
// bids are re-stamped with the new open time. The re-stamped bids are returned.
// It is a no-op when now is not after the current open time.
func (r *Round) Reopen(now time.Time) []models.Bid {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec.Status != models.RoundOpen || !now.After(r.rec.OpenedAt) {
		return nil
	}
	r.rec.OpenedAt = now
	r.rec.EndAt = now.Add(r.duration)
	r.rec.ExtensionsUsed = 0
	r.rec.Version++

	restamped := make([]models.Bid, 0, len(r.carried))
	book := bidbook.New()
	for _, id := range r.order {
		bid := r.bids[id]
		if bid.Status != models.BidPending {
			continue
		}
		if bid.PredecessorBidID != "" && r.carried[bid.PredecessorBidID] == bid.BidID {
			bid.SubmittedAt = now
			bid.Version++
			restamped = append(restamped, *bid)
		}
		// unreachable error: ids in r.bids are unique
		_ = book.Admit(*bid)
	}
	r.book = book
	return restamped
}

// Complete marks a settling round Closed with its outcome counts
func (r *Round) Complete(winners, carried, refunded int) (models.Round, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec.Status == models.RoundClosed {
		return r.rec, nil
	}
	if r.rec.Status != models.RoundSettling {
		return r.rec, fmt.Errorf("round %d is %s, not settling: %w", r.rec.Index, r.rec.Status, auctionerrors.ErrRoundClosed)
	}
	r.rec.Status = models.RoundClosed
	r.rec.Winners = winners
	r.rec.Carried = carried
	r.rec.Refunded = refunded
	r.rec.Version++
	return r.rec, nil
}

// Record returns a snapshot of the round
func (r *Round) Record() models.Round {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rec
}

// Bid returns a copy of one bid record
func (r *Round) Bid(bidID string) (models.Bid, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return models.Bid{}, false
	}
	return *bid, true
}

// Bids returns every bid record of the round in submission order, including terminal ones.
func (r *Round) Bids() []models.Bid {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]models.Bid, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, *r.bids[id])
	}
	return out
}

// CarriedFrom returns the bid carried into this round from predecessorID
func (r *Round) CarriedFrom(predecessorID string) (models.Bid, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.carried[predecessorID]
	if !ok {
		return models.Bid{}, false
	}
	return *r.bids[id], true
}
