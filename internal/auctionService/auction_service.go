package auction

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/events"
	"gift-auction/internal/idempotency"
	"gift-auction/internal/ledger"
	"gift-auction/internal/models"
	"gift-auction/internal/repository"
	"gift-auction/internal/round"
	"gift-auction/internal/scheduler"
	"gift-auction/internal/settlement"
	"gift-auction/utils"

	"github.com/benbjohnson/clock"
)

// Options wires the service's collaborators. Zero fields get in-memory defaults.
type Options struct {
	Clock       clock.Clock
	Ledger      *ledger.Ledger
	Store       repository.Store
	Idempotency idempotency.Store
	Sink        events.Sink
}

// AuctionService owns every auction's round sequence and exposes the public contract.
type AuctionService struct {
	clock  clock.Clock
	ledger *ledger.Ledger
	engine *settlement.Engine
	store  repository.Store
	idem   idempotency.Store
	sink   events.Sink
	sched  *scheduler.Scheduler
	newID  func() string

	mu       sync.RWMutex
	auctions map[string]*auctionState
}

// auctionState is one auction. Bid admission holds mu shared for the whole admission, round
// transitions hold it exclusively, so no bid can land in a round while it is being settled
// or replaced by the next one.
type auctionState struct {
	mu     sync.RWMutex
	rec    models.Auction
	plan   []models.RoundConfig
	seq    *round.Sequencer
	rounds []*round.Round
	// next is the round being filled with carried bids by an unfinished settlement
	next *round.Round
}

func (st *auctionState) current() *round.Round {
	if len(st.rounds) == 0 {
		return nil
	}
	return st.rounds[len(st.rounds)-1]
}

// NewAuctionService creates the service and its deadline scheduler
func NewAuctionService(opts Options) *AuctionService {
	if opts.Clock == nil {
		opts.Clock = clock.New()
	}
	if opts.Ledger == nil {
		opts.Ledger = ledger.New()
	}
	if opts.Store == nil {
		opts.Store = repository.NewMemoryRepo()
	}
	if opts.Idempotency == nil {
		opts.Idempotency = idempotency.NewMemoryStore(opts.Clock, 24*time.Hour)
	}
	if opts.Sink == nil {
		opts.Sink = events.LogSink{}
	}

	s := &AuctionService{
		clock:    opts.Clock,
		ledger:   opts.Ledger,
		engine:   settlement.NewEngine(opts.Ledger),
		store:    opts.Store,
		idem:     opts.Idempotency,
		sink:     opts.Sink,
		newID:    utils.GenerateID,
		auctions: make(map[string]*auctionState),
	}
	s.sched = scheduler.New(opts.Clock, s.onDeadline)
	return s
}

// Stop disarms all round timers. In-flight settlements finish first.
func (s *AuctionService) Stop() {
	s.sched.Stop()
}

func (s *AuctionService) lookup(auctionID string) (*auctionState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("service: auction %s: %w", auctionID, auctionerrors.ErrAuctionNotFound)
	}
	return st, nil
}

// CreateAuction validates cfg and registers the auction. Round 1 opens now, or at cfg.StartAt
// when that lies in the future.
func (s *AuctionService) CreateAuction(ctx context.Context, cfg models.AuctionConfig) (models.Auction, error) {
	if err := cfg.Validate(); err != nil {
		return models.Auction{}, fmt.Errorf("service: create auction: %w", err)
	}

	now := s.clock.Now()
	plan := cfg.Plan()
	st := &auctionState{
		rec: models.Auction{
			AuctionID:   s.newID(),
			Title:       cfg.Title,
			Config:      cfg,
			Status:      models.AuctionPending,
			TotalRounds: len(plan),
			CreatedAt:   now,
			Version:     1,
		},
		plan: plan,
		seq:  &round.Sequencer{},
	}

	b := &batch{}
	st.mu.Lock()
	if cfg.StartAt.After(now) {
		b.auction(st.rec)
		s.sched.Schedule(scheduler.Target{AuctionID: st.rec.AuctionID, Deadline: cfg.StartAt})
	} else {
		s.openRoundLocked(st, s.newRound(st, 1, plan[0].Gifts), b)
	}
	rec := st.rec
	// registered before st.mu is released so an early deadline finds the auction
	s.mu.Lock()
	s.auctions[rec.AuctionID] = st
	s.mu.Unlock()
	st.mu.Unlock()

	s.flush(ctx, b)
	utils.Info("service: auction created", map[string]any{
		"auction_id":  rec.AuctionID,
		"total_gifts": cfg.TotalGifts,
		"rounds":      len(plan),
		"status":      rec.Status,
	})
	return rec, nil
}

func validateBid(userID string, amount models.Money) error {
	if userID == "" {
		return fmt.Errorf("service: %w - missing user id", auctionerrors.ErrInvalidBid)
	}
	if amount <= 0 {
		return fmt.Errorf("service: %w - non-positive bid amount", auctionerrors.ErrInvalidBid)
	}
	return nil
}

// acceptingLocked returns the round open for bids. Callers hold st.mu.
func acceptingLocked(st *auctionState) (*round.Round, error) {
	if st.rec.Halted {
		return nil, fmt.Errorf("service: auction %s: %w: %w", st.rec.AuctionID, auctionerrors.ErrAuctionHalted, auctionerrors.ErrAuctionNotActive)
	}
	if st.rec.Status != models.AuctionActive {
		return nil, fmt.Errorf("service: auction %s is %s: %w", st.rec.AuctionID, st.rec.Status, auctionerrors.ErrAuctionNotActive)
	}
	return st.current(), nil
}

// SubmitBid locks amount from the user's balance and ranks a new bid in the current round.
// A non-empty idempotencyKey makes retries of the same request return the original bid.
// ctx is only honoured until the round accepts the bid.
func (s *AuctionService) SubmitBid(ctx context.Context, auctionID, userID string, amount models.Money, idempotencyKey string) (models.Bid, error) {
	if err := validateBid(userID, amount); err != nil {
		return models.Bid{}, err
	}
	st, err := s.lookup(auctionID)
	if err != nil {
		return models.Bid{}, err
	}

	if idempotencyKey != "" {
		hash := idempotency.RequestHash(auctionID, userID, strconv.FormatInt(int64(amount), 10))
		rec, err := s.idem.Reserve(ctx, idempotencyKey, hash)
		if err != nil {
			return models.Bid{}, fmt.Errorf("service: submit bid: %w", err)
		}
		if rec.Done {
			return s.findBid(st, rec.BidID)
		}
	}

	bid, adm, err := s.admit(ctx, st, userID, amount)
	if err != nil {
		if idempotencyKey != "" {
			if relErr := s.idem.Release(context.WithoutCancel(ctx), idempotencyKey); relErr != nil {
				utils.Warn("service: failed to release idempotency key", map[string]any{"key": idempotencyKey, "error": relErr.Error()})
			}
		}
		s.reject(ctx, auctionID, adm.Round.Index, models.Bid{UserID: userID, Amount: amount}, err)
		return models.Bid{}, err
	}

	if idempotencyKey != "" {
		if err := s.idem.Complete(context.WithoutCancel(ctx), idempotencyKey, bid.BidID); err != nil {
			utils.Error("service: failed to complete idempotency key", map[string]any{"key": idempotencyKey, "bid_id": bid.BidID, "error": err.Error()})
		}
	}
	s.afterAdmission(ctx, st, adm)
	return bid, nil
}

func (s *AuctionService) admit(ctx context.Context, st *auctionState, userID string, amount models.Money) (models.Bid, round.Admission, error) {
	if err := ctx.Err(); err != nil {
		return models.Bid{}, round.Admission{}, fmt.Errorf("service: submit bid: %w", err)
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	cur, err := acceptingLocked(st)
	if err != nil {
		return models.Bid{}, round.Admission{}, err
	}
	if amount < st.rec.Config.MinBid {
		return models.Bid{}, round.Admission{Round: cur.Record()}, fmt.Errorf("service: %w - minimum is %d, got %d", auctionerrors.ErrBelowMinBid, st.rec.Config.MinBid, amount)
	}

	adm, err := cur.Admit(models.Bid{BidID: s.newID(), UserID: userID, Amount: amount}, func() error {
		return s.ledger.Lock(userID, amount)
	})
	if err != nil {
		return models.Bid{}, round.Admission{Round: cur.Record()}, fmt.Errorf("service: submit bid for user %s in auction %s: %w", userID, st.rec.AuctionID, err)
	}
	return adm.Bid, adm, nil
}

// IncreaseBid supersedes one of the user's pending bids in the current round with a higher one.
// Only the difference is locked.
func (s *AuctionService) IncreaseBid(ctx context.Context, auctionID, userID, bidID string, newAmount models.Money) (models.Bid, error) {
	if err := validateBid(userID, newAmount); err != nil {
		return models.Bid{}, err
	}
	st, err := s.lookup(auctionID)
	if err != nil {
		return models.Bid{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.Bid{}, fmt.Errorf("service: increase bid: %w", err)
	}

	adm, err := func() (round.Admission, error) {
		st.mu.RLock()
		defer st.mu.RUnlock()

		cur, err := acceptingLocked(st)
		if err != nil {
			return round.Admission{}, err
		}
		adm, err := cur.Replace(bidID, models.Bid{BidID: s.newID(), UserID: userID, Amount: newAmount}, func(delta models.Money) error {
			return s.ledger.Lock(userID, delta)
		})
		if err != nil {
			return round.Admission{Round: cur.Record()}, fmt.Errorf("service: increase bid %s for user %s: %w", bidID, userID, err)
		}
		return adm, nil
	}()
	if err != nil {
		s.reject(ctx, auctionID, adm.Round.Index, models.Bid{BidID: bidID, UserID: userID, Amount: newAmount}, err)
		return models.Bid{}, err
	}

	s.afterAdmission(ctx, st, adm)
	return adm.Bid, nil
}

func (s *AuctionService) afterAdmission(ctx context.Context, st *auctionState, adm round.Admission) {
	b := &batch{}
	if adm.Superseded != nil {
		b.bid(*adm.Superseded)
	}
	b.bid(adm.Bid)
	b.user(adm.Bid.UserID)
	b.event(events.Event{
		Type:      events.BidAdmitted,
		AuctionID: adm.Bid.AuctionID,
		Round:     adm.Bid.Round,
		BidID:     adm.Bid.BidID,
		UserID:    adm.Bid.UserID,
		Amount:    adm.Bid.Amount,
	})
	if adm.Extended {
		b.round(adm.Round)
		b.event(events.Event{
			Type:           events.RoundExtended,
			AuctionID:      adm.Round.AuctionID,
			Round:          adm.Round.Index,
			EndAt:          adm.Round.EndAt,
			ExtensionsUsed: adm.Round.ExtensionsUsed,
		})
		s.sched.Schedule(scheduler.Target{AuctionID: adm.Round.AuctionID, Round: adm.Round.Index, Deadline: adm.Round.EndAt})
	}
	s.flush(ctx, b)
}

func (s *AuctionService) reject(ctx context.Context, auctionID string, roundIndex int, bid models.Bid, err error) {
	b := &batch{}
	b.event(events.Event{
		Type:      events.BidRejected,
		AuctionID: auctionID,
		Round:     roundIndex,
		BidID:     bid.BidID,
		UserID:    bid.UserID,
		Amount:    bid.Amount,
		Reason:    events.RejectReason(err),
	})
	s.flush(ctx, b)
}

func (s *AuctionService) findBid(st *auctionState, bidID string) (models.Bid, error) {
	st.mu.RLock()
	defer st.mu.RUnlock()

	for _, r := range st.rounds {
		if b, ok := r.Bid(bidID); ok {
			return b, nil
		}
	}
	return models.Bid{}, fmt.Errorf("service: bid %s: %w", bidID, auctionerrors.ErrBidNotFound)
}

// Deposit credits a user's balance and raises total issued
func (s *AuctionService) Deposit(ctx context.Context, userID string, amount models.Money) (models.LedgerEntry, error) {
	if userID == "" {
		return models.LedgerEntry{}, fmt.Errorf("service: %w - missing user id", auctionerrors.ErrInvalidBid)
	}
	if err := s.ledger.Deposit(userID, amount); err != nil {
		return models.LedgerEntry{}, fmt.Errorf("service: deposit for user %s: %w", userID, err)
	}
	b := &batch{}
	b.user(userID)
	s.flush(ctx, b)

	utils.Info("service: deposit applied", map[string]any{"user_id": userID, "amount": amount})
	return s.GetBalance(userID)
}

// GetBalance returns the user's ledger entry
func (s *AuctionService) GetBalance(userID string) (models.LedgerEntry, error) {
	entry, err := s.ledger.Entry(userID)
	if err != nil {
		return models.LedgerEntry{}, fmt.Errorf("service: balance: %w", err)
	}
	return entry, nil
}

// AuditBalances checks the global ledger invariant from one atomic view
func (s *AuctionService) AuditBalances() models.AuditReport {
	report := s.ledger.Audit()
	if !report.OK {
		utils.Error("ALARM: ledger audit failed", map[string]any{
			"sum":          report.Sum,
			"expected_sum": report.ExpectedSum,
		})
	}
	return report
}

// GetStatus returns the auction, its current round and the bids currently in winning position.
func (s *AuctionService) GetStatus(auctionID string) (models.StatusSnapshot, error) {
	st, err := s.lookup(auctionID)
	if err != nil {
		return models.StatusSnapshot{}, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()
	return snapshotLocked(st), nil
}

func snapshotLocked(st *auctionState) models.StatusSnapshot {
	snap := models.StatusSnapshot{Auction: st.rec, TopBids: []models.Bid{}}
	if cur := st.current(); cur != nil {
		rec := cur.Record()
		snap.Round = &rec
		snap.TopBids = cur.TopN(rec.GiftsAllocated)
	}
	return snap
}

// ListBids returns every bid record of the auction in submission order, terminal ones included.
func (s *AuctionService) ListBids(auctionID string) ([]models.Bid, error) {
	st, err := s.lookup(auctionID)
	if err != nil {
		return nil, err
	}

	st.mu.RLock()
	defer st.mu.RUnlock()

	var out []models.Bid
	for _, r := range st.rounds {
		out = append(out, r.Bids()...)
	}
	if st.next != nil {
		out = append(out, st.next.Bids()...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

// ResumeSettlement re-runs the interrupted settlement of a halted auction. For an auction
// that is not halted it only returns the current status.
func (s *AuctionService) ResumeSettlement(ctx context.Context, auctionID string) (models.StatusSnapshot, error) {
	st, err := s.lookup(auctionID)
	if err != nil {
		return models.StatusSnapshot{}, err
	}

	b := &batch{}
	st.mu.Lock()
	if !st.rec.Halted {
		snap := snapshotLocked(st)
		st.mu.Unlock()
		return snap, nil
	}

	st.rec.Halted = false
	st.rec.Version++
	b.event(events.Event{Type: events.AuctionResumed, AuctionID: auctionID, Round: st.rec.CurrentRound})
	utils.Warn("service: resuming halted settlement", map[string]any{"auction_id": auctionID, "round": st.rec.CurrentRound})

	err = s.settleLocked(st, st.current(), b)
	snap := snapshotLocked(st)
	st.mu.Unlock()

	s.flush(ctx, b)
	return snap, err
}
