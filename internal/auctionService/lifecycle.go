package auction

import (
	"context"
	"errors"
	"fmt"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/events"
	"gift-auction/internal/models"
	"gift-auction/internal/round"
	"gift-auction/internal/scheduler"
	"gift-auction/utils"
)

func (s *AuctionService) newRound(st *auctionState, index, gifts int) *round.Round {
	return round.New(round.Params{
		AuctionID: st.rec.AuctionID,
		Index:     index,
		Final:     index == len(st.plan),
		Gifts:     gifts,
		Config:    st.plan[index-1],
		Clock:     s.clock,
		Sequencer: st.seq,
	})
}

// openRoundLocked makes r the current round and arms its deadline. Callers hold st.mu exclusively.
func (s *AuctionService) openRoundLocked(st *auctionState, r *round.Round, b *batch) {
	// a round built by a halted settlement opens with a fresh deadline
	for _, bid := range r.Reopen(s.clock.Now()) {
		b.bid(bid)
	}
	rec := r.Record()
	st.rounds = append(st.rounds, r)
	st.rec.Status = models.AuctionActive
	st.rec.CurrentRound = rec.Index
	st.rec.Version++

	b.auction(st.rec)
	b.round(rec)
	b.event(events.Event{
		Type:      events.RoundOpened,
		AuctionID: rec.AuctionID,
		Round:     rec.Index,
		EndAt:     rec.EndAt,
	})
	s.sched.Schedule(scheduler.Target{AuctionID: rec.AuctionID, Round: rec.Index, Deadline: rec.EndAt})
}

func (s *AuctionService) onDeadline(t scheduler.Target) {
	if err := s.advance(context.Background(), t.AuctionID); err != nil {
		utils.Error("service: round transition failed", map[string]any{
			"auction_id": t.AuctionID,
			"round":      t.Round,
			"error":      err.Error(),
		})
	}
}

// advance performs whatever transition is due for the auction: opening round 1 of a scheduled
// auction, or closing and settling the current round. The deadline is re-read under the
// round's lock, so a timer armed before an extension only re-arms itself.
func (s *AuctionService) advance(ctx context.Context, auctionID string) error {
	st, err := s.lookup(auctionID)
	if err != nil {
		return err
	}

	b := &batch{}
	defer s.flush(ctx, b)

	st.mu.Lock()
	defer st.mu.Unlock()

	if st.rec.Halted || st.rec.Status == models.AuctionClosed {
		return nil
	}

	if st.rec.Status == models.AuctionPending {
		if s.clock.Now().Before(st.rec.Config.StartAt) {
			s.sched.Schedule(scheduler.Target{AuctionID: auctionID, Deadline: st.rec.Config.StartAt})
			return nil
		}
		s.openRoundLocked(st, s.newRound(st, 1, st.plan[0].Gifts), b)
		return nil
	}

	cur := st.current()
	res := cur.BeginClose()
	if !res.Settle {
		if res.Round.Status == models.RoundOpen {
			s.sched.Schedule(scheduler.Target{AuctionID: auctionID, Round: res.Round.Index, Deadline: res.Round.EndAt})
		}
		return nil
	}
	if res.Transitioned {
		b.round(res.Round)
		b.event(events.Event{
			Type:           events.RoundClosed,
			AuctionID:      auctionID,
			Round:          res.Round.Index,
			EndAt:          res.Round.EndAt,
			ExtensionsUsed: res.Round.ExtensionsUsed,
		})
	}
	return s.settleLocked(st, cur, b)
}

// settleLocked runs the settlement pass over cur and, on success, opens the next round or closes
// the auction. Any failure halts the auction until ResumeSettlement. Callers hold st.mu exclusively.
func (s *AuctionService) settleLocked(st *auctionState, cur *round.Round, b *batch) error {
	rec := cur.Record()

	var next *round.Round
	if !rec.Final {
		if st.next == nil {
			gifts := st.plan[rec.Index].Gifts
			// gifts nobody could win roll over
			if pending := len(cur.Ranked()); pending < rec.GiftsAllocated {
				gifts += rec.GiftsAllocated - pending
			}
			st.next = s.newRound(st, rec.Index+1, gifts)
		}
		next = st.next
	}

	out, err := s.engine.Settle(cur, next)
	for _, bid := range out.Changed {
		b.bid(bid)
	}
	for _, bid := range out.Winners {
		b.user(bid.UserID)
	}
	for _, bid := range out.Refunded {
		b.user(bid.UserID)
	}
	if err != nil {
		s.haltLocked(st, rec.Index, err, b)
		return fmt.Errorf("service: settle round %d of auction %s: %w", rec.Index, st.rec.AuctionID, err)
	}

	st.rec.GiftsAwarded += len(out.Winners)
	b.round(out.Round)
	b.event(events.Event{
		Type:      events.SettlementCompleted,
		AuctionID: st.rec.AuctionID,
		Round:     rec.Index,
		Winners:   len(out.Winners),
		Carried:   len(out.Carried),
		Refunded:  len(out.Refunded),
	})
	utils.Info("service: round settled", map[string]any{
		"auction_id":      st.rec.AuctionID,
		"round":           rec.Index,
		"winners":         len(out.Winners),
		"carried":         len(out.Carried),
		"refunded":        len(out.Refunded),
		"unawarded_gifts": out.UnawardedGifts,
	})

	if next != nil {
		st.next = nil
		s.openRoundLocked(st, next, b)
		return nil
	}

	st.rec.Status = models.AuctionClosed
	st.rec.ClosedAt = s.clock.Now()
	st.rec.Version++
	b.auction(st.rec)
	b.event(events.Event{Type: events.AuctionClosed, AuctionID: st.rec.AuctionID, Round: rec.Index})
	s.sched.Cancel(st.rec.AuctionID)
	return nil
}

func (s *AuctionService) haltLocked(st *auctionState, roundIndex int, cause error, b *batch) {
	st.rec.Halted = true
	st.rec.Version++
	b.auction(st.rec)
	b.event(events.Event{
		Type:      events.AuctionHalted,
		AuctionID: st.rec.AuctionID,
		Round:     roundIndex,
		Reason:    cause.Error(),
	})
	s.sched.Cancel(st.rec.AuctionID)

	fields := map[string]any{"auction_id": st.rec.AuctionID, "round": roundIndex, "error": cause.Error()}
	if errors.Is(cause, auctionerrors.ErrInvariantViolation) {
		utils.Error("ALARM: ledger invariant violated during settlement, auction halted", fields)
		return
	}
	utils.Error("service: settlement failed, auction halted", fields)
}

// batch collects journal writes and events produced under an auction lock. They are flushed
// after the lock is released.
type batch struct {
	auctions []models.Auction
	rounds   []models.Round
	bids     []models.Bid
	users    []string
	events   []events.Event
}

func (b *batch) auction(a models.Auction) { b.auctions = append(b.auctions, a) }
func (b *batch) round(r models.Round)     { b.rounds = append(b.rounds, r) }
func (b *batch) bid(bid models.Bid)       { b.bids = append(b.bids, bid) }
func (b *batch) user(id string)           { b.users = append(b.users, id) }
func (b *batch) event(e events.Event)     { b.events = append(b.events, e) }

// flush writes the batch to the journal and emits its events. The in-memory state is
// authoritative: failures are logged, never returned.
func (s *AuctionService) flush(ctx context.Context, b *batch) {
	ctx = context.WithoutCancel(ctx)

	for _, a := range b.auctions {
		s.journal("auction", a.AuctionID, s.store.SaveAuction(ctx, a))
	}
	for _, r := range b.rounds {
		s.journal("round", fmt.Sprintf("%s/%d", r.AuctionID, r.Index), s.store.SaveRound(ctx, r))
	}
	for _, bid := range b.bids {
		s.journal("bid", bid.BidID, s.store.SaveBid(ctx, bid))
	}
	seen := make(map[string]bool, len(b.users))
	for _, id := range b.users {
		if seen[id] {
			continue
		}
		seen[id] = true
		entry, err := s.ledger.Entry(id)
		if err != nil {
			s.journal("ledger entry", id, err)
			continue
		}
		s.journal("ledger entry", id, s.store.SaveLedgerEntry(ctx, entry))
	}

	now := s.clock.Now()
	for _, e := range b.events {
		if e.At.IsZero() {
			e.At = now
		}
		if err := s.sink.Emit(ctx, e); err != nil {
			utils.Warn("service: event delivery failed", map[string]any{
				"event":      string(e.Type),
				"auction_id": e.AuctionID,
				"error":      err.Error(),
			})
		}
	}
}

func (s *AuctionService) journal(kind, id string, err error) {
	if err == nil {
		return
	}
	fields := map[string]any{"kind": kind, "id": id, "error": err.Error()}
	if errors.Is(err, auctionerrors.ErrVersionConflict) {
		// a newer version of the record was written first
		utils.Debug("service: stale journal write skipped", fields)
		return
	}
	utils.Error("service: journal write failed", fields)
}
