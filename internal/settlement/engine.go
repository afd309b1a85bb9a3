package settlement

import (
	"fmt"

	"gift-auction/internal/models"
	"gift-auction/internal/round"
	"gift-auction/utils"
)

// Ledger is the part of the ledger settlement needs
type Ledger interface {
	Unlock(userID string, amount models.Money) error
	SettleWin(userID string, amount models.Money) error
}

// Engine turns a settling round's ranking into Won, Carried and Refunded outcomes.
type Engine struct {
	ledger Ledger
	newID  func() string
}

// NewEngine creates an engine that issues carried bid ids with utils.GenerateID
func NewEngine(ledger Ledger) *Engine {
	return &Engine{ledger: ledger, newID: utils.GenerateID}
}

// Outcome is the result of one settlement pass
type Outcome struct {
	Round    models.Round
	Winners  []models.Bid
	Refunded []models.Bid
	// Carried holds the new bids created in the next round
	Carried []models.Bid
	// Changed holds every bid record this pass modified or created
	Changed        []models.Bid
	UnawardedGifts int
}

// Settle runs the settlement pass over cur. next receives carried bids and must be nil
// for the final round. Every step is idempotent: bids already resolved are skipped, so a
// pass interrupted by an error can simply be run again.
func (e *Engine) Settle(cur, next *round.Round) (Outcome, error) {
	rec := cur.Record()
	if rec.Status == models.RoundClosed {
		return e.replay(cur, next, rec), nil
	}

	final := rec.Final || next == nil
	ranked := cur.Ranked()
	n := min(rec.GiftsAllocated, len(ranked))
	out := Outcome{UnawardedGifts: rec.GiftsAllocated - n}

	for _, b := range ranked[:n] {
		bid, changed, err := cur.Resolve(b.BidID, models.BidWon, func(bid models.Bid) error {
			return e.ledger.SettleWin(bid.UserID, bid.Amount)
		})
		if err != nil {
			return out, fmt.Errorf("settlement: round %d: win %s: %w", rec.Index, b.BidID, err)
		}
		out.Winners = append(out.Winners, bid)
		if changed {
			out.Changed = append(out.Changed, bid)
		}
	}

	for _, b := range ranked[n:] {
		if final {
			bid, changed, err := cur.Resolve(b.BidID, models.BidRefunded, func(bid models.Bid) error {
				return e.ledger.Unlock(bid.UserID, bid.Amount)
			})
			if err != nil {
				return out, fmt.Errorf("settlement: round %d: refund %s: %w", rec.Index, b.BidID, err)
			}
			out.Refunded = append(out.Refunded, bid)
			if changed {
				out.Changed = append(out.Changed, bid)
			}
			continue
		}

		// funds stay locked; the claim moves to a new record in the next round
		var carried models.Bid
		var created bool
		bid, changed, err := cur.Resolve(b.BidID, models.BidCarried, func(bid models.Bid) error {
			var err error
			carried, created, err = next.Carry(bid, e.newID())
			return err
		})
		if err != nil {
			return out, fmt.Errorf("settlement: round %d: carry %s: %w", rec.Index, b.BidID, err)
		}
		if !changed {
			// resolved by an earlier pass; Carry is keyed by predecessor so this returns the same record
			if carried, created, err = next.Carry(bid, e.newID()); err != nil {
				return out, fmt.Errorf("settlement: round %d: carry %s: %w", rec.Index, b.BidID, err)
			}
		} else {
			out.Changed = append(out.Changed, bid)
		}
		out.Carried = append(out.Carried, carried)
		if created {
			out.Changed = append(out.Changed, carried)
		}
	}

	closed, err := cur.Complete(len(out.Winners), len(out.Carried), len(out.Refunded))
	if err != nil {
		return out, fmt.Errorf("settlement: round %d: %w", rec.Index, err)
	}
	out.Round = closed
	return out, nil
}

// replay rebuilds the outcome of an already closed round without touching the ledger.
func (e *Engine) replay(cur, next *round.Round, rec models.Round) Outcome {
	out := Outcome{Round: rec}
	awarded := 0
	for _, bid := range cur.Bids() {
		switch bid.Status {
		case models.BidWon:
			awarded++
			out.Winners = append(out.Winners, bid)
		case models.BidRefunded:
			out.Refunded = append(out.Refunded, bid)
		case models.BidCarried:
			if next == nil {
				continue
			}
			if carried, ok := next.CarriedFrom(bid.BidID); ok {
				out.Carried = append(out.Carried, carried)
			}
		}
	}
	out.UnawardedGifts = rec.GiftsAllocated - awarded
	return out
}
