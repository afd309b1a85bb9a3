package events

import (
	"context"
	"errors"
	"time"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/models"
)

type Type string

const (
	RoundOpened         Type = "round_opened"
	RoundExtended       Type = "round_extended"
	RoundClosed         Type = "round_closed"
	BidAdmitted         Type = "bid_admitted"
	BidRejected         Type = "bid_rejected"
	SettlementCompleted Type = "settlement_completed"
	AuctionHalted       Type = "auction_halted"
	AuctionResumed      Type = "auction_resumed"
	AuctionClosed       Type = "auction_closed"
)

// Event is one outbound notification. Fields irrelevant to the type are left zero.
type Event struct {
	Type      Type      `json:"type"`
	AuctionID string    `json:"auction_id"`
	Round     int       `json:"round,omitempty"`
	At        time.Time `json:"at"`

	BidID  string       `json:"bid_id,omitempty"`
	UserID string       `json:"user_id,omitempty"`
	Amount models.Money `json:"amount,omitempty"`
	Reason string       `json:"reason,omitempty"`

	EndAt          time.Time `json:"end_at,omitzero"`
	ExtensionsUsed int       `json:"extensions_used,omitempty"`

	Winners  int `json:"winners,omitempty"`
	Carried  int `json:"carried,omitempty"`
	Refunded int `json:"refunded,omitempty"`
}

// Sink receives events after the state change they describe is complete.
type Sink interface {
	Emit(ctx context.Context, e Event) error
}

// Multi fans an event out to every sink and joins their errors.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Emit(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event
type Discard struct{}

func (Discard) Emit(context.Context, Event) error { return nil }

// RejectReason turns a submission error into a short label for BidRejected events.
func RejectReason(err error) string {
	switch {
	case errors.Is(err, auctionerrors.ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, auctionerrors.ErrBelowMinBid):
		return "below_min_bid"
	case errors.Is(err, auctionerrors.ErrRoundClosed):
		return "round_closed"
	case errors.Is(err, auctionerrors.ErrAuctionHalted):
		return "auction_halted"
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return "auction_not_active"
	case errors.Is(err, auctionerrors.ErrBidNotHigher):
		return "bid_not_higher"
	case errors.Is(err, auctionerrors.ErrBidNotFound):
		return "bid_not_found"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return "invalid_bid"
	case errors.Is(err, auctionerrors.ErrIdempotencyConflict), errors.Is(err, auctionerrors.ErrIdempotencyMismatch):
		return "idempotency"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "other"
	}
}
