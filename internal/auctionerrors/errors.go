package auctionerrors

import "errors"

// Lookup errors
var (
	ErrAuctionNotFound = errors.New("auction not found")
	ErrBidNotFound     = errors.New("bid not found")
	ErrUserNotFound    = errors.New("user not found")
)

// Bid admission errors. All of them leave state unchanged.
var (
	ErrInvalidBid        = errors.New("invalid bid")
	ErrBelowMinBid       = errors.New("bid below minimum")
	ErrBidNotHigher      = errors.New("bid increase must exceed current amount")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrRoundClosed       = errors.New("round closed")
	ErrAuctionNotActive  = errors.New("auction not active")
)

// ErrAuctionHalted is returned for auctions stopped after an invariant violation.
// It is always wrapped together with ErrAuctionNotActive.
var ErrAuctionHalted = errors.New("auction halted")

// ErrInvariantViolation means the ledger bookkeeping is broken. It is fatal for the affected auction.
var ErrInvariantViolation = errors.New("ledger invariant violation")

var ErrInvalidConfig = errors.New("invalid auction config")

// Idempotency and persistence errors
var (
	ErrIdempotencyConflict = errors.New("request with this idempotency key is in progress")
	ErrIdempotencyMismatch = errors.New("idempotency key reused with different payload")
	ErrVersionConflict     = errors.New("record version conflict")
)
