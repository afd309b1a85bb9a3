package models

import "time"

// Money is an amount in minor currency units (cents). Amounts are never floating point.
type Money int64

type AuctionStatus string

const (
	AuctionPending AuctionStatus = "pending"
	AuctionActive  AuctionStatus = "active"
	AuctionClosed  AuctionStatus = "closed"
)

type RoundStatus string

const (
	RoundOpen     RoundStatus = "open"
	RoundClosing  RoundStatus = "closing"
	RoundSettling RoundStatus = "settling"
	RoundClosed   RoundStatus = "closed"
)

type BidStatus string

const (
	BidPending    BidStatus = "pending"
	BidWon        BidStatus = "won"
	BidCarried    BidStatus = "carried"
	BidRefunded   BidStatus = "refunded"
	BidSuperseded BidStatus = "superseded"
)

// Terminal reports whether the bid no longer holds a claim in its round.
func (s BidStatus) Terminal() bool {
	return s != BidPending
}

// Auction is the persisted view of one auction
type Auction struct {
	AuctionID    string        `json:"auction_id"`
	Title        string        `json:"title"`
	Config       AuctionConfig `json:"config"`
	Status       AuctionStatus `json:"status"`
	CurrentRound int           `json:"current_round"`
	TotalRounds  int           `json:"total_rounds"`
	GiftsAwarded int           `json:"gifts_awarded"`
	Halted       bool          `json:"halted"`
	CreatedAt    time.Time     `json:"created_at"`
	ClosedAt     time.Time     `json:"closed_at,omitzero"`
	Version      int64         `json:"version"`
}

// Round is the persisted view of one round
type Round struct {
	AuctionID      string      `json:"auction_id"`
	Index          int         `json:"index"`
	Final          bool        `json:"final"`
	GiftsAllocated int         `json:"gifts_allocated"`
	OpenedAt       time.Time   `json:"opened_at"`
	EndAt          time.Time   `json:"end_at"`
	ExtensionsUsed int         `json:"extensions_used"`
	MaxExtensions  int         `json:"max_extensions"`
	Status         RoundStatus `json:"status"`
	Winners        int         `json:"winners"`
	Carried        int         `json:"carried"`
	Refunded       int         `json:"refunded"`
	Version        int64       `json:"version"`
}

// Bid is a single claim against a round. Amount never changes after creation.
type Bid struct {
	BidID            string    `json:"bid_id"`
	AuctionID        string    `json:"auction_id"`
	Round            int       `json:"round"`
	UserID           string    `json:"user_id"`
	Amount           Money     `json:"amount"`
	SubmittedAt      time.Time `json:"submitted_at"`
	Seq              uint64    `json:"seq"`
	Status           BidStatus `json:"status"`
	PredecessorBidID string    `json:"predecessor_bid_id,omitempty"`
	SupersedesBidID  string    `json:"supersedes_bid_id,omitempty"`
	Version          int64     `json:"version"`
}

// LedgerEntry is the per-user balance record
type LedgerEntry struct {
	UserID  string `json:"user_id"`
	Balance Money  `json:"balance"`
	Locked  Money  `json:"locked"`
	Won     Money  `json:"won"`
	Version int64  `json:"version"`
}

// AuditReport is the result of checking balance + locked + prizes against total issued.
type AuditReport struct {
	TotalBalances Money `json:"total_balances"`
	TotalLocked   Money `json:"total_locked"`
	TotalPrizes   Money `json:"total_prizes"`
	Sum           Money `json:"sum"`
	ExpectedSum   Money `json:"expected_sum"`
	OK            bool  `json:"ok"`
}

// StatusSnapshot is the read-only view returned by GetStatus
type StatusSnapshot struct {
	Auction Auction `json:"auction"`
	Round   *Round  `json:"round,omitempty"`
	TopBids []Bid   `json:"top_bids"`
}
