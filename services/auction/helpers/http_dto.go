package helpers

import (
	"time"

	"gift-auction/internal/models"
)

// Request/Response DTOs. Amounts travel as decimal strings such as "12.50".

type RoundRequest struct {
	Gifts                       int `json:"gifts" binding:"required,gt=0"`
	DurationSeconds             int `json:"duration_seconds" binding:"required,gt=0"`
	AntiSnipingWindowSeconds    int `json:"anti_sniping_window_seconds" binding:"gte=0"`
	AntiSnipingExtensionSeconds int `json:"anti_sniping_extension_seconds" binding:"gte=0"`
	MaxAntiSnipingExtensions    int `json:"max_anti_sniping_extensions" binding:"gte=0"`
}

// CreateAuctionRequest leaves duration and anti-sniping fields nil to use the server defaults.
// Without rounds, a zero gifts_per_round puts every gift in one round.
type CreateAuctionRequest struct {
	Title                       string         `json:"title" binding:"required"`
	TotalGifts                  int            `json:"total_gifts" binding:"required,gt=0"`
	GiftsPerRound               int            `json:"gifts_per_round" binding:"gte=0"`
	MinBid                      string         `json:"min_bid"`
	RoundDurationSeconds        *int           `json:"round_duration_seconds" binding:"omitempty,gt=0"`
	AntiSnipingWindowSeconds    *int           `json:"anti_sniping_window_seconds" binding:"omitempty,gte=0"`
	AntiSnipingExtensionSeconds *int           `json:"anti_sniping_extension_seconds" binding:"omitempty,gte=0"`
	MaxAntiSnipingExtensions    *int           `json:"max_anti_sniping_extensions" binding:"omitempty,gte=0"`
	StartAt                     *time.Time     `json:"start_at"`
	Rounds                      []RoundRequest `json:"rounds" binding:"omitempty,dive"`
}

type PlaceBidRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

type IncreaseBidRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Amount string `json:"amount" binding:"required"`
}

type DepositRequest struct {
	Amount string `json:"amount" binding:"required"`
}

type BidResponse struct {
	BidID            string `json:"bid_id"`
	AuctionID        string `json:"auction_id"`
	Round            int    `json:"round"`
	UserID           string `json:"user_id"`
	Amount           string `json:"amount"`
	Status           string `json:"status"`
	SubmittedAt      string `json:"submitted_at"`
	PredecessorBidID string `json:"predecessor_bid_id,omitempty"`
	SupersedesBidID  string `json:"supersedes_bid_id,omitempty"`
}

type RoundResponse struct {
	Index          int    `json:"index"`
	Status         string `json:"status"`
	Final          bool   `json:"final"`
	GiftsAllocated int    `json:"gifts_allocated"`
	OpenedAt       string `json:"opened_at"`
	EndAt          string `json:"end_at"`
	ExtensionsUsed int    `json:"extensions_used"`
	MaxExtensions  int    `json:"max_extensions"`
}

type AuctionResponse struct {
	AuctionID    string         `json:"auction_id"`
	Title        string         `json:"title"`
	Status       string         `json:"status"`
	Halted       bool           `json:"halted"`
	CurrentRound int            `json:"current_round"`
	TotalRounds  int            `json:"total_rounds"`
	TotalGifts   int            `json:"total_gifts"`
	GiftsAwarded int            `json:"gifts_awarded"`
	MinBid       string         `json:"min_bid"`
	StartAt      string         `json:"start_at,omitempty"`
	Round        *RoundResponse `json:"round,omitempty"`
	TopBids      []BidResponse  `json:"top_bids,omitempty"`
}

type BalanceResponse struct {
	UserID  string `json:"user_id"`
	Balance string `json:"balance"`
	Locked  string `json:"locked"`
	Won     string `json:"won"`
	Version int64  `json:"version"`
}

type AuditResponse struct {
	TotalBalances string `json:"total_balances"`
	TotalLocked   string `json:"total_locked"`
	TotalPrizes   string `json:"total_prizes"`
	Sum           string `json:"sum"`
	ExpectedSum   string `json:"expected_sum"`
	OK            bool   `json:"ok"`
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func NewBidResponse(b models.Bid) BidResponse {
	return BidResponse{
		BidID:            b.BidID,
		AuctionID:        b.AuctionID,
		Round:            b.Round,
		UserID:           b.UserID,
		Amount:           FormatAmount(b.Amount),
		Status:           string(b.Status),
		SubmittedAt:      formatTime(b.SubmittedAt),
		PredecessorBidID: b.PredecessorBidID,
		SupersedesBidID:  b.SupersedesBidID,
	}
}

func NewBidResponses(bids []models.Bid) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b))
	}
	return out
}

func NewAuctionResponse(a models.Auction) AuctionResponse {
	return AuctionResponse{
		AuctionID:    a.AuctionID,
		Title:        a.Title,
		Status:       string(a.Status),
		Halted:       a.Halted,
		CurrentRound: a.CurrentRound,
		TotalRounds:  a.TotalRounds,
		TotalGifts:   a.Config.TotalGifts,
		GiftsAwarded: a.GiftsAwarded,
		MinBid:       FormatAmount(a.Config.MinBid),
		StartAt:      formatTime(a.Config.StartAt),
	}
}

// NewStatusResponse flattens a status snapshot
func NewStatusResponse(s models.StatusSnapshot) AuctionResponse {
	resp := NewAuctionResponse(s.Auction)
	if s.Round != nil {
		resp.Round = &RoundResponse{
			Index:          s.Round.Index,
			Status:         string(s.Round.Status),
			Final:          s.Round.Final,
			GiftsAllocated: s.Round.GiftsAllocated,
			OpenedAt:       formatTime(s.Round.OpenedAt),
			EndAt:          formatTime(s.Round.EndAt),
			ExtensionsUsed: s.Round.ExtensionsUsed,
			MaxExtensions:  s.Round.MaxExtensions,
		}
	}
	resp.TopBids = NewBidResponses(s.TopBids)
	return resp
}

func NewBalanceResponse(e models.LedgerEntry) BalanceResponse {
	return BalanceResponse{
		UserID:  e.UserID,
		Balance: FormatAmount(e.Balance),
		Locked:  FormatAmount(e.Locked),
		Won:     FormatAmount(e.Won),
		Version: e.Version,
	}
}

func NewAuditResponse(r models.AuditReport) AuditResponse {
	return AuditResponse{
		TotalBalances: FormatAmount(r.TotalBalances),
		TotalLocked:   FormatAmount(r.TotalLocked),
		TotalPrizes:   FormatAmount(r.TotalPrizes),
		Sum:           FormatAmount(r.Sum),
		ExpectedSum:   FormatAmount(r.ExpectedSum),
		OK:            r.OK,
	}
}
