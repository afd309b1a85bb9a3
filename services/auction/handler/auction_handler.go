package handler

import (
	"context"
	"fmt"
	"net/http"

	"gift-auction/internal/config"
	"gift-auction/internal/models"
	"gift-auction/services/auction/helpers"
	"gift-auction/utils"

	"github.com/gin-gonic/gin"
)

//go:generate mockgen -destination=mock_service.go -package=handler gift-auction/services/auction/handler AuctionServiceInterface

type AuctionServiceInterface interface {
	CreateAuction(ctx context.Context, cfg models.AuctionConfig) (models.Auction, error)
	SubmitBid(ctx context.Context, auctionID, userID string, amount models.Money, idempotencyKey string) (models.Bid, error)
	IncreaseBid(ctx context.Context, auctionID, userID, bidID string, newAmount models.Money) (models.Bid, error)
	Deposit(ctx context.Context, userID string, amount models.Money) (models.LedgerEntry, error)
	GetStatus(auctionID string) (models.StatusSnapshot, error)
	GetBalance(userID string) (models.LedgerEntry, error)
	ListBids(auctionID string) ([]models.Bid, error)
	AuditBalances() models.AuditReport
	ResumeSettlement(ctx context.Context, auctionID string) (models.StatusSnapshot, error)
}

type AuctionHandler struct {
	service  AuctionServiceInterface
	defaults config.AuctionDefaults
}

func NewAuctionHandler(service AuctionServiceInterface, defaults config.AuctionDefaults) *AuctionHandler {
	return &AuctionHandler{service: service, defaults: defaults}
}

// respondError writes the mapped error envelope. Server faults log at error level, client faults at warn.
func respondError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := helpers.MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": "+message, fields)
		return
	}
	utils.Warn(handlerName+": "+message, fields)
}

// CreateAuctionHandler handles POST /auctions
func (h *AuctionHandler) CreateAuctionHandler(c *gin.Context) {
	var req helpers.CreateAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "CreateAuctionHandler", err)
		return
	}

	cfg, err := helpers.ToAuctionConfig(req, h.defaults)
	if err != nil {
		respondError(c, "CreateAuctionHandler", err, map[string]any{"title": req.Title})
		return
	}

	auction, err := h.service.CreateAuction(c.Request.Context(), cfg)
	if err != nil {
		respondError(c, "CreateAuctionHandler", err, map[string]any{"title": req.Title})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewAuctionResponse(auction), "auction created successfully")
	helpers.LogSuccess("CreateAuctionHandler", "auction created successfully", map[string]any{
		"auction_id":   auction.AuctionID,
		"total_gifts":  cfg.TotalGifts,
		"total_rounds": auction.TotalRounds,
	})
}

// GetStatusHandler handles GET /auctions/:auction_id
func (h *AuctionHandler) GetStatusHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	snap, err := h.service.GetStatus(auctionID)
	if err != nil {
		respondError(c, "GetStatusHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewStatusResponse(snap), "auction status retrieved successfully")
}

// ListBidsHandler handles GET /auctions/:auction_id/bids
func (h *AuctionHandler) ListBidsHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	bids, err := h.service.ListBids(auctionID)
	if err != nil {
		respondError(c, "ListBidsHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponses(bids), "bids retrieved successfully")
	helpers.LogSuccess("ListBidsHandler", "bids retrieved successfully", map[string]any{
		"auction_id": auctionID,
		"count":      len(bids),
	})
}

// SubmitBidHandler handles POST /auctions/:auction_id/bids
func (h *AuctionHandler) SubmitBidHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	var req helpers.PlaceBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "SubmitBidHandler", err)
		return
	}
	fields := map[string]any{"auction_id": auctionID, "user_id": req.UserID}

	amount, err := helpers.ParseAmount(req.Amount)
	if err != nil {
		respondError(c, "SubmitBidHandler", err, fields)
		return
	}

	bid, err := h.service.SubmitBid(c.Request.Context(), auctionID, req.UserID, amount, c.GetHeader("Idempotency-Key"))
	if err != nil {
		respondError(c, "SubmitBidHandler", err, fields)
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBidResponse(bid), "bid recorded successfully")
	helpers.LogSuccess("SubmitBidHandler", "bid recorded successfully", map[string]any{
		"bid_id":     bid.BidID,
		"auction_id": auctionID,
		"user_id":    req.UserID,
		"amount":     bid.Amount,
		"round":      bid.Round,
	})
}

// IncreaseBidHandler handles PUT /auctions/:auction_id/bids/:bid_id
func (h *AuctionHandler) IncreaseBidHandler(c *gin.Context) {
	auctionID, bidID := c.Param("auction_id"), c.Param("bid_id")
	var req helpers.IncreaseBidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "IncreaseBidHandler", err)
		return
	}
	fields := map[string]any{"auction_id": auctionID, "bid_id": bidID, "user_id": req.UserID}

	amount, err := helpers.ParseAmount(req.Amount)
	if err != nil {
		respondError(c, "IncreaseBidHandler", err, fields)
		return
	}

	bid, err := h.service.IncreaseBid(c.Request.Context(), auctionID, req.UserID, bidID, amount)
	if err != nil {
		respondError(c, "IncreaseBidHandler", err, fields)
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBidResponse(bid), "bid increased successfully")
	helpers.LogSuccess("IncreaseBidHandler", "bid increased successfully", map[string]any{
		"bid_id":     bid.BidID,
		"supersedes": bidID,
		"amount":     bid.Amount,
	})
}

// DepositHandler handles POST /users/:user_id/deposits
func (h *AuctionHandler) DepositHandler(c *gin.Context) {
	userID := c.Param("user_id")
	var req helpers.DepositRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		helpers.HandleBindError(c, "DepositHandler", err)
		return
	}

	amount, err := helpers.ParseAmount(req.Amount)
	if err != nil {
		respondError(c, "DepositHandler", err, map[string]any{"user_id": userID})
		return
	}

	entry, err := h.service.Deposit(c.Request.Context(), userID, amount)
	if err != nil {
		respondError(c, "DepositHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusCreated, helpers.NewBalanceResponse(entry), "deposit applied successfully")
	helpers.LogSuccess("DepositHandler", "deposit applied successfully", map[string]any{
		"user_id": userID,
		"amount":  amount,
	})
}

// GetBalanceHandler handles GET /users/:user_id/balance
func (h *AuctionHandler) GetBalanceHandler(c *gin.Context) {
	userID := c.Param("user_id")
	entry, err := h.service.GetBalance(userID)
	if err != nil {
		respondError(c, "GetBalanceHandler", err, map[string]any{"user_id": userID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewBalanceResponse(entry), "balance retrieved successfully")
}

// AuditHandler handles GET /audit. A failed audit still answers 200 with ok=false.
func (h *AuctionHandler) AuditHandler(c *gin.Context) {
	report := h.service.AuditBalances()
	utils.JSONResponse(c, http.StatusOK, helpers.NewAuditResponse(report), "audit completed")
}

// ResumeSettlementHandler handles POST /auctions/:auction_id/resume
func (h *AuctionHandler) ResumeSettlementHandler(c *gin.Context) {
	auctionID := c.Param("auction_id")
	snap, err := h.service.ResumeSettlement(c.Request.Context(), auctionID)
	if err != nil {
		respondError(c, "ResumeSettlementHandler", err, map[string]any{"auction_id": auctionID})
		return
	}

	utils.JSONResponse(c, http.StatusOK, helpers.NewStatusResponse(snap), "settlement resumed")
	helpers.LogSuccess("ResumeSettlementHandler", "settlement resumed", map[string]any{
		"auction_id": auctionID,
		"round":      snap.Auction.CurrentRound,
		"halted":     snap.Auction.Halted,
	})
}
