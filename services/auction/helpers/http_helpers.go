package helpers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/config"
	"gift-auction/internal/models"
	"gift-auction/utils"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// amounts carry two decimal places
const minorUnitPlaces = 2

var maxMoney = decimal.NewFromInt(math.MaxInt64)

// ParseAmount converts a decimal string like "12.50" into minor units.
func ParseAmount(s string) (models.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w - amount %q is not a decimal number", auctionerrors.ErrInvalidBid, s)
	}
	if !d.Equal(d.Round(minorUnitPlaces)) {
		return 0, fmt.Errorf("%w - amount %q has more than %d decimal places", auctionerrors.ErrInvalidBid, s, minorUnitPlaces)
	}
	minor := d.Shift(minorUnitPlaces)
	if minor.Abs().GreaterThan(maxMoney) {
		return 0, fmt.Errorf("%w - amount %q out of range", auctionerrors.ErrInvalidBid, s)
	}
	return models.Money(minor.IntPart()), nil
}

// FormatAmount renders minor units as a fixed two-place decimal string
func FormatAmount(m models.Money) string {
	return decimal.New(int64(m), -minorUnitPlaces).StringFixed(minorUnitPlaces)
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// ToAuctionConfig converts a creation request, filling omitted settings from defaults.
func ToAuctionConfig(req CreateAuctionRequest, defaults config.AuctionDefaults) (models.AuctionConfig, error) {
	cfg := models.AuctionConfig{
		Title:         req.Title,
		TotalGifts:    req.TotalGifts,
		GiftsPerRound: req.GiftsPerRound,
		RoundDuration: defaults.RoundDuration,
		AntiSniping: models.AntiSnipingConfig{
			Window:        defaults.AntiSnipingWindow,
			Extension:     defaults.AntiSnipingExtension,
			MaxExtensions: defaults.MaxExtensions,
		},
	}
	// an omitted split runs all gifts in a single round
	if cfg.GiftsPerRound == 0 && len(req.Rounds) == 0 {
		cfg.GiftsPerRound = req.TotalGifts
	}
	if req.MinBid != "" {
		minBid, err := ParseAmount(req.MinBid)
		if err != nil {
			return cfg, fmt.Errorf("min_bid: %w", err)
		}
		cfg.MinBid = minBid
	}
	if req.RoundDurationSeconds != nil {
		cfg.RoundDuration = seconds(*req.RoundDurationSeconds)
	}
	if req.AntiSnipingWindowSeconds != nil {
		cfg.AntiSniping.Window = seconds(*req.AntiSnipingWindowSeconds)
	}
	if req.AntiSnipingExtensionSeconds != nil {
		cfg.AntiSniping.Extension = seconds(*req.AntiSnipingExtensionSeconds)
	}
	if req.MaxAntiSnipingExtensions != nil {
		cfg.AntiSniping.MaxExtensions = *req.MaxAntiSnipingExtensions
	}
	if req.StartAt != nil {
		cfg.StartAt = req.StartAt.UTC()
	}
	for _, r := range req.Rounds {
		cfg.Rounds = append(cfg.Rounds, models.RoundConfig{
			Gifts:    r.Gifts,
			Duration: seconds(r.DurationSeconds),
			AntiSniping: models.AntiSnipingConfig{
				Window:        seconds(r.AntiSnipingWindowSeconds),
				Extension:     seconds(r.AntiSnipingExtensionSeconds),
				MaxExtensions: r.MaxAntiSnipingExtensions,
			},
		})
	}
	return cfg, nil
}

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, auctionerrors.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, auctionerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, auctionerrors.ErrUserNotFound):
		return http.StatusNotFound, "user not found"
	case errors.Is(err, auctionerrors.ErrInvalidConfig):
		return http.StatusBadRequest, "invalid auction config"
	case errors.Is(err, auctionerrors.ErrInvalidBid):
		return http.StatusBadRequest, "invalid bid details"
	case errors.Is(err, auctionerrors.ErrBelowMinBid):
		return http.StatusUnprocessableEntity, "bid below minimum"
	case errors.Is(err, auctionerrors.ErrInsufficientFunds):
		return http.StatusUnprocessableEntity, "insufficient funds"
	case errors.Is(err, auctionerrors.ErrBidNotHigher):
		return http.StatusConflict, "bid increase must exceed current amount"
	case errors.Is(err, auctionerrors.ErrAuctionHalted):
		return http.StatusServiceUnavailable, "auction halted"
	case errors.Is(err, auctionerrors.ErrRoundClosed):
		return http.StatusConflict, "round closed"
	case errors.Is(err, auctionerrors.ErrAuctionNotActive):
		return http.StatusConflict, "auction not active"
	case errors.Is(err, auctionerrors.ErrIdempotencyConflict):
		return http.StatusConflict, "request in progress"
	case errors.Is(err, auctionerrors.ErrIdempotencyMismatch):
		return http.StatusUnprocessableEntity, "idempotency key reused with different payload"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout, "request cancelled"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess standardizes logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
