package models

import (
	"fmt"
	"time"

	"gift-auction/internal/auctionerrors"
)

type AntiSnipingConfig struct {
	Window        time.Duration `json:"window"`
	Extension     time.Duration `json:"extension"`
	MaxExtensions int           `json:"max_extensions"`
}

type RoundConfig struct {
	Gifts       int               `json:"gifts"`
	Duration    time.Duration     `json:"duration"`
	AntiSniping AntiSnipingConfig `json:"anti_sniping"`
}

// AuctionConfig describes an auction at creation time. When Rounds is empty the round
// plan is derived from TotalGifts, GiftsPerRound, RoundDuration and AntiSniping.
type AuctionConfig struct {
	Title         string            `json:"title"`
	TotalGifts    int               `json:"total_gifts"`
	GiftsPerRound int               `json:"gifts_per_round"`
	MinBid        Money             `json:"min_bid"`
	RoundDuration time.Duration     `json:"round_duration"`
	AntiSniping   AntiSnipingConfig `json:"anti_sniping"`
	StartAt       time.Time         `json:"start_at,omitempty"`
	Rounds        []RoundConfig     `json:"rounds,omitempty"`
}

func (a AntiSnipingConfig) validate() error {
	if a.Window < 0 || a.Extension < 0 || a.MaxExtensions < 0 {
		return fmt.Errorf("%w: anti-sniping settings must be non-negative", auctionerrors.ErrInvalidConfig)
	}
	return nil
}

// Validate checks the config against the creation constraints.
func (c AuctionConfig) Validate() error {
	if c.TotalGifts <= 0 {
		return fmt.Errorf("%w: total gifts must be positive", auctionerrors.ErrInvalidConfig)
	}
	if c.MinBid < 0 {
		return fmt.Errorf("%w: min bid must be non-negative", auctionerrors.ErrInvalidConfig)
	}

	if len(c.Rounds) == 0 {
		if c.GiftsPerRound <= 0 {
			return fmt.Errorf("%w: gifts per round must be positive", auctionerrors.ErrInvalidConfig)
		}
		if c.RoundDuration <= 0 {
			return fmt.Errorf("%w: round duration must be positive", auctionerrors.ErrInvalidConfig)
		}
		return c.AntiSniping.validate()
	}

	sum := 0
	for i, r := range c.Rounds {
		if r.Gifts <= 0 || r.Duration <= 0 {
			return fmt.Errorf("%w: round %d needs positive gifts and duration", auctionerrors.ErrInvalidConfig, i+1)
		}
		if err := r.AntiSniping.validate(); err != nil {
			return fmt.Errorf("round %d: %w", i+1, err)
		}
		sum += r.Gifts
	}
	if sum != c.TotalGifts {
		return fmt.Errorf("%w: rounds allocate %d gifts, total is %d", auctionerrors.ErrInvalidConfig, sum, c.TotalGifts)
	}
	return nil
}

// Plan returns the ordered round configuration. Call Validate first.
func (c AuctionConfig) Plan() []RoundConfig {
	if len(c.Rounds) > 0 {
		return append([]RoundConfig(nil), c.Rounds...)
	}

	n := (c.TotalGifts + c.GiftsPerRound - 1) / c.GiftsPerRound
	plan := make([]RoundConfig, n)
	remaining := c.TotalGifts
	for i := range plan {
		gifts := min(c.GiftsPerRound, remaining)
		remaining -= gifts
		plan[i] = RoundConfig{
			Gifts:       gifts,
			Duration:    c.RoundDuration,
			AntiSniping: c.AntiSniping,
		}
	}
	return plan
}
