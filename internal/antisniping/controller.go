package antisniping

import (
	"time"

	"gift-auction/internal/models"
)

// Controller decides whether a bid admitted late in a round pushes the round's deadline.
type Controller struct {
	Window        time.Duration
	Extension     time.Duration
	MaxExtensions int
}

// Decision is the outcome of one evaluation
type Decision struct {
	Extended       bool
	EndAt          time.Time
	ExtensionsUsed int
}

// NewController builds a controller from the round's anti-sniping settings
func NewController(cfg models.AntiSnipingConfig) Controller {
	return Controller{
		Window:        cfg.Window,
		Extension:     cfg.Extension,
		MaxExtensions: cfg.MaxExtensions,
	}
}

// Evaluate extends endAt by Extension when now falls inside the window before endAt
// and the extension budget is not spent. A zero Extension turns anti-sniping off: the deadline
// stays put and no extension is counted. The caller holds the round's critical section.
func (c Controller) Evaluate(now, endAt time.Time, extensionsUsed int) Decision {
	d := Decision{EndAt: endAt, ExtensionsUsed: extensionsUsed}

	if c.Extension <= 0 || extensionsUsed >= c.MaxExtensions {
		return d
	}
	if now.Before(endAt.Add(-c.Window)) {
		return d
	}

	d.Extended = true
	d.EndAt = endAt.Add(c.Extension)
	d.ExtensionsUsed = extensionsUsed + 1
	return d
}
