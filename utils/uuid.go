package utils

import (
	"github.com/google/uuid"
)

// GenerateID returns a new random identifier for auctions and bids
func GenerateID() string {
	return uuid.NewString()
}
