package events

import (
	"context"
	"time"

	"gift-auction/utils"
)

// LogSink writes every event to the structured log.
type LogSink struct{}

func (LogSink) Emit(_ context.Context, e Event) error {
	fields := map[string]any{
		"event":      string(e.Type),
		"auction_id": e.AuctionID,
		"round":      e.Round,
	}
	switch e.Type {
	case BidAdmitted, BidRejected:
		fields["bid_id"] = e.BidID
		fields["user_id"] = e.UserID
		fields["amount"] = e.Amount
		if e.Reason != "" {
			fields["reason"] = e.Reason
		}
	case RoundOpened, RoundExtended:
		fields["end_at"] = e.EndAt.UTC().Format(time.RFC3339)
		fields["extensions_used"] = e.ExtensionsUsed
	case SettlementCompleted:
		fields["winners"] = e.Winners
		fields["carried"] = e.Carried
		fields["refunded"] = e.Refunded
	case AuctionHalted:
		fields["reason"] = e.Reason
		utils.Error("ALARM: auction halted", fields)
		return nil
	}
	utils.Info("event: "+string(e.Type), fields)
	return nil
}
