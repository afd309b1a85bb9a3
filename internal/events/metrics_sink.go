package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsSink counts events in Prometheus.
type MetricsSink struct {
	events     *prometheus.CounterVec
	rejections *prometheus.CounterVec
	extensions prometheus.Counter
	outcomes   *prometheus.CounterVec
	halted     prometheus.Gauge
}

// NewMetricsSink registers the auction collectors on reg.
func NewMetricsSink(reg prometheus.Registerer) *MetricsSink {
	f := promauto.With(reg)
	return &MetricsSink{
		events: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gift_auction_events_total",
			Help: "Outbound auction events by type",
		}, []string{"type"}),
		rejections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gift_auction_bid_rejections_total",
			Help: "Rejected bids by reason",
		}, []string{"reason"}),
		extensions: f.NewCounter(prometheus.CounterOpts{
			Name: "gift_auction_round_extensions_total",
			Help: "Anti-sniping deadline extensions",
		}),
		outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "gift_auction_settled_bids_total",
			Help: "Settled bids by outcome",
		}, []string{"outcome"}),
		halted: f.NewGauge(prometheus.GaugeOpts{
			Name: "gift_auction_halted",
			Help: "Auctions halted by a settlement failure",
		}),
	}
}

func (m *MetricsSink) Emit(_ context.Context, e Event) error {
	m.events.WithLabelValues(string(e.Type)).Inc()
	switch e.Type {
	case BidRejected:
		m.rejections.WithLabelValues(e.Reason).Inc()
	case RoundExtended:
		m.extensions.Inc()
	case SettlementCompleted:
		m.outcomes.WithLabelValues("won").Add(float64(e.Winners))
		m.outcomes.WithLabelValues("carried").Add(float64(e.Carried))
		m.outcomes.WithLabelValues("refunded").Add(float64(e.Refunded))
	case AuctionHalted:
		m.halted.Inc()
	case AuctionResumed:
		m.halted.Dec()
	}
	return nil
}
