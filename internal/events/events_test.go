package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"gift-auction/internal/auctionerrors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

type failingSink struct{ err error }

func (s failingSink) Emit(context.Context, Event) error { return s.err }

func TestMetricsSink(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	sink := NewMetricsSink(reg)
	ctx := context.Background()

	require.NoError(t, sink.Emit(ctx, Event{Type: BidAdmitted, AuctionID: "a1"}))
	require.NoError(t, sink.Emit(ctx, Event{Type: BidAdmitted, AuctionID: "a1"}))
	require.NoError(t, sink.Emit(ctx, Event{Type: BidRejected, AuctionID: "a1", Reason: "insufficient_funds"}))
	require.NoError(t, sink.Emit(ctx, Event{Type: RoundExtended, AuctionID: "a1", ExtensionsUsed: 1}))
	require.NoError(t, sink.Emit(ctx, Event{Type: SettlementCompleted, AuctionID: "a1", Winners: 40, Carried: 1}))
	require.NoError(t, sink.Emit(ctx, Event{Type: AuctionHalted, AuctionID: "a1"}))

	require.Equal(t, 2.0, testutil.ToFloat64(sink.events.WithLabelValues(string(BidAdmitted))))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.rejections.WithLabelValues("insufficient_funds")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.extensions))
	require.Equal(t, 40.0, testutil.ToFloat64(sink.outcomes.WithLabelValues("won")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.outcomes.WithLabelValues("carried")))
	require.Equal(t, 1.0, testutil.ToFloat64(sink.halted))

	require.NoError(t, sink.Emit(ctx, Event{Type: AuctionResumed, AuctionID: "a1"}))
	require.Equal(t, 0.0, testutil.ToFloat64(sink.halted))
}

func TestKafkaSink(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	sink := &KafkaSink{writer: w}
	at := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, sink.Emit(context.Background(), Event{Type: BidAdmitted, AuctionID: "a1", BidID: "b1", Amount: 1250, At: at}))
	require.Len(t, w.msgs, 1)
	require.Equal(t, "a1", string(w.msgs[0].Key))
	require.Equal(t, at, w.msgs[0].Time)

	var decoded Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	require.Equal(t, BidAdmitted, decoded.Type)
	require.Equal(t, "b1", decoded.BidID)

	w.err = errors.New("broker down")
	err := sink.Emit(context.Background(), Event{Type: RoundClosed, AuctionID: "a1"})
	require.ErrorContains(t, err, "broker down")

	require.NoError(t, sink.Close())
	require.True(t, w.closed)
}

func TestNewKafkaSinkFlushesPromptly(t *testing.T) {
	t.Parallel()

	sink := NewKafkaSink([]string{"localhost:9092"}, "auction-events")
	t.Cleanup(func() { _ = sink.Close() })

	w, ok := sink.writer.(*kafka.Writer)
	require.True(t, ok)
	require.Equal(t, "auction-events", w.Topic)
	require.Equal(t, kafka.RequireOne, w.RequiredAcks)
	require.LessOrEqual(t, w.BatchTimeout, 10*time.Millisecond)
	require.Positive(t, w.BatchTimeout)
}

func TestMulti(t *testing.T) {
	t.Parallel()

	w := &fakeWriter{}
	boom := errors.New("boom")
	multi := Multi{LogSink{}, failingSink{err: boom}, &KafkaSink{writer: w}}

	err := multi.Emit(context.Background(), Event{Type: RoundOpened, AuctionID: "a1", EndAt: time.Now()})
	require.ErrorIs(t, err, boom)
	require.Len(t, w.msgs, 1, "a failing sink must not stop the others")

	require.NoError(t, Multi{Discard{}, LogSink{}}.Emit(context.Background(), Event{Type: AuctionHalted, AuctionID: "a1"}))
}

func TestRejectReason(t *testing.T) {
	t.Parallel()

	tests := []struct {
		err  error
		want string
	}{
		{err: fmt.Errorf("ledger: %w", auctionerrors.ErrInsufficientFunds), want: "insufficient_funds"},
		{err: auctionerrors.ErrBelowMinBid, want: "below_min_bid"},
		{err: fmt.Errorf("round 2: %w", auctionerrors.ErrRoundClosed), want: "round_closed"},
		{err: fmt.Errorf("%w: %w", auctionerrors.ErrAuctionHalted, auctionerrors.ErrAuctionNotActive), want: "auction_halted"},
		{err: auctionerrors.ErrAuctionNotActive, want: "auction_not_active"},
		{err: context.Canceled, want: "cancelled"},
		{err: errors.New("disk"), want: "other"},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, RejectReason(tt.err))
	}
}
