package settlement

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/ledger"
	"gift-auction/internal/models"
	"gift-auction/internal/round"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	clk    *clock.Mock
	seq    *round.Sequencer
	ledger *ledger.Ledger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clk := clock.NewMock()
	clk.Set(time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC))
	return &fixture{clk: clk, seq: &round.Sequencer{}, ledger: ledger.New()}
}

func (f *fixture) newRound(index, gifts int, final bool) *round.Round {
	return round.New(round.Params{
		AuctionID: "auction-1",
		Index:     index,
		Final:     final,
		Gifts:     gifts,
		Config:    models.RoundConfig{Gifts: gifts, Duration: time.Minute},
		Clock:     f.clk,
		Sequencer: f.seq,
	})
}

// bid deposits amount for user, then admits a locked bid one second after the previous one.
func (f *fixture) bid(t *testing.T, r *round.Round, user string, amount models.Money) models.Bid {
	t.Helper()
	require.NoError(t, f.ledger.Deposit(user, amount))
	adm, err := r.Admit(models.Bid{BidID: "bid-" + user, UserID: user, Amount: amount}, func() error {
		return f.ledger.Lock(user, amount)
	})
	require.NoError(t, err)
	f.clk.Add(time.Second)
	return adm.Bid
}

func (f *fixture) close(t *testing.T, r *round.Round) {
	t.Helper()
	f.clk.Set(r.Record().EndAt)
	require.True(t, r.BeginClose().Settle)
}

func TestEngine_ScenarioFortyOneBidders(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r1 := f.newRound(1, 40, false)
	for i := 0; i < 41; i++ {
		f.bid(t, r1, fmt.Sprintf("user-%02d", i), models.Money(50-i))
	}
	f.close(t, r1)
	r2 := f.newRound(2, 40, false)

	lockedBefore, err := f.ledger.Entry("user-40")
	require.NoError(t, err)

	out, err := NewEngine(f.ledger).Settle(r1, r2)
	require.NoError(t, err)

	require.Len(t, out.Winners, 40)
	require.Empty(t, out.Refunded)
	require.Len(t, out.Carried, 1)
	require.Equal(t, 0, out.UnawardedGifts)
	require.Equal(t, models.RoundClosed, out.Round.Status)
	require.Equal(t, 40, out.Round.Winners)
	require.Equal(t, 1, out.Round.Carried)

	carried := out.Carried[0]
	require.Equal(t, "user-40", carried.UserID)
	require.Equal(t, models.Money(10), carried.Amount)
	require.Equal(t, "bid-user-40", carried.PredecessorBidID)
	require.Equal(t, 2, carried.Round)
	require.Equal(t, models.BidPending, carried.Status)
	require.True(t, r2.Record().OpenedAt.Equal(carried.SubmittedAt))

	lockedAfter, err := f.ledger.Entry("user-40")
	require.NoError(t, err)
	require.Equal(t, lockedBefore.Locked, lockedAfter.Locked)
	require.Equal(t, lockedBefore.Version, lockedAfter.Version, "carry-over must not touch the ledger")

	original, ok := r1.Bid("bid-user-40")
	require.True(t, ok)
	require.Equal(t, models.BidCarried, original.Status)

	report := f.ledger.Audit()
	require.True(t, report.OK)
	require.Equal(t, models.Money(10), report.TotalLocked)
}

func TestEngine_FinalRoundRefunds(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	final := f.newRound(3, 10, true)
	for i := 0; i < 15; i++ {
		f.bid(t, final, fmt.Sprintf("user-%02d", i), models.Money(100+i))
	}
	f.close(t, final)

	out, err := NewEngine(f.ledger).Settle(final, nil)
	require.NoError(t, err)
	require.Len(t, out.Winners, 10)
	require.Len(t, out.Refunded, 5)
	require.Empty(t, out.Carried)

	// lowest five amounts are refunded
	for _, b := range out.Refunded {
		require.Less(t, b.Amount, models.Money(105))
		entry, err := f.ledger.Entry(b.UserID)
		require.NoError(t, err)
		require.Equal(t, b.Amount, entry.Balance)
	}

	report := f.ledger.Audit()
	require.True(t, report.OK)
	require.Equal(t, models.Money(0), report.TotalLocked)
	require.Equal(t, report.ExpectedSum-report.TotalBalances, report.TotalPrizes)
}

func TestEngine_FewerBidsThanGifts(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r1 := f.newRound(1, 5, false)
	f.bid(t, r1, "alice", 10)
	f.bid(t, r1, "bob", 20)
	f.close(t, r1)

	out, err := NewEngine(f.ledger).Settle(r1, f.newRound(2, 5, true))
	require.NoError(t, err)
	require.Len(t, out.Winners, 2)
	require.Empty(t, out.Carried)
	require.Equal(t, 3, out.UnawardedGifts)
}

func TestEngine_SettleTwiceIsIdempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r1 := f.newRound(1, 2, false)
	for i, amount := range []models.Money{30, 20, 10, 5} {
		f.bid(t, r1, fmt.Sprintf("u%d", i), amount)
	}
	f.close(t, r1)
	r2 := f.newRound(2, 2, true)

	engine := NewEngine(f.ledger)
	first, err := engine.Settle(r1, r2)
	require.NoError(t, err)
	ledgerAfterFirst := f.ledger.Entries()
	bidsAfterFirst := append(r1.Bids(), r2.Bids()...)

	second, err := engine.Settle(r1, r2)
	require.NoError(t, err)

	if diff := cmp.Diff(ledgerAfterFirst, f.ledger.Entries()); diff != "" {
		t.Fatalf("ledger changed on second pass (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(bidsAfterFirst, append(r1.Bids(), r2.Bids()...)); diff != "" {
		t.Fatalf("bids changed on second pass (-first +second):\n%s", diff)
	}
	require.Empty(t, second.Changed)
	require.Equal(t, len(first.Winners), len(second.Winners))
	require.Equal(t, first.Carried, second.Carried)
	require.Equal(t, first.Round, second.Round)
}

type flakyLedger struct {
	*ledger.Ledger
	failUser string
	failed   bool
}

func (l *flakyLedger) SettleWin(userID string, amount models.Money) error {
	if userID == l.failUser && !l.failed {
		l.failed = true
		return fmt.Errorf("injected: %w", auctionerrors.ErrInvariantViolation)
	}
	return l.Ledger.SettleWin(userID, amount)
}

func TestEngine_ResumesAfterFailure(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	r1 := f.newRound(1, 3, false)
	for i, amount := range []models.Money{40, 30, 20, 10} {
		f.bid(t, r1, fmt.Sprintf("u%d", i), amount)
	}
	f.close(t, r1)
	r2 := f.newRound(2, 1, true)

	engine := NewEngine(&flakyLedger{Ledger: f.ledger, failUser: "u1"})
	_, err := engine.Settle(r1, r2)
	require.True(t, errors.Is(err, auctionerrors.ErrInvariantViolation))
	require.Equal(t, models.RoundSettling, r1.Record().Status)

	first, _ := r1.Bid("bid-u0")
	require.Equal(t, models.BidWon, first.Status, "bids before the failure stay resolved")
	failed, _ := r1.Bid("bid-u1")
	require.Equal(t, models.BidPending, failed.Status)

	out, err := engine.Settle(r1, r2)
	require.NoError(t, err)
	require.Len(t, out.Winners, 3)
	require.Len(t, out.Carried, 1)
	require.Equal(t, models.RoundClosed, out.Round.Status)

	for _, id := range []string{"u0", "u1", "u2"} {
		entry, err := f.ledger.Entry(id)
		require.NoError(t, err)
		require.Equal(t, models.Money(0), entry.Locked)
		require.Equal(t, models.Money(0), entry.Balance, "winner %s charged exactly once", id)
	}
	require.True(t, f.ledger.Audit().OK)
}
