package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	fired []Target
}

func (r *recorder) fire(t Target) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, t)
}

func (r *recorder) snapshot() []Target {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Target(nil), r.fired...)
}

func newMockScheduler() (*Scheduler, *clock.Mock, *recorder) {
	clk := clock.NewMock()
	rec := &recorder{}
	return New(clk, rec.fire), clk, rec
}

func TestScheduler_FiresAtDeadline(t *testing.T) {
	defer leaktest.Check(t)()

	s, clk, rec := newMockScheduler()
	defer s.Stop()

	target := Target{AuctionID: "a1", Round: 1, Deadline: clk.Now().Add(time.Minute)}
	require.True(t, s.Schedule(target))

	clk.Add(59 * time.Second)
	require.Empty(t, rec.snapshot())

	clk.Add(time.Second)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, target, rec.snapshot()[0])

	_, pending := s.Pending("a1")
	require.False(t, pending)
}

func TestScheduler_ExtensionReplacesTimer(t *testing.T) {
	defer leaktest.Check(t)()

	s, clk, rec := newMockScheduler()
	defer s.Stop()

	start := clk.Now()
	require.True(t, s.Schedule(Target{AuctionID: "a1", Round: 1, Deadline: start.Add(time.Minute)}))
	extended := Target{AuctionID: "a1", Round: 1, Deadline: start.Add(2 * time.Minute)}
	require.True(t, s.Schedule(extended))

	clk.Add(time.Minute)
	time.Sleep(10 * time.Millisecond)
	require.Empty(t, rec.snapshot(), "the original deadline must not fire after an extension")

	clk.Add(time.Minute)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, time.Second, 5*time.Millisecond)
	require.Equal(t, extended, rec.snapshot()[0])
}

func TestScheduler_IgnoresStaleTargets(t *testing.T) {
	t.Parallel()

	s, clk, _ := newMockScheduler()
	defer s.Stop()

	start := clk.Now()
	current := Target{AuctionID: "a1", Round: 2, Deadline: start.Add(time.Minute)}
	require.True(t, s.Schedule(current))

	tests := []struct {
		name   string
		target Target
	}{
		{name: "older_round", target: Target{AuctionID: "a1", Round: 1, Deadline: start.Add(time.Hour)}},
		{name: "same_deadline", target: current},
		{name: "earlier_deadline", target: Target{AuctionID: "a1", Round: 2, Deadline: start.Add(time.Second)}},
	}
	for _, tt := range tests {
		require.False(t, s.Schedule(tt.target), tt.name)
	}

	pending, ok := s.Pending("a1")
	require.True(t, ok)
	require.Equal(t, current, pending)
}

func TestScheduler_CancelAndStop(t *testing.T) {
	defer leaktest.Check(t)()

	s, clk, rec := newMockScheduler()

	require.True(t, s.Schedule(Target{AuctionID: "a1", Round: 1, Deadline: clk.Now().Add(time.Second)}))
	require.True(t, s.Schedule(Target{AuctionID: "a2", Round: 1, Deadline: clk.Now().Add(time.Second)}))
	s.Cancel("a1")

	s.Stop()
	require.False(t, s.Schedule(Target{AuctionID: "a3", Round: 1, Deadline: clk.Now().Add(time.Second)}))

	clk.Add(time.Minute)
	time.Sleep(10 * time.Millisecond)
	require.Empty(t, rec.snapshot())
}

func TestScheduler_IndependentAuctions(t *testing.T) {
	defer leaktest.Check(t)()

	s, clk, rec := newMockScheduler()
	defer s.Stop()

	for _, id := range []string{"a1", "a2", "a3"} {
		require.True(t, s.Schedule(Target{AuctionID: id, Round: 1, Deadline: clk.Now().Add(time.Minute)}))
	}
	clk.Add(time.Minute)
	require.Eventually(t, func() bool { return len(rec.snapshot()) == 3 }, time.Second, 5*time.Millisecond)
}
