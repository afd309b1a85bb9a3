package ledger

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"testing"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/models"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func seeded(t *testing.T, deposits map[string]models.Money) *Ledger {
	t.Helper()
	l := New()
	for user, amount := range deposits {
		require.NoError(t, l.Deposit(user, amount))
	}
	return l
}

func TestLedger_Lock(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		userID      string
		amount      models.Money
		wantErr     error
		wantBalance models.Money
		wantLocked  models.Money
	}{
		{name: "lock_part_of_balance", userID: "alice", amount: 40, wantBalance: 60, wantLocked: 40},
		{name: "lock_whole_balance", userID: "alice", amount: 100, wantBalance: 0, wantLocked: 100},
		{name: "insufficient_funds", userID: "alice", amount: 101, wantErr: auctionerrors.ErrInsufficientFunds, wantBalance: 100},
		{name: "unknown_user", userID: "nobody", amount: 1, wantErr: auctionerrors.ErrInsufficientFunds},
		{name: "zero_amount", userID: "alice", amount: 0, wantErr: auctionerrors.ErrInvalidBid, wantBalance: 100},
		{name: "negative_amount", userID: "alice", amount: -5, wantErr: auctionerrors.ErrInvalidBid, wantBalance: 100},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			l := seeded(t, map[string]models.Money{"alice": 100})
			err := l.Lock(tc.userID, tc.amount)
			if tc.wantErr != nil {
				require.True(t, errors.Is(err, tc.wantErr), "expected error: %v, got: %v", tc.wantErr, err)
			} else {
				require.NoError(t, err)
			}

			if entry, err := l.Entry(tc.userID); err == nil {
				require.Equal(t, tc.wantBalance, entry.Balance)
				require.Equal(t, tc.wantLocked, entry.Locked)
			}
			require.True(t, l.Audit().OK)
		})
	}
}

func TestLedger_UnlockAndSettle(t *testing.T) {
	t.Parallel()

	l := seeded(t, map[string]models.Money{"bob": 500})
	require.NoError(t, l.Lock("bob", 300))

	require.NoError(t, l.SettleWin("bob", 200))
	require.NoError(t, l.Unlock("bob", 100))

	entry, err := l.Entry("bob")
	require.NoError(t, err)
	require.Equal(t, models.Money(300), entry.Balance)
	require.Equal(t, models.Money(0), entry.Locked)
	require.Equal(t, models.Money(200), entry.Won)
	require.Equal(t, int64(4), entry.Version)

	// nothing left locked: both must be fatal
	err = l.Unlock("bob", 1)
	require.True(t, errors.Is(err, auctionerrors.ErrInvariantViolation))
	err = l.SettleWin("bob", 1)
	require.True(t, errors.Is(err, auctionerrors.ErrInvariantViolation))
	err = l.Unlock("ghost", 1)
	require.True(t, errors.Is(err, auctionerrors.ErrInvariantViolation))

	entry, err = l.Entry("bob")
	require.NoError(t, err)
	require.Equal(t, int64(4), entry.Version, "failed operations must not bump the version")

	report := l.Audit()
	require.True(t, report.OK)
	require.Equal(t, models.Money(500), report.ExpectedSum)
	require.Equal(t, models.Money(200), report.TotalPrizes)
}

func TestLedger_DepositOverflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		first string
		next  string
	}{
		{name: "same user", first: "dave", next: "dave"},
		{name: "total issued", first: "dave", next: "erin"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			l := seeded(t, map[string]models.Money{tc.first: math.MaxInt64})
			err := l.Deposit(tc.next, 1)
			require.ErrorIs(t, err, auctionerrors.ErrInvalidBid)

			entry, err := l.Entry(tc.first)
			require.NoError(t, err)
			require.Equal(t, models.Money(math.MaxInt64), entry.Balance)

			report := l.Audit()
			require.True(t, report.OK)
			require.Equal(t, models.Money(math.MaxInt64), report.ExpectedSum)
		})
	}
}

func TestLedger_EntryUnknownUser(t *testing.T) {
	t.Parallel()

	_, err := New().Entry("missing")
	require.True(t, errors.Is(err, auctionerrors.ErrUserNotFound))
}

func TestLedger_ConcurrentSameUser(t *testing.T) {
	t.Parallel()

	l := seeded(t, map[string]models.Money{"carol": 1000})

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := l.Lock("carol", 30); err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	// 1000 / 30 = 33 locks fit, the rest must be rejected
	require.Equal(t, 33, succeeded)
	entry, err := l.Entry("carol")
	require.NoError(t, err)
	require.Equal(t, models.Money(10), entry.Balance)
	require.Equal(t, models.Money(990), entry.Locked)
	require.True(t, l.Audit().OK)
}

func TestLedger_ConcurrentAuditSeesConsistentState(t *testing.T) {
	t.Parallel()

	l := New()
	users := make([]string, 20)
	for i := range users {
		users[i] = fmt.Sprintf("user-%d", i)
		require.NoError(t, l.Deposit(users[i], 1000))
	}

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for _, u := range users {
		u := u
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				_ = l.Lock(u, 5)
				_ = l.SettleWin(u, 2)
				_ = l.Unlock(u, 3)
				_ = l.Deposit(u, 1)
			}
		}()
	}

	auditDone := make(chan struct{})
	go func() {
		defer close(auditDone)
		for {
			select {
			case <-stop:
				return
			default:
				report := l.Audit()
				require.True(t, report.OK, "audit saw inconsistent state: %+v", report)
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-auditDone
	require.True(t, l.Audit().OK)
}

func TestLedger_InvariantProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := New()
		users := []string{"u1", "u2", "u3"}

		steps := rapid.IntRange(1, 60).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			user := rapid.SampledFrom(users).Draw(t, "user")
			amount := models.Money(rapid.Int64Range(1, 500).Draw(t, "amount"))
			switch rapid.IntRange(0, 3).Draw(t, "op") {
			case 0:
				_ = l.Deposit(user, amount)
			case 1:
				_ = l.Lock(user, amount)
			case 2:
				_ = l.Unlock(user, amount)
			case 3:
				_ = l.SettleWin(user, amount)
			}

			report := l.Audit()
			if !report.OK {
				t.Fatalf("invariant broken after step %d: %+v", i, report)
			}
			for _, e := range l.Entries() {
				if e.Balance < 0 || e.Locked < 0 || e.Won < 0 {
					t.Fatalf("negative ledger value: %+v", e)
				}
			}
		}
	})
}
