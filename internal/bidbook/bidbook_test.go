package bidbook

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/models"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var base = time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

func newBid(bidID, userID string, amount models.Money, offset time.Duration) models.Bid {
	return models.Bid{
		BidID:       bidID,
		UserID:      userID,
		Amount:      amount,
		SubmittedAt: base.Add(offset),
		Status:      models.BidPending,
	}
}

func ids(bids []models.Bid) []string {
	out := make([]string, len(bids))
	for i, b := range bids {
		out[i] = b.BidID
	}
	return out
}

func TestBidBook_Ranking(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		bids  []models.Bid
		topN  int
		wantN []string
	}{
		{
			name: "amount_descending",
			bids: []models.Bid{
				newBid("b1", "u1", 100, 0),
				newBid("b2", "u2", 300, time.Second),
				newBid("b3", "u3", 200, 2*time.Second),
			},
			topN:  3,
			wantN: []string{"b2", "b3", "b1"},
		},
		{
			name: "tie_earlier_wins_even_if_inserted_later",
			bids: []models.Bid{
				newBid("late", "u1", 50, 5*time.Second),
				newBid("early", "u2", 50, time.Second),
			},
			topN:  2,
			wantN: []string{"early", "late"},
		},
		{
			name: "same_instant_falls_back_to_seq",
			bids: []models.Bid{
				{BidID: "c2", Amount: 10, SubmittedAt: base, Seq: 2},
				{BidID: "c1", Amount: 10, SubmittedAt: base, Seq: 1},
			},
			topN:  2,
			wantN: []string{"c1", "c2"},
		},
		{
			name:  "top_n_larger_than_book",
			bids:  []models.Bid{newBid("only", "u1", 10, 0)},
			topN:  40,
			wantN: []string{"only"},
		},
		{
			name:  "empty_book",
			topN:  5,
			wantN: []string{},
		},
		{
			name:  "negative_n",
			bids:  []models.Bid{newBid("b1", "u1", 10, 0)},
			topN:  -1,
			wantN: []string{},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			book := New()
			for _, b := range tc.bids {
				require.NoError(t, book.Admit(b))
			}
			require.Equal(t, tc.wantN, ids(book.TopN(tc.topN)))
		})
	}
}

func TestBidBook_AdmitDuplicate(t *testing.T) {
	t.Parallel()

	book := New()
	require.NoError(t, book.Admit(newBid("b1", "u1", 10, 0)))
	err := book.Admit(newBid("b1", "u2", 20, 0))
	require.True(t, errors.Is(err, auctionerrors.ErrInvalidBid))
	require.Equal(t, 1, book.Len())
}

func TestBidBook_Replace(t *testing.T) {
	t.Parallel()

	book := New()
	require.NoError(t, book.Admit(newBid("a", "alice", 50, 0)))
	require.NoError(t, book.Admit(newBid("b", "bob", 40, time.Second)))

	require.NoError(t, book.Replace("b", newBid("b2", "bob", 60, 2*time.Second)))
	require.Equal(t, []string{"b2", "a"}, ids(book.Ranked()))

	_, ok := book.Get("b")
	require.False(t, ok)
	got, ok := book.Get("b2")
	require.True(t, ok)
	require.Equal(t, models.Money(60), got.Amount)

	err := book.Replace("missing", newBid("x", "x", 1, 0))
	require.True(t, errors.Is(err, auctionerrors.ErrBidNotFound))

	err = book.Replace("a", newBid("b2", "alice", 70, 0))
	require.True(t, errors.Is(err, auctionerrors.ErrInvalidBid))
	require.Equal(t, 2, book.Len())
}

func TestBidBook_ReplaceIsAtomicForReaders(t *testing.T) {
	t.Parallel()

	book := New()
	require.NoError(t, book.Admit(newBid("v0", "dave", 1, 0)))
	for i := 0; i < 20; i++ {
		require.NoError(t, book.Admit(newBid(fmt.Sprintf("other-%d", i), fmt.Sprintf("u%d", i), models.Money(i+1), time.Duration(i)*time.Second)))
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for v := 1; v <= 200; v++ {
			require.NoError(t, book.Replace(fmt.Sprintf("v%d", v-1), newBid(fmt.Sprintf("v%d", v), "dave", models.Money(v+1), time.Duration(v)*time.Millisecond)))
		}
	}()

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				count := 0
				for _, b := range book.Ranked() {
					if b.UserID == "dave" {
						count++
					}
				}
				require.Equal(t, 1, count)
			}
		}()
	}
	wg.Wait()
}

func TestBidBook_RankingIsDeterministic(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(1, 50).Draw(t, "n")
		bids := make([]models.Bid, n)
		for i := range bids {
			bids[i] = models.Bid{
				BidID:       fmt.Sprintf("bid-%d", i),
				Amount:      models.Money(rapid.Int64Range(1, 20).Draw(t, "amount")),
				SubmittedAt: base.Add(time.Duration(i) * time.Millisecond),
			}
		}
		perm := rapid.Permutation(bids).Draw(t, "order")

		first, second := New(), New()
		for _, b := range bids {
			_ = first.Admit(b)
		}
		for _, b := range perm {
			_ = second.Admit(b)
		}

		k := rapid.IntRange(0, n).Draw(t, "k")
		a, b := ids(first.TopN(k)), ids(second.TopN(k))
		if fmt.Sprint(a) != fmt.Sprint(b) {
			t.Fatalf("insertion order changed ranking: %v vs %v", a, b)
		}
		ranked := first.Ranked()
		for i := 1; i < len(ranked); i++ {
			if Less(ranked[i], ranked[i-1]) {
				t.Fatalf("ranking out of order at %d", i)
			}
		}
	})
}
