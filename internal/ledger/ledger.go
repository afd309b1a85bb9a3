package ledger

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"sync/atomic"

	"gift-auction/internal/auctionerrors"
	"gift-auction/internal/models"
)

type account struct {
	mu      sync.Mutex
	balance models.Money
	locked  models.Money
	won     models.Money
	version int64
}

// Ledger is the financial source of truth for balances, locked funds and distributed prizes.
//
// Every operation touches exactly one user and is serialized per user. Operations on different
// users run in parallel. Audit takes the gate exclusively, so it always sees a state where
// each operation is either fully applied or not applied at all.
type Ledger struct {
	gate sync.RWMutex

	accountsMu sync.RWMutex
	accounts   map[string]*account

	issued atomic.Int64
}

// New creates an empty ledger with nothing issued
func New() *Ledger {
	return &Ledger{accounts: make(map[string]*account)}
}

func (l *Ledger) lookup(userID string, create bool) *account {
	l.accountsMu.RLock()
	acc, ok := l.accounts[userID]
	l.accountsMu.RUnlock()
	if ok || !create {
		return acc
	}

	l.accountsMu.Lock()
	defer l.accountsMu.Unlock()
	if acc, ok = l.accounts[userID]; ok {
		return acc
	}
	acc = &account{}
	l.accounts[userID] = acc
	return acc
}

// withAccount runs fn under the shared gate and the user's lock.
func (l *Ledger) withAccount(userID string, create bool, fn func(acc *account) error) error {
	l.gate.RLock()
	defer l.gate.RUnlock()

	acc := l.lookup(userID, create)
	if acc == nil {
		return fn(nil)
	}

	acc.mu.Lock()
	defer acc.mu.Unlock()
	if err := fn(acc); err != nil {
		return err
	}
	acc.version++
	return nil
}

func checkAmount(op string, amount models.Money) error {
	if amount <= 0 {
		return fmt.Errorf("ledger: %s: %w - non-positive amount %d", op, auctionerrors.ErrInvalidBid, amount)
	}
	return nil
}

// Lock moves amount from the user's balance to locked funds.
func (l *Ledger) Lock(userID string, amount models.Money) error {
	if err := checkAmount("lock", amount); err != nil {
		return err
	}
	return l.withAccount(userID, false, func(acc *account) error {
		if acc == nil || acc.balance < amount {
			return fmt.Errorf("ledger: lock %d for user %s: %w", amount, userID, auctionerrors.ErrInsufficientFunds)
		}
		acc.balance -= amount
		acc.locked += amount
		return nil
	})
}

// Unlock returns locked funds to the user's balance.
func (l *Ledger) Unlock(userID string, amount models.Money) error {
	if err := checkAmount("unlock", amount); err != nil {
		return err
	}
	return l.withAccount(userID, false, func(acc *account) error {
		if acc == nil || acc.locked < amount {
			return fmt.Errorf("ledger: unlock %d for user %s exceeds locked funds: %w", amount, userID, auctionerrors.ErrInvariantViolation)
		}
		acc.locked -= amount
		acc.balance += amount
		return nil
	})
}

// SettleWin converts locked funds into distributed prize value. It cannot be undone.
func (l *Ledger) SettleWin(userID string, amount models.Money) error {
	if err := checkAmount("settle win", amount); err != nil {
		return err
	}
	return l.withAccount(userID, false, func(acc *account) error {
		if acc == nil || acc.locked < amount {
			return fmt.Errorf("ledger: settle %d for user %s exceeds locked funds: %w", amount, userID, auctionerrors.ErrInvariantViolation)
		}
		if acc.won > math.MaxInt64-amount {
			return fmt.Errorf("ledger: settle %d for user %s: %w - won total overflows", amount, userID, auctionerrors.ErrInvalidBid)
		}
		acc.locked -= amount
		acc.won += amount
		return nil
	})
}

// Deposit credits the user's balance and raises total issued by the same amount.
func (l *Ledger) Deposit(userID string, amount models.Money) error {
	if err := checkAmount("deposit", amount); err != nil {
		return err
	}
	return l.withAccount(userID, true, func(acc *account) error {
		if acc.balance > math.MaxInt64-amount || !l.reserveIssued(amount) {
			return fmt.Errorf("ledger: deposit %d for user %s: %w - total overflows", amount, userID, auctionerrors.ErrInvalidBid)
		}
		acc.balance += amount
		return nil
	})
}

// reserveIssued raises total issued by amount unless that would overflow it.
func (l *Ledger) reserveIssued(amount models.Money) bool {
	for {
		cur := l.issued.Load()
		if cur > math.MaxInt64-int64(amount) {
			return false
		}
		if l.issued.CompareAndSwap(cur, cur+int64(amount)) {
			return true
		}
	}
}

// Entry returns a consistent snapshot of one user's record.
func (l *Ledger) Entry(userID string) (models.LedgerEntry, error) {
	var entry models.LedgerEntry
	l.gate.RLock()
	defer l.gate.RUnlock()

	acc := l.lookup(userID, false)
	if acc == nil {
		return entry, fmt.Errorf("ledger: entry for user %s: %w", userID, auctionerrors.ErrUserNotFound)
	}
	acc.mu.Lock()
	defer acc.mu.Unlock()
	return acc.snapshot(userID), nil
}

func (acc *account) snapshot(userID string) models.LedgerEntry {
	return models.LedgerEntry{
		UserID:  userID,
		Balance: acc.balance,
		Locked:  acc.locked,
		Won:     acc.won,
		Version: acc.version,
	}
}

// Entries returns every user's record, sorted by user id, from one atomic view.
func (l *Ledger) Entries() []models.LedgerEntry {
	l.gate.Lock()
	defer l.gate.Unlock()

	entries := make([]models.LedgerEntry, 0, len(l.accounts))
	for id, acc := range l.accounts {
		entries = append(entries, acc.snapshot(id))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].UserID < entries[j].UserID })
	return entries
}

// Audit checks sum(balance) + sum(locked) + sum(prizes) == total issued.
func (l *Ledger) Audit() models.AuditReport {
	l.gate.Lock()
	defer l.gate.Unlock()

	var report models.AuditReport
	for _, acc := range l.accounts {
		report.TotalBalances += acc.balance
		report.TotalLocked += acc.locked
		report.TotalPrizes += acc.won
	}
	report.Sum = report.TotalBalances + report.TotalLocked + report.TotalPrizes
	report.ExpectedSum = models.Money(l.issued.Load())
	report.OK = report.Sum == report.ExpectedSum
	return report
}
