package scheduler

import (
	"sync"
	"time"

	"gift-auction/utils"

	"github.com/benbjohnson/clock"
)

// Target identifies one round deadline of one auction.
type Target struct {
	AuctionID string
	Round     int
	Deadline  time.Time
}

// Scheduler keeps at most one pending deadline timer per auction. A new target replaces the
// pending one only if it is for a later round, or the same round with a later deadline;
// stale targets are ignored. Expired targets are handed to fire on the clock's goroutine.
type Scheduler struct {
	clock clock.Clock
	fire  func(Target)

	mu      sync.Mutex
	entries map[string]*entry
	stopped bool
	running sync.WaitGroup
}

type entry struct {
	target Target
	timer  *clock.Timer
}

// New creates a scheduler that calls fire for every target whose deadline passes.
func New(clk clock.Clock, fire func(Target)) *Scheduler {
	return &Scheduler{
		clock:   clk,
		fire:    fire,
		entries: make(map[string]*entry),
	}
}

// Schedule arms a timer for t and reports whether it replaced the pending one.
func (s *Scheduler) Schedule(t Target) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	if cur, ok := s.entries[t.AuctionID]; ok {
		if t.Round < cur.target.Round {
			return false
		}
		if t.Round == cur.target.Round && !t.Deadline.After(cur.target.Deadline) {
			return false
		}
		cur.timer.Stop()
	}

	// non-positive durations fire as soon as the clock allows
	d := t.Deadline.Sub(s.clock.Now())
	s.entries[t.AuctionID] = &entry{
		target: t,
		timer:  s.clock.AfterFunc(d, func() { s.expire(t) }),
	}
	utils.Debug("scheduler: deadline armed", map[string]any{
		"auction_id": t.AuctionID,
		"round":      t.Round,
		"deadline":   t.Deadline.UTC().Format(time.RFC3339Nano),
	})
	return true
}

func (s *Scheduler) expire(t Target) {
	s.mu.Lock()
	cur, ok := s.entries[t.AuctionID]
	if s.stopped || !ok || cur.target != t {
		s.mu.Unlock()
		return
	}
	delete(s.entries, t.AuctionID)
	s.running.Add(1)
	s.mu.Unlock()

	defer s.running.Done()
	s.fire(t)
}

// Pending returns the armed target of an auction, if any.
func (s *Scheduler) Pending(auctionID string) (Target, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.entries[auctionID]
	if !ok {
		return Target{}, false
	}
	return cur.target, true
}

// Cancel disarms the auction's pending timer.
func (s *Scheduler) Cancel(auctionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if cur, ok := s.entries[auctionID]; ok {
		cur.timer.Stop()
		delete(s.entries, auctionID)
	}
}

// Stop disarms every timer and waits for callbacks already running.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for id, cur := range s.entries {
		cur.timer.Stop()
		delete(s.entries, id)
	}
	s.mu.Unlock()

	s.running.Wait()
}
