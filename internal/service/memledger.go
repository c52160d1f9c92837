package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"meshtastic-game-bot/internal/model"
)

type eventKey struct {
	session int64
	round   int
	nodeID  string
}

// MemoryLedger is an in-process ledger with the same idempotency
// semantics as ScoreKeeper. Used when the bot runs without a database
// and by engine tests.
type MemoryLedger struct {
	mu       sync.Mutex
	nextID   int64
	events   map[eventKey]model.ScoreEvent
	totals   map[string]int64
	names    map[string]string
	rounds   map[int64]int
	open     map[int64]bool
	answered map[string]bool // nodeID + "/" + questionID
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{
		events:   make(map[eventKey]model.ScoreEvent),
		totals:   make(map[string]int64),
		names:    make(map[string]string),
		rounds:   make(map[int64]int),
		open:     make(map[int64]bool),
		answered: make(map[string]bool),
	}
}

// OpenSession allocates a new session id.
func (l *MemoryLedger) OpenSession(ctx context.Context, maxRounds int) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	l.open[l.nextID] = true
	return l.nextID, nil
}

// CloseSession marks a session ended.
func (l *MemoryLedger) CloseSession(ctx context.Context, sessionID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.open[sessionID] {
		return fmt.Errorf("session %d not open", sessionID)
	}
	l.open[sessionID] = false
	return nil
}

// ApplyDelta records a score event once per (session, round, node).
func (l *MemoryLedger) ApplyDelta(ctx context.Context, ev model.ScoreEvent) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := eventKey{ev.SessionID, ev.Round, ev.NodeID}
	if _, dup := l.events[key]; dup {
		return false, nil
	}
	l.events[key] = ev
	l.totals[ev.NodeID] += ev.Delta
	if ev.Username != "" {
		l.names[ev.NodeID] = ev.Username
	}
	return true, nil
}

// RoundSettled bumps the session's settled-round counter.
func (l *MemoryLedger) RoundSettled(ctx context.Context, sessionID int64, round int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.rounds[sessionID]++
	return nil
}

// TopN returns session standings, descending by summed deltas.
func (l *MemoryLedger) TopN(ctx context.Context, sessionID int64, n int) ([]model.Standing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	sums := make(map[string]int64)
	var order []string
	for _, ev := range l.events {
		if ev.SessionID != sessionID {
			continue
		}
		if _, seen := sums[ev.NodeID]; !seen {
			order = append(order, ev.NodeID)
		}
		sums[ev.NodeID] += ev.Delta
	}
	sort.Strings(order)

	standings := make([]model.Standing, 0, len(order))
	for _, id := range order {
		standings = append(standings, model.Standing{
			NodeID:   id,
			Username: l.displayName(id),
			Points:   sums[id],
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
	if len(standings) > n {
		standings = standings[:n]
	}
	return standings, nil
}

// AwardOnce grants trivia points once per (node, question).
func (l *MemoryLedger) AwardOnce(ctx context.Context, nodeID, username string, points int64, questionID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := nodeID + "/" + questionID
	if l.answered[key] {
		return false, nil
	}
	l.answered[key] = true
	l.totals[nodeID] += points
	if username != "" {
		l.names[nodeID] = username
	}
	return true, nil
}

// TopPlayers returns the all-time leaderboard by cumulative points.
func (l *MemoryLedger) TopPlayers(ctx context.Context, n int) ([]model.Standing, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ids := make([]string, 0, len(l.totals))
	for id := range l.totals {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	standings := make([]model.Standing, 0, len(ids))
	for _, id := range ids {
		standings = append(standings, model.Standing{
			NodeID:   id,
			Username: l.displayName(id),
			Points:   l.totals[id],
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
	if len(standings) > n {
		standings = standings[:n]
	}
	return standings, nil
}

// Total returns a player's cumulative points.
func (l *MemoryLedger) Total(nodeID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.totals[nodeID]
}

// SettledRounds returns the number of settled rounds for a session.
func (l *MemoryLedger) SettledRounds(sessionID int64) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rounds[sessionID]
}

func (l *MemoryLedger) displayName(nodeID string) string {
	if name := l.names[nodeID]; name != "" {
		return name
	}
	return nodeID
}
