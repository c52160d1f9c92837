package jeopardy

import (
	"context"

	"meshtastic-game-bot/internal/model"
)

// Ledger is the persistence boundary for scores and session records.
// It is always invoked from within the session's serialized context.
// ApplyDelta must be idempotent per (session, round, node): a retried
// settlement reports applied=false instead of double-counting. Session
// standings are tracked in memory; per-session leaderboard queries live
// on the concrete ledger implementations.
type Ledger interface {
	OpenSession(ctx context.Context, maxRounds int) (int64, error)
	CloseSession(ctx context.Context, sessionID int64) error
	ApplyDelta(ctx context.Context, ev model.ScoreEvent) (applied bool, err error)
	RoundSettled(ctx context.Context, sessionID int64, round int) error
}

// BanStore persists the ban list across restarts. Best-effort: the
// session keeps its own in-memory copy and a store failure never blocks
// a ban from taking effect for the running process.
type BanStore interface {
	Ban(ctx context.Context, nodeID, bannedBy, reason string) error
	Unban(ctx context.Context, nodeID string) error
	List(ctx context.Context) ([]string, error)
}

// Announcer carries outbound payloads to the mesh. Broadcast goes to
// the configured public channel, DirectMessage to a single node.
// Delivery guarantees are the transport's concern.
type Announcer interface {
	Broadcast(text string)
	DirectMessage(nodeID, text string)
}
