// Package model defines the data models for the mesh game bot.
package model

import "time"

// Player represents a mesh participant known to the bot.
// Identified by the stable meshtastic node id (e.g. "!a1b2c3d4").
type Player struct {
	NodeID      string    `db:"node_id"`
	Username    string    `db:"username"`
	TotalPoints int64     `db:"total_points"`
	LastSeen    time.Time `db:"last_seen"`
}

// GameSession represents one Hacker Jeopardy session record.
type GameSession struct {
	ID        int64      `db:"id"`
	StartedAt time.Time  `db:"started_at"`
	EndedAt   *time.Time `db:"ended_at"`
	Status    string     `db:"status"`
	MaxRounds int        `db:"max_rounds"`
	Rounds    int        `db:"rounds"`
}

// Session status values.
const (
	SessionActive = "ACTIVE"
	SessionEnded  = "ENDED"
)

// ScoreEvent is one settled per-player, per-round point delta.
// The (session_id, round, node_id) unique constraint makes delta
// application idempotent: a retried settlement cannot double-count.
type ScoreEvent struct {
	ID        int64     `db:"id"`
	SessionID int64     `db:"session_id"`
	Round     int       `db:"round"`
	NodeID    string    `db:"node_id"`
	Username  string    `db:"username"`
	Answer    string    `db:"answer"`
	Delta     int64     `db:"delta"`
	CreatedAt time.Time `db:"created_at"`
}

// Standing is one leaderboard row.
type Standing struct {
	NodeID   string `db:"node_id"`
	Username string `db:"username"`
	Points   int64  `db:"points"`
}
