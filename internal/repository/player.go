// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meshtastic-game-bot/internal/model"
)

// Common errors for repository operations.
var (
	ErrPlayerNotFound = errors.New("player not found")
)

// PlayerRepository handles player data persistence.
type PlayerRepository struct {
	pool *pgxpool.Pool
}

// NewPlayerRepository creates a new PlayerRepository instance.
func NewPlayerRepository(pool *pgxpool.Pool) *PlayerRepository {
	return &PlayerRepository{pool: pool}
}

// GetByID retrieves a player by node id.
// Returns ErrPlayerNotFound if the player does not exist.
func (r *PlayerRepository) GetByID(ctx context.Context, nodeID string) (*model.Player, error) {
	const query = `
		SELECT node_id, username, total_points, last_seen
		FROM players
		WHERE node_id = $1
	`

	var p model.Player
	err := r.pool.QueryRow(ctx, query, nodeID).Scan(
		&p.NodeID,
		&p.Username,
		&p.TotalPoints,
		&p.LastSeen,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to get player: %w", err)
	}

	return &p, nil
}

// GetTopPlayers retrieves the top N players by cumulative points across
// all sessions.
func (r *PlayerRepository) GetTopPlayers(ctx context.Context, limit int) ([]*model.Player, error) {
	const query = `
		SELECT node_id, username, total_points, last_seen
		FROM players
		ORDER BY total_points DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get top players: %w", err)
	}
	defer rows.Close()

	var players []*model.Player
	for rows.Next() {
		var p model.Player
		if err := rows.Scan(&p.NodeID, &p.Username, &p.TotalPoints, &p.LastSeen); err != nil {
			return nil, fmt.Errorf("failed to scan player: %w", err)
		}
		players = append(players, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating players: %w", err)
	}

	return players, nil
}

// Touch upserts a player's username and last-seen timestamp without
// changing their points.
func (r *PlayerRepository) Touch(ctx context.Context, nodeID, username string) error {
	const query = `
		INSERT INTO players (node_id, username, total_points, last_seen)
		VALUES ($1, $2, 0, NOW())
		ON CONFLICT (node_id) DO UPDATE SET
			username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE players.username END,
			last_seen = NOW()
	`

	if _, err := r.pool.Exec(ctx, query, nodeID, username); err != nil {
		return fmt.Errorf("failed to touch player: %w", err)
	}
	return nil
}
