package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"meshtastic-game-bot/internal/model"
)

// ScoreRepository handles score event persistence. Score events are
// append-only; the (session_id, round, node_id) unique constraint makes
// delta application idempotent under settlement retries.
type ScoreRepository struct {
	pool *pgxpool.Pool
}

// NewScoreRepository creates a new ScoreRepository instance.
func NewScoreRepository(pool *pgxpool.Pool) *ScoreRepository {
	return &ScoreRepository{pool: pool}
}

// ApplyDelta records a score event and updates the player's cumulative
// total in one transaction. Returns false when an event for the same
// (session, round, node) already exists; the total is left untouched.
func (r *ScoreRepository) ApplyDelta(ctx context.Context, ev model.ScoreEvent) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertEvent = `
		INSERT INTO score_events (session_id, round, node_id, username, answer, delta, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (session_id, round, node_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, insertEvent,
		ev.SessionID, ev.Round, ev.NodeID, ev.Username, ev.Answer, ev.Delta)
	if err != nil {
		return false, fmt.Errorf("failed to insert score event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	const upsertPlayer = `
		INSERT INTO players (node_id, username, total_points, last_seen)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (node_id) DO UPDATE SET
			total_points = players.total_points + EXCLUDED.total_points,
			username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE players.username END,
			last_seen = NOW()
	`

	if _, err := tx.Exec(ctx, upsertPlayer, ev.NodeID, ev.Username, ev.Delta); err != nil {
		return false, fmt.Errorf("failed to update player total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit score delta: %w", err)
	}
	return true, nil
}

// AwardOnce grants casual trivia points if the player has not answered
// this question before. The (node_id, question_id) unique constraint on
// trivia_answers is the anti-cheat: one score per question per player.
func (r *ScoreRepository) AwardOnce(ctx context.Context, nodeID, username string, points int64, questionID string) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	const insertAnswer = `
		INSERT INTO trivia_answers (node_id, question_id, answered_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (node_id, question_id) DO NOTHING
	`

	tag, err := tx.Exec(ctx, insertAnswer, nodeID, questionID)
	if err != nil {
		return false, fmt.Errorf("failed to insert trivia answer: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return false, nil
	}

	const upsertPlayer = `
		INSERT INTO players (node_id, username, total_points, last_seen)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (node_id) DO UPDATE SET
			total_points = players.total_points + EXCLUDED.total_points,
			username = CASE WHEN EXCLUDED.username <> '' THEN EXCLUDED.username ELSE players.username END,
			last_seen = NOW()
	`

	if _, err := tx.Exec(ctx, upsertPlayer, nodeID, username, points); err != nil {
		return false, fmt.Errorf("failed to update player total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("failed to commit trivia award: %w", err)
	}
	return true, nil
}

// SessionTopN retrieves the top N standings for one session, descending
// by summed deltas.
func (r *ScoreRepository) SessionTopN(ctx context.Context, sessionID int64, limit int) ([]model.Standing, error) {
	const query = `
		SELECT node_id, MAX(username) AS username, SUM(delta) AS points
		FROM score_events
		WHERE session_id = $1
		GROUP BY node_id
		ORDER BY points DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get session standings: %w", err)
	}
	defer rows.Close()

	var standings []model.Standing
	for rows.Next() {
		var s model.Standing
		if err := rows.Scan(&s.NodeID, &s.Username, &s.Points); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		if s.Username == "" {
			s.Username = s.NodeID
		}
		standings = append(standings, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating standings: %w", err)
	}

	return standings, nil
}
