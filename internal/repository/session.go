package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"meshtastic-game-bot/internal/model"
)

// ErrSessionNotFound is returned when a session record does not exist.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepository handles game session records.
type SessionRepository struct {
	pool *pgxpool.Pool
}

// NewSessionRepository creates a new SessionRepository instance.
func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create inserts a new active session and returns its id.
func (r *SessionRepository) Create(ctx context.Context, maxRounds int) (int64, error) {
	const query = `
		INSERT INTO game_sessions (started_at, status, max_rounds, rounds)
		VALUES (NOW(), $1, $2, 0)
		RETURNING id
	`

	var id int64
	if err := r.pool.QueryRow(ctx, query, model.SessionActive, maxRounds).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to create session: %w", err)
	}
	return id, nil
}

// End marks a session as ended.
func (r *SessionRepository) End(ctx context.Context, sessionID int64) error {
	const query = `
		UPDATE game_sessions SET ended_at = NOW(), status = $2
		WHERE id = $1
	`

	tag, err := r.pool.Exec(ctx, query, sessionID, model.SessionEnded)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSessionNotFound
	}
	return nil
}

// IncrementRound bumps the session's settled round counter.
func (r *SessionRepository) IncrementRound(ctx context.Context, sessionID int64) error {
	const query = `UPDATE game_sessions SET rounds = rounds + 1 WHERE id = $1`

	if _, err := r.pool.Exec(ctx, query, sessionID); err != nil {
		return fmt.Errorf("failed to increment round: %w", err)
	}
	return nil
}

// Get retrieves a session record by id.
func (r *SessionRepository) Get(ctx context.Context, sessionID int64) (*model.GameSession, error) {
	const query = `
		SELECT id, started_at, ended_at, status, max_rounds, rounds
		FROM game_sessions
		WHERE id = $1
	`

	var s model.GameSession
	err := r.pool.QueryRow(ctx, query, sessionID).Scan(
		&s.ID,
		&s.StartedAt,
		&s.EndedAt,
		&s.Status,
		&s.MaxRounds,
		&s.Rounds,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	return &s, nil
}
