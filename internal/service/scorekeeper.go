// Package service provides business logic implementations.
package service

import (
	"context"
	"fmt"

	"meshtastic-game-bot/internal/model"
	"meshtastic-game-bot/internal/repository"
)

// ScoreKeeper is the PostgreSQL-backed score ledger. All game engines
// invoke it from within their own serialized context, so it does not
// lock; idempotency comes from the score-event unique constraint.
type ScoreKeeper struct {
	sessions *repository.SessionRepository
	scores   *repository.ScoreRepository
	players  *repository.PlayerRepository
}

// NewScoreKeeper creates a new ScoreKeeper instance.
func NewScoreKeeper(
	sessions *repository.SessionRepository,
	scores *repository.ScoreRepository,
	players *repository.PlayerRepository,
) *ScoreKeeper {
	return &ScoreKeeper{
		sessions: sessions,
		scores:   scores,
		players:  players,
	}
}

// OpenSession creates a new session record and returns its id.
func (k *ScoreKeeper) OpenSession(ctx context.Context, maxRounds int) (int64, error) {
	id, err := k.sessions.Create(ctx, maxRounds)
	if err != nil {
		return 0, fmt.Errorf("failed to open session: %w", err)
	}
	return id, nil
}

// CloseSession marks a session record as ended.
func (k *ScoreKeeper) CloseSession(ctx context.Context, sessionID int64) error {
	return k.sessions.End(ctx, sessionID)
}

// ApplyDelta records one settled score event and updates the player's
// cumulative total. Returns false for a duplicate (session, round,
// node) event, leaving totals untouched.
func (k *ScoreKeeper) ApplyDelta(ctx context.Context, ev model.ScoreEvent) (bool, error) {
	return k.scores.ApplyDelta(ctx, ev)
}

// RoundSettled bumps the session's settled-round counter.
func (k *ScoreKeeper) RoundSettled(ctx context.Context, sessionID int64, round int) error {
	return k.sessions.IncrementRound(ctx, sessionID)
}

// TopN returns the session leaderboard, descending by summed deltas.
func (k *ScoreKeeper) TopN(ctx context.Context, sessionID int64, n int) ([]model.Standing, error) {
	return k.scores.SessionTopN(ctx, sessionID, n)
}

// AwardOnce grants points for a casual trivia question if the player
// has not scored on it before. Returns whether points were awarded.
func (k *ScoreKeeper) AwardOnce(ctx context.Context, nodeID, username string, points int64, questionID string) (bool, error) {
	return k.scores.AwardOnce(ctx, nodeID, username, points, questionID)
}

// TopPlayers returns the all-time leaderboard by cumulative points.
func (k *ScoreKeeper) TopPlayers(ctx context.Context, n int) ([]model.Standing, error) {
	players, err := k.players.GetTopPlayers(ctx, n)
	if err != nil {
		return nil, err
	}
	standings := make([]model.Standing, 0, len(players))
	for _, p := range players {
		name := p.Username
		if name == "" {
			name = p.NodeID
		}
		standings = append(standings, model.Standing{NodeID: p.NodeID, Username: name, Points: p.TotalPoints})
	}
	return standings, nil
}
