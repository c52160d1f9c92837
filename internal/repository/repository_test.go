// Package repository provides data access layer implementations.
// Tests use testcontainers-go to spin up a PostgreSQL container.
package repository

import (
	"context"
	"os/exec"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"meshtastic-game-bot/internal/model"
)

// checkDockerAvailable checks if Docker is available and running
func checkDockerAvailable() bool {
	cmd := exec.Command("docker", "info")
	err := cmd.Run()
	return err == nil
}

// setupTestDB creates a PostgreSQL container and returns a connection pool.
// Skips the test if Docker is not available.
func setupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	if !checkDockerAvailable() {
		t.Skip("Docker is not available, skipping integration test")
	}

	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)

	err = runMigrations(ctx, pool)
	require.NoError(t, err)

	cleanup := func() {
		pool.Close()
		_ = pgContainer.Terminate(ctx)
	}

	return pool, cleanup
}

// runMigrations applies the database schema
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			node_id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			total_points BIGINT NOT NULL DEFAULT 0,
			last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS game_sessions (
			id BIGSERIAL PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			max_rounds INT NOT NULL DEFAULT 0,
			rounds INT NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ended_at TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS score_events (
			id BIGSERIAL PRIMARY KEY,
			session_id BIGINT NOT NULL REFERENCES game_sessions(id) ON DELETE CASCADE,
			round INT NOT NULL,
			node_id VARCHAR(64) NOT NULL,
			username VARCHAR(255) NOT NULL DEFAULT '',
			answer TEXT NOT NULL DEFAULT '',
			delta BIGINT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			UNIQUE(session_id, round, node_id)
		);

		CREATE TABLE IF NOT EXISTS banned_nodes (
			node_id VARCHAR(64) PRIMARY KEY,
			banned_by VARCHAR(64) NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			banned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS trivia_answers (
			node_id VARCHAR(64) NOT NULL,
			question_id VARCHAR(128) NOT NULL,
			answered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (node_id, question_id)
		);
	`)
	return err
}

func TestScoreRepository_ApplyDelta(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	sessions := NewSessionRepository(pool)
	scores := NewScoreRepository(pool)
	players := NewPlayerRepository(pool)

	sessionID, err := sessions.Create(ctx, 10)
	require.NoError(t, err)

	ev := model.ScoreEvent{
		SessionID: sessionID,
		Round:     1,
		NodeID:    "!alice",
		Username:  "alice",
		Answer:    "22",
		Delta:     200,
	}

	applied, err := scores.ApplyDelta(ctx, ev)
	require.NoError(t, err)
	assert.True(t, applied)

	// The same (session, round, node) event is a no-op.
	applied, err = scores.ApplyDelta(ctx, ev)
	require.NoError(t, err)
	assert.False(t, applied)

	p, err := players.GetByID(ctx, "!alice")
	require.NoError(t, err)
	assert.Equal(t, int64(200), p.TotalPoints)
	assert.Equal(t, "alice", p.Username)

	// A different round for the same player applies normally.
	ev.Round = 2
	ev.Delta = -200
	applied, err = scores.ApplyDelta(ctx, ev)
	require.NoError(t, err)
	assert.True(t, applied)

	p, err = players.GetByID(ctx, "!alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), p.TotalPoints)
}

func TestScoreRepository_SessionTopN(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	sessions := NewSessionRepository(pool)
	scores := NewScoreRepository(pool)

	s1, err := sessions.Create(ctx, 10)
	require.NoError(t, err)
	s2, err := sessions.Create(ctx, 10)
	require.NoError(t, err)

	for _, ev := range []model.ScoreEvent{
		{SessionID: s1, Round: 1, NodeID: "!alice", Username: "alice", Delta: 200},
		{SessionID: s1, Round: 1, NodeID: "!bob", Username: "bob", Delta: -200},
		{SessionID: s1, Round: 2, NodeID: "!bob", Username: "bob", Delta: 500},
		{SessionID: s2, Round: 1, NodeID: "!carol", Username: "carol", Delta: 999},
	} {
		applied, err := scores.ApplyDelta(ctx, ev)
		require.NoError(t, err)
		require.True(t, applied)
	}

	// Standings sum deltas within the session only.
	standings, err := scores.SessionTopN(ctx, s1, 5)
	require.NoError(t, err)
	require.Len(t, standings, 2)
	assert.Equal(t, "bob", standings[0].Username)
	assert.Equal(t, int64(300), standings[0].Points)
	assert.Equal(t, "alice", standings[1].Username)
	assert.Equal(t, int64(200), standings[1].Points)

	standings, err = scores.SessionTopN(ctx, s1, 1)
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, "bob", standings[0].Username)
}

func TestScoreRepository_AwardOnce(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	scores := NewScoreRepository(pool)
	players := NewPlayerRepository(pool)

	awarded, err := scores.AwardOnce(ctx, "!alice", "alice", 10, "t0")
	require.NoError(t, err)
	assert.True(t, awarded)

	awarded, err = scores.AwardOnce(ctx, "!alice", "alice", 10, "t0")
	require.NoError(t, err)
	assert.False(t, awarded)

	awarded, err = scores.AwardOnce(ctx, "!alice", "alice", 10, "t1")
	require.NoError(t, err)
	assert.True(t, awarded)

	p, err := players.GetByID(ctx, "!alice")
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.TotalPoints)
}

func TestSessionRepository_Lifecycle(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	sessions := NewSessionRepository(pool)

	id, err := sessions.Create(ctx, 10)
	require.NoError(t, err)

	s, err := sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.SessionActive, s.Status)
	assert.Equal(t, 10, s.MaxRounds)
	assert.Equal(t, 0, s.Rounds)
	assert.Nil(t, s.EndedAt)

	require.NoError(t, sessions.IncrementRound(ctx, id))
	require.NoError(t, sessions.IncrementRound(ctx, id))

	require.NoError(t, sessions.End(ctx, id))

	s, err = sessions.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, model.SessionEnded, s.Status)
	assert.Equal(t, 2, s.Rounds)
	assert.NotNil(t, s.EndedAt)

	assert.ErrorIs(t, sessions.End(ctx, 99999), ErrSessionNotFound)
	_, err = sessions.Get(ctx, 99999)
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestPlayerRepository_TouchAndTop(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	players := NewPlayerRepository(pool)
	scores := NewScoreRepository(pool)

	_, err := players.GetByID(ctx, "!ghost")
	assert.ErrorIs(t, err, ErrPlayerNotFound)

	require.NoError(t, players.Touch(ctx, "!alice", "alice"))

	// An empty username on a later touch keeps the known one.
	require.NoError(t, players.Touch(ctx, "!alice", ""))
	p, err := players.GetByID(ctx, "!alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", p.Username)

	_, err = scores.AwardOnce(ctx, "!bob", "bob", 50, "t0")
	require.NoError(t, err)

	top, err := players.GetTopPlayers(ctx, 10)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, "!bob", top[0].NodeID)
	assert.Equal(t, int64(50), top[0].TotalPoints)
}

func TestBanRepository(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	bans := NewBanRepository(pool)

	ids, err := bans.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)

	require.NoError(t, bans.Ban(ctx, "alice", "admin001", "admin ban"))
	require.NoError(t, bans.Ban(ctx, "alice", "admin002", "repeat offender"))
	require.NoError(t, bans.Ban(ctx, "bob", "admin001", "admin ban"))

	ids, err = bans.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"alice", "bob"}, ids)

	require.NoError(t, bans.Unban(ctx, "alice"))
	ids, err = bans.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids)

	// Unbanning an unknown node is not an error.
	require.NoError(t, bans.Unban(ctx, "nobody"))
}
