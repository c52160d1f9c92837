// Package main is the entry point for the mesh network game bot.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"meshtastic-game-bot/internal/bot"
	"meshtastic-game-bot/internal/config"
	"meshtastic-game-bot/internal/jeopardy"
	"meshtastic-game-bot/internal/llm"
	"meshtastic-game-bot/internal/mesh"
	"meshtastic-game-bot/internal/personality"
	"meshtastic-game-bot/internal/personality/hackerjeopardy"
	"meshtastic-game-bot/internal/personality/trivia"
	"meshtastic-game-bot/internal/pkg/db"
	"meshtastic-game-bot/internal/repository"
	"meshtastic-game-bot/internal/service"
)

// ledger is everything the game engines need from a score backend,
// satisfied by both the PostgreSQL ScoreKeeper and the MemoryLedger.
type ledger interface {
	jeopardy.Ledger
	trivia.Awarder
}

func main() {
	// Configure zerolog
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	// Load configuration
	cfg, err := config.Load("config")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log.Info().Msg("Configuration loaded successfully")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the score ledger. The bot stays playable without
	// PostgreSQL; scores just do not survive a restart.
	var scores ledger
	var banStore jeopardy.BanStore
	var presence bot.Presence

	dbPool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		log.Warn().Err(err).Msg("Database unavailable, using in-memory scores")
		scores = service.NewMemoryLedger()
	} else {
		defer dbPool.Close()
		if err := runMigrations(ctx, dbPool); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}

		playerRepo := repository.NewPlayerRepository(dbPool.Pool)
		scoreRepo := repository.NewScoreRepository(dbPool.Pool)
		sessionRepo := repository.NewSessionRepository(dbPool.Pool)
		banStore = repository.NewBanRepository(dbPool.Pool)
		presence = playerRepo

		scores = service.NewScoreKeeper(sessionRepo, scoreRepo, playerRepo)
	}

	// Connect to the mesh gateway
	gateway, err := mesh.Dial(ctx, cfg.Mesh.GatewayURL)
	if err != nil {
		log.Fatal().Err(err).Str("url", cfg.Mesh.GatewayURL).Msg("Failed to connect to mesh gateway")
	}
	defer gateway.Close()

	handshakeCtx, handshakeCancel := context.WithTimeout(ctx, 10*time.Second)
	if err := gateway.AwaitChannels(handshakeCtx); err != nil {
		log.Fatal().Err(err).Msg("No channel list from gateway")
	}
	handshakeCancel()

	channel, ok := gateway.FindChannel(cfg.Mesh.ChannelName)
	if !ok {
		log.Warn().Str("channel", cfg.Mesh.ChannelName).Msg("Channel not found, using primary channel")
		channel = 0
	}
	log.Info().Str("channel", cfg.Mesh.ChannelName).Int("index", channel).Msg("Game channel selected")

	sender := mesh.NewChunker(gateway, cfg.Mesh.ChunkSize, cfg.Mesh.ChunkDelay)
	announcer := bot.NewMeshAnnouncer(sender, channel)

	// LLM host commentary (optional)
	host := llm.New(cfg.LLM.BaseURL, cfg.LLM.Model, cfg.LLM.APIKey)

	// Load question banks
	hjQuestions, err := jeopardy.LoadQuestions(cfg.Jeopardy.QuestionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Jeopardy.QuestionsFile).Msg("Failed to load jeopardy questions")
	}
	triviaQuestions, err := jeopardy.LoadQuestions(cfg.Trivia.QuestionsFile)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Trivia.QuestionsFile).Msg("Failed to load trivia questions")
	}

	// Build the jeopardy engine
	gate := jeopardy.NewAdminGate(cfg.Admin.NodeIDs)
	gameCfg := jeopardy.Config{
		AnswerWindow:     cfg.Jeopardy.AnswerWindow,
		QuestionInterval: cfg.Jeopardy.QuestionInterval,
		MaxRounds:        cfg.Jeopardy.MaxRounds,
		JoinWindow:       cfg.Jeopardy.JoinWindow,
	}

	opts := []jeopardy.Option{
		jeopardy.WithIntro(func() string {
			return host.GameIntro(ctx, gameCfg.MaxRounds, gameCfg.AnswerWindow, gameCfg.QuestionInterval)
		}),
	}
	if banStore != nil {
		opts = append(opts, jeopardy.WithBanStore(banStore))
	}

	session := jeopardy.NewSession(gameCfg, gate, scores, jeopardy.NewWallScheduler(), announcer, hjQuestions, opts...)

	// Register personalities
	registry := personality.NewRegistry()
	if err := registry.Register(hackerjeopardy.New(session)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jeopardy personality")
	}
	if err := registry.Register(trivia.New(scores, host, triviaQuestions, cfg.Trivia.PointValue)); err != nil {
		log.Fatal().Err(err).Msg("Failed to register trivia personality")
	}

	log.Info().
		Int("personality_count", registry.Count()).
		Strs("commands", registry.Commands()).
		Msg("Personalities registered")

	router := bot.NewRouter(registry, sender, channel)
	if presence != nil {
		router.WithPresence(presence)
	}

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start the message loop in a goroutine
	errChan := make(chan error, 1)
	go func() {
		log.Info().Msg("Bot is starting...")
		errChan <- router.Run(ctx, gateway)
	}()

	select {
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
	case err := <-errChan:
		if err != nil {
			log.Error().Err(err).Msg("Mesh gateway connection lost")
		}
	}

	// Graceful shutdown: end any running game so scores are settled.
	cancel()
	if session.State() == jeopardy.StateRunning {
		session.Shutdown(context.Background())
	}
	log.Info().Msg("Bot stopped gracefully")
}

// runMigrations executes database migrations.
func runMigrations(ctx context.Context, pool *db.Pool) error {
	log.Info().Msg("Running database migrations...")

	// Migration 1: Create players table
	_, err := pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS players (
			node_id VARCHAR(64) PRIMARY KEY,
			username VARCHAR(255) NOT NULL DEFAULT '',
			total_points BIGINT NOT NULL DEFAULT 0,
			last_seen TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_players_points ON players(total_points DESC);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 1: players table created")

	// Migration 2: Create game_sessions table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS game_sessions (
			id BIGSERIAL PRIMARY KEY,
			status VARCHAR(20) NOT NULL DEFAULT 'ACTIVE',
			max_rounds INT NOT NULL DEFAULT 0,
			rounds INT NOT NULL DEFAULT 0,
			started_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			ended_at TIMESTAMPTZ
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 2: game_sessions table created")

	// Migration 3: Create score_events table. The unique constraint
	// makes settlement idempotent: one event per player per round.
	_, err = pool.Exec(ctx, `
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
		CREATE INDEX IF NOT EXISTS idx_score_events_session ON score_events(session_id);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 3: score_events table created")

	// Migration 4: Create banned_nodes table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS banned_nodes (
			node_id VARCHAR(64) PRIMARY KEY,
			banned_by VARCHAR(64) NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			banned_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 4: banned_nodes table created")

	// Migration 5: Create trivia_answers table
	_, err = pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS trivia_answers (
			node_id VARCHAR(64) NOT NULL,
			question_id VARCHAR(128) NOT NULL,
			answered_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			PRIMARY KEY (node_id, question_id)
		);
	`)
	if err != nil {
		return err
	}
	log.Info().Msg("Migration 5: trivia_answers table created")

	log.Info().Msg("All migrations completed successfully")
	return nil
}
