// Package jeopardy implements the live Hacker Jeopardy game engine:
// a timed round lifecycle with concurrent answer intake, deferred
// grading, point settlement, and admin-only game control.
package jeopardy

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"meshtastic-game-bot/internal/model"
)

// State is the session lifecycle state.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
	StateStopped State = "STOPPED"
)

// Config holds the immutable game timing parameters.
type Config struct {
	// AnswerWindow is how long submissions are accepted after a round opens.
	AnswerWindow time.Duration
	// QuestionInterval is the time between round opens, measured from
	// round open, independent of when the previous round closed.
	QuestionInterval time.Duration
	// MaxRounds ends the game after this many rounds.
	MaxRounds int
	// JoinWindow is the delay between game start and round 1.
	JoinWindow time.Duration
}

// Session is the Hacker Jeopardy state machine. A single mutex
// serializes admin commands, player submissions, and timer callbacks,
// so no two of them ever observe or mutate state simultaneously.
type Session struct {
	cfg    Config
	gate   *AdminGate
	ledger Ledger
	bans   BanStore
	sched  Scheduler
	out    Announcer
	bank   []Question
	intro  func() string
	now    func() time.Time

	mu        sync.Mutex
	state     State
	sessionID int64
	roundNum  int
	nextQ     int
	round     *Round
	subs      map[string]*Submission
	order     []string // submission arrival order
	players   map[string]string
	banned    map[string]bool
	scores    map[string]int64
	names     map[string]string
	scored    []string // first-delta order, leaderboard tie-break
	gen       int
	closeTim  Timer
	nextTim   Timer
}

// Option configures optional session collaborators.
type Option func(*Session)

// WithBanStore persists ban list changes.
func WithBanStore(b BanStore) Option {
	return func(s *Session) { s.bans = b }
}

// WithIntro supplies a generator for the game-start announcement,
// typically backed by the LLM host. Falls back to static text.
func WithIntro(fn func() string) Option {
	return func(s *Session) { s.intro = fn }
}

// WithNow overrides the wall clock.
func WithNow(fn func() time.Time) Option {
	return func(s *Session) { s.now = fn }
}

// NewSession creates an idle session. The question bank is consumed in
// order once the game starts; one round per question.
func NewSession(cfg Config, gate *AdminGate, ledger Ledger, sched Scheduler, out Announcer, bank []Question, opts ...Option) *Session {
	s := &Session{
		cfg:     cfg,
		gate:    gate,
		ledger:  ledger,
		sched:   sched,
		out:     out,
		bank:    bank,
		now:     time.Now,
		state:   StateIdle,
		subs:    make(map[string]*Submission),
		players: make(map[string]string),
		banned:  make(map[string]bool),
		scores:  make(map[string]int64),
		names:   make(map[string]string),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.bans != nil {
		if ids, err := s.bans.List(context.Background()); err != nil {
			log.Warn().Err(err).Msg("Failed to load persisted ban list")
		} else {
			for _, id := range ids {
				s.banned[NormalizeNodeID(id)] = true
			}
		}
	}
	return s
}

// Start begins a new game. A start while Stopped begins a brand-new
// session: round counter and session standings reset, but cumulative
// totals in the Ledger are preserved.
func (s *Session) Start(ctx context.Context, adminID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.IsAdmin(adminID) {
		return "", ErrUnauthorized
	}
	if s.state == StateRunning {
		return "", ErrInvalidState
	}

	id, err := s.ledger.OpenSession(ctx, s.cfg.MaxRounds)
	if err != nil {
		return "", fmt.Errorf("failed to open session: %w", err)
	}

	s.sessionID = id
	s.state = StateRunning
	s.roundNum = 0
	s.nextQ = 0
	s.round = nil
	s.subs = make(map[string]*Submission)
	s.order = nil
	s.players = make(map[string]string)
	s.scores = make(map[string]int64)
	s.scored = nil
	s.gen++

	log.Info().Int64("session_id", id).Str("admin", adminID).Msg("Game started")

	s.out.Broadcast(s.introText())

	gen := s.gen
	s.nextTim = s.sched.After(s.cfg.JoinWindow, func() { s.openRound(gen) })

	return fmt.Sprintf("Game #%d started! Players can !join", id), nil
}

// Stop ends the running game: any open round gets a standard settlement
// with the submissions recorded so far, then the final leaderboard is
// broadcast. Stop while already Stopped returns ErrInvalidState and
// mutates nothing.
func (s *Session) Stop(ctx context.Context, adminID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.IsAdmin(adminID) {
		return "", ErrUnauthorized
	}
	if s.state != StateRunning {
		return "", ErrInvalidState
	}

	s.finishLocked(ctx, "Game stopped by admin.")
	log.Info().Int64("session_id", s.sessionID).Str("admin", adminID).Msg("Game stopped")
	return "Game stopped!", nil
}

// Shutdown ends a running game without an admin check, settling any
// open round first. Used on process exit so scores are not lost.
func (s *Session) Shutdown(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return
	}
	s.finishLocked(ctx, "Game paused, the bot is going offline. Scores are saved!")
	log.Info().Int64("session_id", s.sessionID).Msg("Game shut down")
}

// Skip closes the open round immediately with the submissions recorded
// so far, as if the answer window had elapsed. The next round still
// opens on its original schedule.
func (s *Session) Skip(ctx context.Context, adminID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.IsAdmin(adminID) {
		return "", ErrUnauthorized
	}
	if s.state != StateRunning || s.round == nil || s.round.Status != RoundOpen {
		return "", ErrInvalidState
	}

	if s.closeTim != nil {
		s.closeTim.Stop()
	}
	s.settleLocked(ctx)
	return "Question skipped!", nil
}

// Submit records a player's answer for the open round. Grading is
// deferred to round close so correctness cannot be probed mid-round.
// The check-and-insert is atomic under the session mutex: ban, open
// round, and duplicate checks plus the insert happen with no window
// for a second submission from the same player to slip through.
//
// nodeID is kept exactly as the mesh reports it ("!a1b2c3d4"): that
// form keys the submission set, the in-memory scores, and every Ledger
// write. NormalizeNodeID is only for matching operator-typed
// identifiers against mesh ids.
func (s *Session) Submit(ctx context.Context, nodeID, username, text string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.banned[NormalizeNodeID(nodeID)] {
		return "", ErrBanned
	}
	if s.state != StateRunning || s.round == nil || s.round.Status != RoundOpen {
		return "", ErrNoOpenRound
	}
	now := s.now()
	if now.After(s.round.ClosesAt) {
		// Late arrival: the close timer has not been processed yet but
		// the window has elapsed. Rejected, never silently scored.
		return "", ErrNoOpenRound
	}
	if _, dup := s.subs[nodeID]; dup {
		return "", ErrDuplicateSubmission
	}

	s.subs[nodeID] = &Submission{
		NodeID:    nodeID,
		Username:  username,
		Round:     s.round.Number,
		Text:      text,
		ArrivedAt: now,
	}
	s.order = append(s.order, nodeID)
	if username != "" {
		s.names[nodeID] = username
	}

	return "Answer received! Results when the round closes.", nil
}

// Join adds a player to the running game and DMs them the open
// question, if any.
func (s *Session) Join(nodeID, username string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning {
		return "", ErrInvalidState
	}

	if _, ok := s.players[nodeID]; ok {
		return "You're already in the game!", nil
	}
	s.players[nodeID] = username
	if username != "" {
		s.names[nodeID] = username
	}

	if s.round != nil && s.round.Status == RoundOpen {
		s.out.DirectMessage(nodeID, roundDMText(s.round, s.cfg.MaxRounds))
	}

	return fmt.Sprintf("You're in! %d players joined. Good luck!", len(s.players)), nil
}

// Ban excludes a node from submitting and scoring. Already-applied
// deltas are not removed.
func (s *Session) Ban(ctx context.Context, adminID, targetID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.IsAdmin(adminID) {
		return "", ErrUnauthorized
	}

	id := NormalizeNodeID(targetID)
	s.banned[id] = true
	if s.bans != nil {
		if err := s.bans.Ban(ctx, id, NormalizeNodeID(adminID), "admin ban"); err != nil {
			log.Warn().Err(err).Str("node_id", id).Msg("Failed to persist ban")
		}
	}
	log.Info().Str("node_id", id).Str("admin", adminID).Msg("Player banned")
	return fmt.Sprintf("Banned %s", id), nil
}

// Unban lifts a ban.
func (s *Session) Unban(ctx context.Context, adminID, targetID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.gate.IsAdmin(adminID) {
		return "", ErrUnauthorized
	}

	id := NormalizeNodeID(targetID)
	delete(s.banned, id)
	if s.bans != nil {
		if err := s.bans.Unban(ctx, id); err != nil {
			log.Warn().Err(err).Str("node_id", id).Msg("Failed to persist unban")
		}
	}
	return fmt.Sprintf("Unbanned %s", id), nil
}

// Status reports the session state. Read-only, available to everyone.
func (s *Session) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle:
		return "No game in progress."
	case StateStopped:
		return "Game over. Waiting for an admin to start a new one."
	}

	status := fmt.Sprintf("Game #%d\nRound %d/%d", s.sessionID, s.roundNum, s.cfg.MaxRounds)
	if s.round != nil && s.round.Status == RoundOpen {
		remaining := s.round.ClosesAt.Sub(s.now()).Round(time.Second)
		status += fmt.Sprintf("\nQuestion open, %s left", remaining)
	}
	return status
}

// Scores reports the session leaderboard. Read-only.
func (s *Session) Scores() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	standings := s.standingsLocked(5)
	if len(standings) == 0 {
		return "No scores yet!"
	}
	return "LEADERBOARD:\n" + formatStandings(standings)
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// openRound is the next-open timer callback. It no-ops if the game
// stopped or restarted since it was scheduled.
func (s *Session) openRound(gen int) {
	defer s.recoverCallback("open round")
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning || gen != s.gen {
		return
	}

	// The interval can elapse before the answer window when they are
	// configured equal or inverted. Never replace an open round without
	// settling its recorded submissions first.
	if s.round != nil && s.round.Status == RoundOpen {
		if s.closeTim != nil {
			s.closeTim.Stop()
		}
		s.settleLocked(context.Background())
	}

	if s.roundNum >= s.cfg.MaxRounds || s.nextQ >= len(s.bank) {
		s.finishLocked(context.Background(), "Final round complete!")
		return
	}

	q := s.bank[s.nextQ]
	s.nextQ++
	s.roundNum++

	now := s.now()
	s.round = &Round{
		Number:   s.roundNum,
		Question: q,
		OpensAt:  now,
		ClosesAt: now.Add(s.cfg.AnswerWindow),
		Status:   RoundOpen,
	}
	s.subs = make(map[string]*Submission)
	s.order = nil

	log.Info().
		Int64("session_id", s.sessionID).
		Int("round", s.roundNum).
		Int64("points", q.Points).
		Msg("Round opened")

	s.out.Broadcast(roundOpenText(s.round, s.cfg.MaxRounds, s.cfg.AnswerWindow))
	for id := range s.players {
		s.out.DirectMessage(id, roundDMText(s.round, s.cfg.MaxRounds))
	}

	// The close and next-open timers run independently: the interval is
	// measured from round open, so a skip neither compresses nor
	// stretches the schedule.
	number := s.roundNum
	s.closeTim = s.sched.After(s.cfg.AnswerWindow, func() { s.closeRound(gen, number) })
	s.nextTim = s.sched.After(s.cfg.QuestionInterval, func() { s.openRound(gen) })
}

// closeRound is the answer-window timer callback. If a skip or stop
// already settled the round, the status check makes this a no-op.
func (s *Session) closeRound(gen, number int) {
	defer s.recoverCallback("close round")
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateRunning || gen != s.gen {
		return
	}
	if s.round == nil || s.round.Number != number || s.round.Status != RoundOpen {
		return
	}

	s.settleLocked(context.Background())
}

// settleLocked grades all recorded submissions, applies deltas through
// the Ledger, and broadcasts the settlement. Caller holds the mutex and
// has verified the round is open.
func (s *Session) settleLocked(ctx context.Context) {
	round := s.round
	round.Status = RoundGrading

	var results []scoreResult
	for _, id := range s.order {
		sub := s.subs[id]
		delta := round.Question.Points
		if !round.Question.Matches(sub.Text) {
			delta = -round.Question.Points
		}

		applied, err := s.ledger.ApplyDelta(ctx, model.ScoreEvent{
			SessionID: s.sessionID,
			Round:     round.Number,
			NodeID:    sub.NodeID,
			Username:  sub.Username,
			Answer:    sub.Text,
			Delta:     delta,
		})
		if err != nil {
			// Fatal for this round's durability, not for the session.
			log.Error().Err(err).
				Int64("session_id", s.sessionID).
				Int("round", round.Number).
				Str("node_id", sub.NodeID).
				Msg("Failed to persist score delta")
		}
		if err != nil || applied {
			// Keep the in-memory table moving even when persistence
			// fails; skip only confirmed duplicates.
			if _, seen := s.scores[sub.NodeID]; !seen {
				s.scored = append(s.scored, sub.NodeID)
			}
			s.scores[sub.NodeID] += delta
			results = append(results, scoreResult{Name: s.displayName(sub.NodeID), Delta: delta})
		}
	}

	round.Status = RoundClosed

	if err := s.ledger.RoundSettled(ctx, s.sessionID, round.Number); err != nil {
		log.Warn().Err(err).
			Int64("session_id", s.sessionID).
			Int("round", round.Number).
			Msg("Failed to record round settlement")
	}

	log.Info().
		Int64("session_id", s.sessionID).
		Int("round", round.Number).
		Int("scored", len(results)).
		Msg("Round settled")

	s.out.Broadcast(settlementText(round.Question, results, s.standingsLocked(3)))
}

// finishLocked settles any open round, broadcasts the final leaderboard,
// and transitions to Stopped. Caller holds the mutex.
func (s *Session) finishLocked(ctx context.Context, reason string) {
	if s.closeTim != nil {
		s.closeTim.Stop()
	}
	if s.nextTim != nil {
		s.nextTim.Stop()
	}

	if s.round != nil && s.round.Status == RoundOpen {
		s.settleLocked(ctx)
	}

	if err := s.ledger.CloseSession(ctx, s.sessionID); err != nil {
		log.Error().Err(err).Int64("session_id", s.sessionID).Msg("Failed to close session record")
	}

	s.out.Broadcast(finalText(reason, s.standingsLocked(5)))
	s.state = StateStopped
	s.round = nil
	s.gen++
}

// standingsLocked returns the top n session standings, descending by
// points. Ties break by stable first-score order; the original's
// time-to-score tie-break is not tracked (documented limitation).
func (s *Session) standingsLocked(n int) []model.Standing {
	standings := make([]model.Standing, 0, len(s.scored))
	for _, id := range s.scored {
		standings = append(standings, model.Standing{
			NodeID:   id,
			Username: s.displayName(id),
			Points:   s.scores[id],
		})
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Points > standings[j].Points
	})
	if len(standings) > n {
		standings = standings[:n]
	}
	return standings
}

func (s *Session) displayName(nodeID string) string {
	if name := s.names[nodeID]; name != "" {
		return name
	}
	return nodeID
}

func (s *Session) introText() string {
	if s.intro != nil {
		if text := s.intro(); text != "" {
			return text
		}
	}
	return staticIntroText(s.cfg)
}

// recoverCallback keeps a grading or announcement panic inside a timer
// callback from crashing the process. The interval timer is already
// scheduled, so the session proceeds to the next round.
func (s *Session) recoverCallback(op string) {
	if r := recover(); r != nil {
		log.Error().Interface("panic", r).Str("op", op).Msg("Recovered from panic in timer callback")
	}
}
