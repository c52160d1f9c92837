// Package trivia is the casual, untimed quiz personality. Anyone can
// request a question with !trivia, answers are matched from channel or
// direct messages, and each player can score each question only once.
package trivia

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	"meshtastic-game-bot/internal/jeopardy"
	"meshtastic-game-bot/internal/mesh"
	"meshtastic-game-bot/internal/model"
	"meshtastic-game-bot/internal/personality"
)

// leaderboardSize is how many players the !leaderboard reply shows.
const leaderboardSize = 5

// Awarder records trivia scores. Satisfied by service.ScoreKeeper and
// service.MemoryLedger.
type Awarder interface {
	AwardOnce(ctx context.Context, nodeID, username string, points int64, questionID string) (bool, error)
	TopPlayers(ctx context.Context, n int) ([]model.Standing, error)
}

// Chatter is an optional conversational backend for !llm.
type Chatter interface {
	Available(ctx context.Context) bool
	Chat(ctx context.Context, prompt, system string) (string, error)
}

// Trivia asks one question at a time and scores first-come answers.
type Trivia struct {
	awarder Awarder
	chatter Chatter
	bank    []jeopardy.Question
	points  int64

	mu      sync.Mutex
	current *jeopardy.Question
}

// New creates the trivia personality. chatter may be nil when no LLM
// endpoint is configured.
func New(awarder Awarder, chatter Chatter, bank []jeopardy.Question, pointValue int64) *Trivia {
	if pointValue <= 0 {
		pointValue = jeopardy.DefaultPointValue
	}
	return &Trivia{
		awarder: awarder,
		chatter: chatter,
		bank:    bank,
		points:  pointValue,
	}
}

func (t *Trivia) Name() string    { return "Trivia" }
func (t *Trivia) Command() string { return "trivia" }

// Aliases registers the extra top-level commands this personality owns.
func (t *Trivia) Aliases() []string { return []string{"leaderboard", "llm"} }

func (t *Trivia) Help() string {
	return "!trivia - new question, !trivia skip - reveal answer, !leaderboard - top players, !llm <text> - chat"
}

// HandleCommand serves !trivia and its aliases. Aliases arrive with the
// alias name as args[0].
func (t *Trivia) HandleCommand(ctx context.Context, msg mesh.Message, args []string) (personality.Reply, error) {
	if len(args) > 0 {
		switch strings.ToLower(args[0]) {
		case "leaderboard":
			return t.leaderboard(ctx)
		case "llm":
			return t.chat(ctx, strings.Join(args[1:], " "))
		case "skip":
			return t.skip(), nil
		case "help":
			return personality.Reply{Text: t.Help(), Direct: true}, nil
		}
	}
	return t.ask(), nil
}

// HandleMessage matches free-form text against the open question.
func (t *Trivia) HandleMessage(ctx context.Context, msg mesh.Message) (personality.Reply, error) {
	t.mu.Lock()
	q := t.current
	t.mu.Unlock()
	if q == nil || !q.Matches(msg.Text) {
		return personality.Reply{}, nil
	}

	name := msg.FromName
	if name == "" {
		name = msg.From
	}
	awarded, err := t.awarder.AwardOnce(ctx, msg.From, msg.FromName, t.points, q.ID)
	if err != nil {
		return personality.Reply{}, fmt.Errorf("failed to award trivia points: %w", err)
	}
	if !awarded {
		return personality.Reply{Text: "Right again, but you already scored on that one!", Direct: true}, nil
	}

	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()
	return personality.Reply{Text: fmt.Sprintf("Correct! %s gets %d points. !trivia for another.", name, t.points)}, nil
}

func (t *Trivia) ask() personality.Reply {
	if len(t.bank) == 0 {
		return personality.Reply{Text: "No trivia questions loaded.", Direct: true}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		q := t.bank[rand.Intn(len(t.bank))]
		t.current = &q
	}
	return personality.Reply{Text: fmt.Sprintf("Trivia time (%d pts): %s", t.points, t.current.Prompt)}
}

func (t *Trivia) skip() personality.Reply {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return personality.Reply{Text: "No open trivia question. !trivia to get one.", Direct: true}
	}
	answer := ""
	if len(t.current.Answers) > 0 {
		answer = t.current.Answers[0]
	}
	t.current = nil
	return personality.Reply{Text: fmt.Sprintf("The answer was: %s. !trivia for the next one.", answer)}
}

func (t *Trivia) leaderboard(ctx context.Context) (personality.Reply, error) {
	standings, err := t.awarder.TopPlayers(ctx, leaderboardSize)
	if err != nil {
		return personality.Reply{}, fmt.Errorf("failed to load leaderboard: %w", err)
	}
	if len(standings) == 0 {
		return personality.Reply{Text: "No scores yet. Play some trivia!"}, nil
	}

	var b strings.Builder
	b.WriteString("All-time leaderboard:")
	for i, s := range standings {
		fmt.Fprintf(&b, "\n%d. %s: %d", i+1, s.Username, s.Points)
	}
	return personality.Reply{Text: b.String()}, nil
}

func (t *Trivia) chat(ctx context.Context, prompt string) (personality.Reply, error) {
	if prompt == "" {
		return personality.Reply{Text: "Usage: !llm <your question>", Direct: true}, nil
	}
	if t.chatter == nil || !t.chatter.Available(ctx) {
		return personality.Reply{Text: "The AI brain is offline right now.", Direct: true}, nil
	}

	reply, err := t.chatter.Chat(ctx, prompt,
		"You are a helpful assistant on a low-bandwidth mesh network. Answer in one or two short sentences.")
	if err != nil {
		return personality.Reply{Text: "The AI brain glitched, try again later.", Direct: true}, nil
	}
	return personality.Reply{Text: reply, Direct: true}, nil
}
