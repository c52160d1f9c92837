package trivia

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meshtastic-game-bot/internal/jeopardy"
	"meshtastic-game-bot/internal/mesh"
	"meshtastic-game-bot/internal/service"
)

func singleQuestionBank() []jeopardy.Question {
	return []jeopardy.Question{
		{ID: "t0", Prompt: "What does GPS stand for?", Points: 10, Answers: []string{"global positioning system"}},
	}
}

func channelMsg(from, text string) mesh.Message {
	return mesh.Message{From: from, FromName: from, Channel: 2, Text: text}
}

func TestTrivia_AskAndAnswer(t *testing.T) {
	ledger := service.NewMemoryLedger()
	tr := New(ledger, nil, singleQuestionBank(), 10)
	ctx := context.Background()

	reply, err := tr.HandleCommand(ctx, channelMsg("!alice", "!trivia"), nil)
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "GPS")

	// Wrong answers pass silently so normal chatter is not punished.
	reply, err = tr.HandleMessage(ctx, channelMsg("!alice", "nope"))
	require.NoError(t, err)
	assert.Empty(t, reply.Text)

	reply, err = tr.HandleMessage(ctx, channelMsg("!alice", "Global Positioning System"))
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Correct!")
	assert.Equal(t, int64(10), ledger.Total("!alice"))

	// The question closed with the correct answer.
	reply, err = tr.HandleMessage(ctx, channelMsg("!bob", "global positioning system"))
	require.NoError(t, err)
	assert.Empty(t, reply.Text)
}

func TestTrivia_ScoresOncePerQuestion(t *testing.T) {
	ledger := service.NewMemoryLedger()
	tr := New(ledger, nil, singleQuestionBank(), 10)
	ctx := context.Background()

	_, err := tr.HandleCommand(ctx, channelMsg("!alice", "!trivia"), nil)
	require.NoError(t, err)
	_, err = tr.HandleMessage(ctx, channelMsg("!alice", "global positioning system"))
	require.NoError(t, err)

	// The bank has one question, so the reask serves the same id and
	// the repeat answer must not double-score.
	_, err = tr.HandleCommand(ctx, channelMsg("!alice", "!trivia"), nil)
	require.NoError(t, err)
	reply, err := tr.HandleMessage(ctx, channelMsg("!alice", "global positioning system"))
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "already")
	assert.Equal(t, int64(10), ledger.Total("!alice"))
}

func TestTrivia_AskIsIdempotentWhileOpen(t *testing.T) {
	tr := New(service.NewMemoryLedger(), nil, singleQuestionBank(), 10)
	ctx := context.Background()

	first, err := tr.HandleCommand(ctx, channelMsg("!alice", "!trivia"), nil)
	require.NoError(t, err)
	second, err := tr.HandleCommand(ctx, channelMsg("!bob", "!trivia"), nil)
	require.NoError(t, err)
	assert.Equal(t, first.Text, second.Text)
}

func TestTrivia_Skip(t *testing.T) {
	tr := New(service.NewMemoryLedger(), nil, singleQuestionBank(), 10)
	ctx := context.Background()

	reply, err := tr.HandleCommand(ctx, channelMsg("!alice", ""), []string{"skip"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "No open trivia question")

	_, err = tr.HandleCommand(ctx, channelMsg("!alice", "!trivia"), nil)
	require.NoError(t, err)

	reply, err = tr.HandleCommand(ctx, channelMsg("!alice", ""), []string{"skip"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "global positioning system")
}

func TestTrivia_Leaderboard(t *testing.T) {
	ledger := service.NewMemoryLedger()
	tr := New(ledger, nil, singleQuestionBank(), 10)
	ctx := context.Background()

	reply, err := tr.HandleCommand(ctx, channelMsg("!alice", ""), []string{"leaderboard"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "No scores yet")

	_, err = ledger.AwardOnce(ctx, "!alice", "alice", 30, "x1")
	require.NoError(t, err)
	_, err = ledger.AwardOnce(ctx, "!bob", "bob", 20, "x1")
	require.NoError(t, err)

	reply, err = tr.HandleCommand(ctx, channelMsg("!carol", ""), []string{"leaderboard"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "1. alice: 30")
	assert.Contains(t, reply.Text, "2. bob: 20")
}

type noopTimer struct{}

func (noopTimer) Stop() bool { return false }

type captureScheduler struct{ fns []func() }

func (s *captureScheduler) After(d time.Duration, fn func()) jeopardy.Timer {
	s.fns = append(s.fns, fn)
	return noopTimer{}
}

type silentAnnouncer struct{}

func (silentAnnouncer) Broadcast(string) {}

func (silentAnnouncer) DirectMessage(string, string) {}

// Jeopardy settlements and trivia awards land under the same ledger
// identity: the node id as the mesh reports it. A mismatch would fork
// one player's cumulative total into two rows.
func TestTrivia_SharesLedgerIdentityWithJeopardy(t *testing.T) {
	ledger := service.NewMemoryLedger()
	ctx := context.Background()

	sched := &captureScheduler{}
	gate := jeopardy.NewAdminGate([]string{"!admin001"})
	bank := []jeopardy.Question{
		{ID: "j0", Prompt: "What port does SSH use?", Points: 200, Answers: []string{"22"}},
	}
	cfg := jeopardy.Config{
		AnswerWindow:     time.Minute,
		QuestionInterval: 2 * time.Minute,
		MaxRounds:        1,
		JoinWindow:       time.Second,
	}
	sess := jeopardy.NewSession(cfg, gate, ledger, sched, silentAnnouncer{}, bank)

	_, err := sess.Start(ctx, "!admin001")
	require.NoError(t, err)
	sched.fns[0]() // round 1 opens
	_, err = sess.Submit(ctx, "!alice", "alice", "22")
	require.NoError(t, err)
	sched.fns[1]() // round 1 settles

	tr := New(ledger, nil, singleQuestionBank(), 10)
	_, err = tr.HandleCommand(ctx, channelMsg("!alice", "!trivia"), nil)
	require.NoError(t, err)
	_, err = tr.HandleMessage(ctx, channelMsg("!alice", "global positioning system"))
	require.NoError(t, err)

	assert.Equal(t, int64(210), ledger.Total("!alice"))
	assert.Equal(t, int64(0), ledger.Total("alice"))
}

func TestTrivia_LLMOffline(t *testing.T) {
	tr := New(service.NewMemoryLedger(), nil, singleQuestionBank(), 10)

	reply, err := tr.HandleCommand(context.Background(), channelMsg("!alice", ""), []string{"llm", "hello"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "offline")

	reply, err = tr.HandleCommand(context.Background(), channelMsg("!alice", ""), []string{"llm"})
	require.NoError(t, err)
	assert.Contains(t, reply.Text, "Usage")
}
