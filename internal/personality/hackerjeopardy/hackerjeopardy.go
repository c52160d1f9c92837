// Package hackerjeopardy adapts the jeopardy game engine to the bot's
// personality interface, translating !hj commands and DM answers into
// engine calls and engine errors into player-facing replies.
package hackerjeopardy

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"meshtastic-game-bot/internal/jeopardy"
	"meshtastic-game-bot/internal/mesh"
	"meshtastic-game-bot/internal/personality"
)

// HackerJeopardy routes mesh messages to a jeopardy.Session.
type HackerJeopardy struct {
	session *jeopardy.Session
}

// New creates the Hacker Jeopardy personality around an engine session.
func New(session *jeopardy.Session) *HackerJeopardy {
	return &HackerJeopardy{session: session}
}

func (h *HackerJeopardy) Name() string    { return "Hacker Jeopardy" }
func (h *HackerJeopardy) Command() string { return "hj" }

func (h *HackerJeopardy) Help() string {
	return "!hj start|stop|next|join|status|scores|ban <node>|unban <node> - Hacker Jeopardy game"
}

// HandleCommand dispatches !hj subcommands.
func (h *HackerJeopardy) HandleCommand(ctx context.Context, msg mesh.Message, args []string) (personality.Reply, error) {
	if len(args) == 0 {
		return personality.Reply{Text: h.Help(), Direct: true}, nil
	}

	sub := strings.ToLower(args[0])
	switch sub {
	case "start":
		text, err := h.session.Start(ctx, msg.From)
		return h.reply(msg, text, err)
	case "stop":
		text, err := h.session.Stop(ctx, msg.From)
		return h.reply(msg, text, err)
	case "next":
		text, err := h.session.Skip(ctx, msg.From)
		return h.reply(msg, text, err)
	case "join":
		text, err := h.session.Join(msg.From, msg.FromName)
		return h.reply(msg, text, err)
	case "status":
		return personality.Reply{Text: h.session.Status(), Direct: true}, nil
	case "scores":
		return personality.Reply{Text: h.session.Scores()}, nil
	case "ban":
		if len(args) < 2 {
			return personality.Reply{Text: "Usage: !hj ban <node-id>", Direct: true}, nil
		}
		text, err := h.session.Ban(ctx, msg.From, args[1])
		return h.reply(msg, text, err)
	case "unban":
		if len(args) < 2 {
			return personality.Reply{Text: "Usage: !hj unban <node-id>", Direct: true}, nil
		}
		text, err := h.session.Unban(ctx, msg.From, args[1])
		return h.reply(msg, text, err)
	case "help":
		return personality.Reply{Text: h.Help(), Direct: true}, nil
	default:
		return personality.Reply{Text: fmt.Sprintf("Unknown subcommand %q. %s", sub, h.Help()), Direct: true}, nil
	}
}

// HandleMessage treats direct messages as answer submissions while a
// round is open. Channel chatter is ignored.
func (h *HackerJeopardy) HandleMessage(ctx context.Context, msg mesh.Message) (personality.Reply, error) {
	if !msg.IsDM() {
		return personality.Reply{}, nil
	}
	if h.session.State() != jeopardy.StateRunning {
		return personality.Reply{}, nil
	}

	text, err := h.session.Submit(ctx, msg.From, msg.FromName, msg.Text)
	if err != nil {
		if errors.Is(err, jeopardy.ErrNoOpenRound) {
			return personality.Reply{Text: "No question is open right now. Wait for the next round!", Direct: true}, nil
		}
		return h.reply(msg, text, err)
	}
	return personality.Reply{Text: text, Direct: true}, nil
}

// reply maps engine sentinel errors to friendly text. Unknown errors
// propagate so the router can log them.
func (h *HackerJeopardy) reply(msg mesh.Message, text string, err error) (personality.Reply, error) {
	if err == nil {
		return personality.Reply{Text: text, Direct: true}, nil
	}
	switch {
	case errors.Is(err, jeopardy.ErrUnauthorized):
		log.Warn().Str("node_id", msg.From).Str("text", msg.Text).Msg("Rejected admin command")
		return personality.Reply{Text: "Sorry, only game admins can do that.", Direct: true}, nil
	case errors.Is(err, jeopardy.ErrInvalidState):
		if h.session.State() == jeopardy.StateRunning {
			return personality.Reply{Text: "A game is already running. Use !hj stop first.", Direct: true}, nil
		}
		return personality.Reply{Text: "No game is currently running. Use !hj start.", Direct: true}, nil
	case errors.Is(err, jeopardy.ErrBanned):
		return personality.Reply{Text: "You are banned from this game.", Direct: true}, nil
	case errors.Is(err, jeopardy.ErrNoOpenRound):
		return personality.Reply{Text: "No question is open right now.", Direct: true}, nil
	case errors.Is(err, jeopardy.ErrDuplicateSubmission):
		return personality.Reply{Text: "You already answered this round. One answer per question!", Direct: true}, nil
	default:
		return personality.Reply{}, err
	}
}
