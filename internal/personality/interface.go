// Package personality defines the bot personality interfaces and registry.
// A personality owns a command namespace (e.g. "!hj", "!trivia") and can
// also inspect free-form messages, which lets a game treat direct messages
// as answer submissions. New behaviors plug in by implementing Personality.
package personality

import (
	"context"

	"meshtastic-game-bot/internal/mesh"
)

// Reply is what a personality wants sent back after handling a message.
type Reply struct {
	// Text is the response body. Empty means no reply.
	Text string
	// Direct forces a DM to the sender even for channel messages.
	Direct bool
}

// Personality defines the interface that all bot personalities implement.
type Personality interface {
	// Name returns the personality's display name (e.g., "Hacker Jeopardy").
	Name() string

	// Command returns the bang command that routes to this personality,
	// without the leading "!" (e.g., "hj", "trivia").
	Command() string

	// Help returns a short usage summary for the help listing.
	Help() string

	// HandleCommand processes "!<command> <args>" messages addressed to
	// this personality. args excludes the command itself.
	HandleCommand(ctx context.Context, msg mesh.Message, args []string) (Reply, error)

	// HandleMessage observes messages that are not commands. Personalities
	// return an empty Reply to pass. Direct messages reach every
	// registered personality until one claims them.
	HandleMessage(ctx context.Context, msg mesh.Message) (Reply, error)
}
