// Package mesh provides the boundary to the meshtastic mesh network:
// inbound message values, outbound senders, and the websocket gateway
// client. Delivery and retransmission over the radio are the mesh's
// concern, not the bot's.
package mesh

import "context"

// Broadcast is the node id meaning "everyone on the channel".
const Broadcast = "^all"

// Message is one inbound text message from the mesh.
type Message struct {
	// From is the sender's node id, e.g. "!a1b2c3d4".
	From string
	// FromName is the sender's display name, best-effort. May be empty
	// when the node database has no entry for the sender.
	FromName string
	// Channel is the channel index the message arrived on. Channel 0
	// carries direct messages.
	Channel int
	Text    string
}

// IsDM reports whether the message was sent directly to the bot.
func (m Message) IsDM() bool {
	return m.Channel == 0
}

// Sender delivers outbound text to the mesh.
type Sender interface {
	// SendText sends a direct message to one node.
	SendText(ctx context.Context, text, destination string) error
	// Broadcast posts to a channel by index.
	Broadcast(ctx context.Context, text string, channel int) error
}
