package bot

import (
	"context"

	"github.com/rs/zerolog/log"

	"meshtastic-game-bot/internal/mesh"
)

// MeshAnnouncer delivers game announcements over the mesh. Sends run in
// their own goroutine because the chunker paces multi-packet messages
// with delays and callers hold game locks.
type MeshAnnouncer struct {
	sender  mesh.Sender
	channel int
}

// NewMeshAnnouncer creates an announcer broadcasting on the given
// channel index.
func NewMeshAnnouncer(sender mesh.Sender, channel int) *MeshAnnouncer {
	return &MeshAnnouncer{sender: sender, channel: channel}
}

// Broadcast sends text to the game channel.
func (a *MeshAnnouncer) Broadcast(text string) {
	go func() {
		if err := a.sender.Broadcast(context.Background(), text, a.channel); err != nil {
			log.Error().Err(err).Int("channel", a.channel).Msg("Broadcast failed")
		}
	}()
}

// DirectMessage sends text to a single node.
func (a *MeshAnnouncer) DirectMessage(nodeID, text string) {
	go func() {
		if err := a.sender.SendText(context.Background(), text, nodeID); err != nil {
			log.Error().Err(err).Str("node_id", nodeID).Msg("Direct message failed")
		}
	}()
}
