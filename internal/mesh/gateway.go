package mesh

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// frame is the JSON wire format spoken with the gateway daemon that
// owns the serial connection to the meshtastic device.
type frame struct {
	Type     string   `json:"type"` // "rx", "tx", "channels"
	From     string   `json:"from,omitempty"`
	FromName string   `json:"from_name,omitempty"`
	To       string   `json:"to,omitempty"`
	Channel  int      `json:"channel"`
	Text     string   `json:"text,omitempty"`
	Channels []string `json:"channels,omitempty"`
}

// ErrGatewayClosed is returned when the gateway connection is gone.
var ErrGatewayClosed = errors.New("gateway connection closed")

// Gateway is a websocket client to the mesh gateway. It implements
// Sender for outbound text and feeds inbound messages to a handler.
type Gateway struct {
	conn *websocket.Conn

	writeMu  sync.Mutex
	chanMu   sync.RWMutex
	channels []string
}

// Dial connects to the gateway daemon.
func Dial(ctx context.Context, url string) (*Gateway, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mesh gateway: %w", err)
	}
	log.Info().Str("url", url).Msg("Connected to mesh gateway")
	return &Gateway{conn: conn}, nil
}

// SendText sends a direct message to one node.
func (g *Gateway) SendText(ctx context.Context, text, destination string) error {
	return g.write(frame{Type: "tx", To: destination, Text: text})
}

// Broadcast posts to a channel by index.
func (g *Gateway) Broadcast(ctx context.Context, text string, channel int) error {
	return g.write(frame{Type: "tx", To: Broadcast, Channel: channel, Text: text})
}

// AwaitChannels blocks until the gateway delivers its channel list,
// which the daemon sends on connect. Text frames arriving before the
// list are dropped. Respects the ctx deadline if one is set.
func (g *Gateway) AwaitChannels(ctx context.Context) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = g.conn.SetReadDeadline(deadline)
		defer g.conn.SetReadDeadline(time.Time{})
	}

	for {
		var f frame
		if err := g.conn.ReadJSON(&f); err != nil {
			return fmt.Errorf("failed to read channel list: %w", err)
		}
		if f.Type == "channels" {
			g.chanMu.Lock()
			g.channels = f.Channels
			g.chanMu.Unlock()
			log.Info().Strs("channels", f.Channels).Msg("Received channel list from gateway")
			return nil
		}
	}
}

// FindChannel looks up a channel index by name, case-insensitive. The
// channel list arrives from the gateway shortly after connecting;
// before that, or for unknown names, ok is false.
func (g *Gateway) FindChannel(name string) (int, bool) {
	g.chanMu.RLock()
	defer g.chanMu.RUnlock()
	for i, ch := range g.channels {
		if strings.EqualFold(ch, name) {
			return i, true
		}
	}
	return 0, false
}

// Listen reads inbound frames until the connection drops or ctx is
// canceled, calling handler for each received text message. Connection
// loss is fatal for the bot, matching the device-disconnect behavior.
func (g *Gateway) Listen(ctx context.Context, handler func(Message)) error {
	for {
		var f frame
		if err := g.conn.ReadJSON(&f); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("%w: %v", ErrGatewayClosed, err)
		}

		switch f.Type {
		case "rx":
			handler(Message{
				From:     f.From,
				FromName: f.FromName,
				Channel:  f.Channel,
				Text:     f.Text,
			})
		case "channels":
			g.chanMu.Lock()
			g.channels = f.Channels
			g.chanMu.Unlock()
			log.Info().Strs("channels", f.Channels).Msg("Received channel list from gateway")
		}
	}
}

// Close tears down the websocket connection.
func (g *Gateway) Close() error {
	return g.conn.Close()
}

func (g *Gateway) write(f frame) error {
	g.writeMu.Lock()
	defer g.writeMu.Unlock()
	if err := g.conn.WriteJSON(f); err != nil {
		return fmt.Errorf("failed to write to gateway: %w", err)
	}
	return nil
}
