// Package bot routes inbound mesh messages to personalities and
// delivers their replies.
package bot

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"meshtastic-game-bot/internal/mesh"
	"meshtastic-game-bot/internal/personality"
)

// Listener produces inbound mesh messages. Satisfied by *mesh.Gateway.
type Listener interface {
	Listen(ctx context.Context, handler func(mesh.Message)) error
}

// aliaser is implemented by personalities that own extra top-level
// commands besides their primary one.
type aliaser interface {
	Aliases() []string
}

// Presence records that a node was heard from. Satisfied by
// repository.PlayerRepository.
type Presence interface {
	Touch(ctx context.Context, nodeID, username string) error
}

// Router dispatches messages: bang commands go to the owning
// personality, everything else is offered to each personality in turn.
type Router struct {
	registry *personality.Registry
	sender   mesh.Sender
	channel  int
	presence Presence
	aliases  map[string]personality.Personality
}

// NewRouter creates a router replying on the given channel index.
func NewRouter(registry *personality.Registry, sender mesh.Sender, channel int) *Router {
	r := &Router{
		registry: registry,
		sender:   sender,
		channel:  channel,
		aliases:  make(map[string]personality.Personality),
	}
	for _, p := range registry.List() {
		if a, ok := p.(aliaser); ok {
			for _, alias := range a.Aliases() {
				r.aliases[alias] = p
			}
		}
	}
	return r
}

// WithPresence enables last-seen tracking for every sender heard from.
func (r *Router) WithPresence(p Presence) *Router {
	r.presence = p
	return r
}

// Run consumes messages until the listener fails or ctx is cancelled.
func (r *Router) Run(ctx context.Context, listener Listener) error {
	return listener.Listen(ctx, func(msg mesh.Message) {
		r.Handle(ctx, msg)
	})
}

// Handle processes one inbound message.
func (r *Router) Handle(ctx context.Context, msg mesh.Message) {
	text := strings.TrimSpace(msg.Text)
	if text == "" || msg.From == "" {
		return
	}

	log.Debug().
		Str("from", msg.From).
		Str("from_name", msg.FromName).
		Int("channel", msg.Channel).
		Bool("dm", msg.IsDM()).
		Str("text", text).
		Msg("Message received")

	if r.presence != nil {
		if err := r.presence.Touch(ctx, msg.From, msg.FromName); err != nil {
			log.Warn().Err(err).Str("node_id", msg.From).Msg("Failed to record presence")
		}
	}

	if strings.HasPrefix(text, "!") {
		r.handleCommand(ctx, msg, text)
		return
	}
	r.handleFreeText(ctx, msg)
}

func (r *Router) handleCommand(ctx context.Context, msg mesh.Message, text string) {
	fields := strings.Fields(strings.TrimPrefix(text, "!"))
	if len(fields) == 0 {
		return
	}
	cmd := strings.ToLower(fields[0])
	args := fields[1:]

	if cmd == "help" {
		r.deliver(msg, personality.Reply{Text: r.helpText(), Direct: true})
		return
	}

	p, ok := r.registry.Get(cmd)
	if !ok {
		// Aliased commands keep their name as args[0] so the
		// personality can tell them apart.
		if p, ok = r.aliases[cmd]; ok {
			args = append([]string{cmd}, args...)
		}
	}
	if !ok {
		log.Debug().Str("command", cmd).Msg("Unknown command ignored")
		return
	}

	reply, err := p.HandleCommand(ctx, msg, args)
	if err != nil {
		log.Error().Err(err).Str("command", cmd).Str("from", msg.From).Msg("Command failed")
		r.deliver(msg, personality.Reply{Text: "Something went wrong, try again later.", Direct: true})
		return
	}
	r.deliver(msg, reply)
}

func (r *Router) handleFreeText(ctx context.Context, msg mesh.Message) {
	for _, p := range r.registry.List() {
		reply, err := p.HandleMessage(ctx, msg)
		if err != nil {
			log.Error().Err(err).Str("personality", p.Name()).Str("from", msg.From).Msg("Message handler failed")
			continue
		}
		if reply.Text != "" {
			r.deliver(msg, reply)
			return
		}
	}
}

func (r *Router) deliver(msg mesh.Message, reply personality.Reply) {
	if reply.Text == "" {
		return
	}
	ctx := context.Background()

	var err error
	if reply.Direct || msg.IsDM() {
		err = r.sender.SendText(ctx, reply.Text, msg.From)
	} else {
		err = r.sender.Broadcast(ctx, reply.Text, r.channel)
	}
	if err != nil {
		log.Error().Err(err).Str("to", msg.From).Msg("Reply delivery failed")
	}
}

func (r *Router) helpText() string {
	lines := []string{"Available games:"}
	for _, p := range r.registry.List() {
		lines = append(lines, p.Help())
	}
	return strings.Join(lines, "\n")
}
