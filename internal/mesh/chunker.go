package mesh

import (
	"context"
	"time"
	"unicode/utf8"
)

// DefaultChunkSize is the largest payload a single meshtastic text
// packet reliably carries.
const DefaultChunkSize = 200

// DefaultChunkDelay spaces consecutive chunks so a half-duplex radio
// can drain its transmit queue.
const DefaultChunkDelay = 500 * time.Millisecond

// Chunker wraps a Sender and splits messages longer than the packet
// limit into ordered chunks with a delay between transmissions.
type Chunker struct {
	sender Sender
	size   int
	delay  time.Duration
}

// NewChunker creates a chunking sender. Zero size or delay select the
// defaults.
func NewChunker(sender Sender, size int, delay time.Duration) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if delay <= 0 {
		delay = DefaultChunkDelay
	}
	return &Chunker{sender: sender, size: size, delay: delay}
}

// SendText sends a direct message, chunked if needed.
func (c *Chunker) SendText(ctx context.Context, text, destination string) error {
	return c.each(ctx, text, func(chunk string) error {
		return c.sender.SendText(ctx, chunk, destination)
	})
}

// Broadcast posts to a channel, chunked if needed.
func (c *Chunker) Broadcast(ctx context.Context, text string, channel int) error {
	return c.each(ctx, text, func(chunk string) error {
		return c.sender.Broadcast(ctx, chunk, channel)
	})
}

// Split returns the ordered chunks text would be sent as. Chunks are
// at most size bytes and always cut on a rune boundary so a multi-byte
// character is never torn across two packets.
func (c *Chunker) Split(text string) []string {
	if len(text) <= c.size {
		return []string{text}
	}
	var chunks []string
	for len(text) > c.size {
		cut := c.size
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		if cut == 0 {
			// A single rune wider than the chunk size cannot be split
			// cleanly; send it whole rather than corrupt it.
			_, cut = utf8.DecodeRuneInString(text)
		}
		chunks = append(chunks, text[:cut])
		text = text[cut:]
	}
	if len(text) > 0 {
		chunks = append(chunks, text)
	}
	return chunks
}

func (c *Chunker) each(ctx context.Context, text string, send func(string) error) error {
	chunks := c.Split(text)
	for i, chunk := range chunks {
		if i > 0 {
			select {
			case <-time.After(c.delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if err := send(chunk); err != nil {
			return err
		}
	}
	return nil
}
