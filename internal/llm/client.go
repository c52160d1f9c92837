// Package llm provides AI host commentary via any OpenAI-compatible
// endpoint (Ollama, OpenAI, and friends). The bot works without it;
// callers fall back to static text when the service is unreachable.
package llm

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/rs/zerolog/log"
)

// maxReplyLen caps responses so they fit mesh packet budgets after
// chunking; anything longer gets truncated with an ellipsis.
const maxReplyLen = 220

// Client wraps an OpenAI-compatible chat endpoint.
type Client struct {
	client openai.Client
	model  string

	mu        sync.Mutex
	checked   bool
	available bool
}

// New creates a client for the given endpoint. api key "ollama" is the
// conventional placeholder for local Ollama.
func New(baseURL, model, apiKey string) *Client {
	return &Client{
		client: openai.NewClient(
			option.WithBaseURL(baseURL),
			option.WithAPIKey(apiKey),
		),
		model: model,
	}
}

// Available probes the endpoint once and caches the result.
func (c *Client) Available(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.checked {
		return c.available
	}
	c.checked = true

	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := c.client.Models.List(probeCtx); err != nil {
		log.Warn().Err(err).Msg("LLM service not available")
		c.available = false
		return false
	}
	c.available = true
	return true
}

// Chat sends a prompt and returns the truncated response.
func (c *Client) Chat(ctx context.Context, prompt, systemPrompt string) (string, error) {
	messages := []openai.ChatCompletionMessageParamUnion{}
	if systemPrompt != "" {
		messages = append(messages, openai.SystemMessage(systemPrompt))
	}
	messages = append(messages, openai.UserMessage(prompt))

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(c.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("llm chat failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("llm returned no choices")
	}

	return Truncate(resp.Choices[0].Message.Content), nil
}

// Truncate clips text to the mesh-friendly reply length.
func Truncate(s string) string {
	if len(s) > maxReplyLen {
		return s[:maxReplyLen-3] + "..."
	}
	return s
}

// GameIntro generates an enthusiastic Hacker Jeopardy welcome, or ""
// when the service is unavailable so the caller uses its static text.
func (c *Client) GameIntro(ctx context.Context, rounds int, answerWindow, interval time.Duration) string {
	if !c.Available(ctx) {
		return ""
	}

	system := "You are the charismatic host of Hacker Jeopardy, a live cybersecurity trivia game on a mesh network. " +
		"Be enthusiastic, witty, and reference hacking culture. Keep response under 200 characters total. Be BRIEF but entertaining."
	prompt := fmt.Sprintf(
		"Welcome players to Hacker Jeopardy! Explain: questions every %d mins, DM answers, %d min window, correct = +points, wrong = -points, %d rounds.",
		int(interval.Minutes()), int(answerWindow.Minutes()), rounds)

	intro, err := c.Chat(ctx, prompt, system)
	if err != nil {
		log.Warn().Err(err).Msg("LLM intro generation failed")
		return ""
	}
	return intro
}
