// Package llm asks an OpenAI-compatible chat model for free-form
// concierge answers when no deterministic handler matched.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alpenlodge/concierge/pkg/logging"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4.1-mini"
	defaultTimeout = 25 * time.Second
)

// The guardrails matter more than the persona: the model must never
// invent prices or availability, those always come from Smoobu.
const systemPrompt = `Du bist der freundliche Concierge der Alpenlodge in Tirol.
Beantworte Fragen zu Haus, Region und Anreise kurz und herzlich.
Regeln:
- Nenne NIEMALS konkrete Preise oder Verfügbarkeiten. Verweise dafür auf die Buchungsseite /buchen/ oder bitte den Gast, ein Datum zu nennen.
- Erfinde keine Fakten über das Haus. Wenn du etwas nicht weißt, sage das ehrlich.
- Antworte in der Sprache des Gastes.`

// Message is one chat-completion turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client is a minimal chat-completions client.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
	logger     *logging.Logger
}

// NewClient creates an LLM client. Empty baseURL and model fall back to
// the OpenAI defaults.
func NewClient(apiKey, baseURL, model string, logger *logging.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     logger,
	}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool { return c != nil && c.apiKey != "" }

// Reply answers the user's question given the recent history. hint, when
// non-empty, is injected as extra grounding context (e.g. a knowledge
// snippet).
func (c *Client) Reply(ctx context.Context, history []Message, question, hint string) (string, error) {
	if !c.Configured() {
		return "", errors.New("llm: missing api key")
	}

	messages := make([]Message, 0, len(history)+3)
	messages = append(messages, Message{Role: "system", Content: systemPrompt})
	if hint != "" {
		messages = append(messages, Message{Role: "system", Content: "Kontext: " + hint})
	}
	// Keep only the recent tail so the request stays small.
	if len(history) > 10 {
		history = history[len(history)-10:]
	}
	messages = append(messages, history...)
	messages = append(messages, Message{Role: "user", Content: question})

	payload := map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": 0.4,
		"max_tokens":  400,
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(raw))
	if err != nil {
		return "", fmt.Errorf("llm: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		msg := string(body)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		return "", fmt.Errorf("llm: status %d: %s", resp.StatusCode, msg)
	}

	var out struct {
		Choices []struct {
			Message Message `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("llm: unmarshal response: %w", err)
	}
	if len(out.Choices) == 0 {
		return "", errors.New("llm: empty completion")
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
