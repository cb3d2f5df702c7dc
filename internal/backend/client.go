// Package backend is the HTTP client for the text-generation backend.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/moepig/qqbridge/internal/config"
	"github.com/moepig/qqbridge/internal/logging"
)

// maxErrBody bounds how much of an error response is kept for diagnostics.
const maxErrBody = 200

// Error is a failed backend exchange: a non-success response or a
// transport/timeout failure surfaced by the HTTP client.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("backend: HTTP %d: %s", e.Status, e.Body)
}

// Responder dispatches a prompt for a conversation and returns the reply
// text. An empty reply with nil error means the backend chose not to answer.
type Responder interface {
	Dispatch(ctx context.Context, text, conversationID string) (string, error)
}

// Client issues OpenResponses-style requests to the backend.
type Client struct {
	url    string
	token  string
	model  string
	client *http.Client
	log    *logging.Logger
}

// New creates a backend client from configuration.
func New(cfg config.BackendConfig, log *logging.Logger) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		url:    cfg.URL,
		token:  cfg.Token,
		model:  cfg.Model,
		client: &http.Client{Timeout: timeout},
		log:    log.Sub("backend"),
	}
}

type request struct {
	Model  string `json:"model"`
	Input  string `json:"input"`
	User   string `json:"user"`
	Stream bool   `json:"stream"`
}

type response struct {
	Output []outputItem `json:"output"`
}

type outputItem struct {
	Type    string        `json:"type"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Dispatch sends the prompt with the conversation identity as the session
// correlation key and extracts the reply text from the response envelope.
func (c *Client) Dispatch(ctx context.Context, text, conversationID string) (string, error) {
	payload, err := json.Marshal(request{
		Model:  c.model,
		Input:  text,
		User:   conversationID,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	c.log.Info().
		Str("session", conversationID).
		Str("text", truncate(text, 100)).
		Msg("dispatching to backend")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, strings.NewReader(string(payload)))
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return "", &Error{Status: 0, Body: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &Error{Status: resp.StatusCode, Body: truncate(string(body), maxErrBody)}
	}

	var parsed response
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}

	reply := collectText(parsed)
	if reply != "" {
		c.log.Info().Int("len", len(reply)).Msg("backend replied")
	}
	return reply, nil
}

// collectText joins the output_text parts of message items with newlines.
// An empty result is "no reply", not an error.
func collectText(resp response) string {
	var texts []string
	for _, item := range resp.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Type == "output_text" && part.Text != "" {
				texts = append(texts, part.Text)
			}
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
