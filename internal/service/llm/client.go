// Package llm relays composed prompts to the upstream completion API and
// decodes its chunked event stream into plain text deltas.
package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	promptmodel "github.com/mkessel/prompter/backend/internal/model/prompt"
)

// Wire framing of the upstream event stream.
const (
	dataPrefix = "data: "
	doneMarker = "[DONE]"
)

// ErrStreamDecode marks a stream that ended without the sentinel: either a
// malformed event line or a connection drop mid-stream. It is never silently
// treated as success.
var ErrStreamDecode = errors.New("stream decode failed")

// UpstreamError is a non-2xx initial response. It short-circuits before any
// streaming begins and carries the upstream's reported message and status.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error (status %d): %s", e.StatusCode, e.Message)
}

// Config carries the upstream endpoint settings.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
}

// Client issues streaming completion requests. The HTTP client carries no
// timeout; stream lifetime is bounded by the request context only.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// NewClient creates a relay client for the configured upstream.
func NewClient(cfg Config) *Client {
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{},
	}
}

// Model reports the configured upstream model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

type chunkEvent struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// Stream POSTs the messages with stream=true and forwards each decoded text
// delta to onDelta as it arrives, before appending it to the accumulator it
// returns. The accumulated text is returned even on error so partial replies
// can still be persisted.
//
// Error cases: a non-2xx initial status is returned as *UpstreamError and no
// delta is ever forwarded; malformed event JSON or EOF without the sentinel
// wraps ErrStreamDecode; an onDelta failure (caller gone) stops the relay and
// is returned as-is.
func (c *Client) Stream(ctx context.Context, messages []promptmodel.Message, onDelta func(string) error) (string, error) {
	payload := map[string]any{
		"model":    c.cfg.Model,
		"messages": messages,
		"stream":   true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal upstream payload: %w", err)
	}

	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build upstream request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", readUpstreamError(resp)
	}

	var full strings.Builder
	reader := bufio.NewReader(resp.Body)

	for {
		line, readErr := reader.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")

		if line != "" {
			// Strip the event marker; lines without it are decoded as-is,
			// matching lenient upstream proxies.
			data := strings.TrimPrefix(line, dataPrefix)
			if data == doneMarker {
				return full.String(), nil
			}

			var event chunkEvent
			if err := json.Unmarshal([]byte(data), &event); err != nil {
				return full.String(), fmt.Errorf("%w: malformed event: %v", ErrStreamDecode, err)
			}

			if fragment := deltaContent(event); fragment != "" {
				if err := onDelta(fragment); err != nil {
					return full.String(), fmt.Errorf("failed to forward delta: %w", err)
				}
				full.WriteString(fragment)
			}
		}

		if readErr != nil {
			if errors.Is(readErr, io.EOF) {
				// Connection dropped without the sentinel.
				return full.String(), fmt.Errorf("%w: stream ended without sentinel", ErrStreamDecode)
			}
			return full.String(), fmt.Errorf("%w: %v", ErrStreamDecode, readErr)
		}
	}
}

func deltaContent(event chunkEvent) string {
	if len(event.Choices) == 0 {
		return ""
	}
	return event.Choices[0].Delta.Content
}

// readUpstreamError extracts the upstream's error message from a non-2xx
// response body, falling back to a generic message.
func readUpstreamError(resp *http.Response) error {
	upstream := &UpstreamError{
		StatusCode: resp.StatusCode,
		Message:    "API request failed.",
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return upstream
	}

	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil && strings.TrimSpace(parsed.Error.Message) != "" {
		upstream.Message = parsed.Error.Message
	}
	return upstream
}
