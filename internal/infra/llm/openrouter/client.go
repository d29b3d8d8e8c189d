package openrouter

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
)

const defaultBaseURL = "https://openrouter.ai/api/v1"

// Config carries the OpenRouter connection settings.
type Config struct {
	APIKey      string
	BaseURL     string
	SiteURL     string
	AppTitle    string
	Temperature float32
	MaxTokens   int
}

// message mirrors the chat-completion message structure on the wire.
type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	Stream      bool      `json:"stream"`
	Temperature float32   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// streamChunk captures one streaming frame from the API.
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// Client streams chat completions from an OpenRouter-compatible API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs the adapter.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("openrouter api key cannot be empty")
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger.With("component", "llm.openrouter"),
	}, nil
}

// StreamCompletion implements chat.Provider. The endpoint logged here never
// carries the API key; it travels only in the Authorization header.
func (c *Client) StreamCompletion(ctx context.Context, messages []chat.Message, model string) (chat.ProviderStream, error) {
	payload, err := json.Marshal(completionRequest{
		Model:       model,
		Messages:    toWireMessages(messages),
		Stream:      true,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("encode completion request: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/chat/completions"
	c.logger.Debug("requesting completion stream", "endpoint", endpoint, "model", model)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	if c.cfg.SiteURL != "" {
		req.Header.Set("HTTP-Referer", c.cfg.SiteURL)
	}
	if c.cfg.AppTitle != "" {
		req.Header.Set("X-Title", c.cfg.AppTitle)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &chat.ProviderError{Message: err.Error()}
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &chat.ProviderError{Status: resp.StatusCode, Message: string(body)}
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 1024), 1<<20)

	return &completionStream{
		scanner: scanner,
		closer:  resp.Body,
	}, nil
}

func toWireMessages(messages []chat.Message) []message {
	wire := make([]message, 0, len(messages))
	for _, msg := range messages {
		wire = append(wire, message{Role: msg.Role, Content: msg.Text})
	}
	return wire
}

// completionStream wraps a streaming HTTP response body.
type completionStream struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// Recv reads the next delta chunk, returning io.EOF after the final one.
func (s *completionStream) Recv() (chat.DeltaChunk, error) {
	for {
		if !s.scanner.Scan() {
			if err := s.scanner.Err(); err != nil {
				s.Close()
				return chat.DeltaChunk{}, err
			}
			s.Close()
			return chat.DeltaChunk{}, io.EOF
		}
		line := strings.TrimSpace(s.scanner.Text())
		if line == "" || !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			s.Close()
			return chat.DeltaChunk{}, io.EOF
		}
		var chunk streamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			s.Close()
			return chat.DeltaChunk{}, fmt.Errorf("decode stream chunk: %w", err)
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		return chat.DeltaChunk{Text: chunk.Choices[0].Delta.Content}, nil
	}
}

// Close closes the underlying stream.
func (s *completionStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
