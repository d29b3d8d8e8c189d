package gemini

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

const defaultBaseURL = "https://generativelanguage.googleapis.com"

// Config carries the Gemini connection settings.
type Config struct {
	APIKey      string
	BaseURL     string
	Temperature float32
	MaxTokens   int
}

// Gemini's native generate API speaks contents/parts instead of messages,
// and takes the system instruction as configuration rather than as a turn.
type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateRequest struct {
	Contents          []content         `json:"contents"`
	SystemInstruction *content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type generationConfig struct {
	Temperature     float32 `json:"temperature,omitempty"`
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// Client streams completions from the Gemini native generate API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient constructs the adapter.
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("gemini api key cannot be empty")
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
		logger: logger.With("component", "llm.gemini"),
	}, nil
}

// StreamCompletion implements chat.Provider. System messages are lifted into
// the systemInstruction field; assistant turns map to Gemini's "model" role.
// The key is sent in a header so logged endpoints never contain it.
func (c *Client) StreamCompletion(ctx context.Context, messages []chat.Message, model string) (chat.ProviderStream, error) {
	contents, system := toGeminiFormat(messages)
	if len(contents) == 0 {
		return nil, &chat.ProviderError{Message: "no message content to send"}
	}

	req := generateRequest{
		Contents: contents,
		GenerationConfig: &generationConfig{
			Temperature:     c.cfg.Temperature,
			MaxOutputTokens: c.cfg.MaxTokens,
		},
	}
	if system != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: system}}}
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode generate request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v1beta/models/%s:streamGenerateContent?alt=sse", c.cfg.BaseURL, model)
	c.logger.Debug("requesting generate stream", "endpoint", endpoint, "model", model, "contents", len(contents))

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build generate request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.cfg.APIKey)

	resp, err := c.httpClient.Do(httpReq)
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

	return &generateStream{
		scanner: scanner,
		closer:  resp.Body,
	}, nil
}

// toGeminiFormat converts canonical messages, separating out the system
// prompt. Empty-text messages are dropped before they reach the API.
func toGeminiFormat(messages []chat.Message) ([]content, string) {
	contents := make([]content, 0, len(messages))
	var system string
	for _, msg := range messages {
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			continue
		}
		if msg.Role == chat.RoleSystem {
			system = text
			continue
		}
		role := "user"
		if msg.Role == chat.RoleAssistant {
			role = "model"
		}
		contents = append(contents, content{Role: role, Parts: []part{{Text: text}}})
	}
	return contents, system
}

// generateStream wraps the SSE response body.
type generateStream struct {
	scanner *bufio.Scanner
	closer  io.Closer
}

// Recv reads the next fragment, skipping empty-text ones, and returns io.EOF
// when the stream ends.
func (s *generateStream) Recv() (chat.DeltaChunk, error) {
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

		var resp generateResponse
		if err := json.Unmarshal([]byte(payload), &resp); err != nil {
			s.Close()
			return chat.DeltaChunk{}, fmt.Errorf("decode generate fragment: %w", err)
		}
		text := fragmentText(resp)
		if text == "" {
			continue
		}
		return chat.DeltaChunk{Text: text}, nil
	}
}

func fragmentText(resp generateResponse) string {
	if len(resp.Candidates) == 0 {
		return ""
	}
	var builder strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		builder.WriteString(p.Text)
	}
	return builder.String()
}

// Close closes the underlying stream.
func (s *generateStream) Close() error {
	if s.closer != nil {
		return s.closer.Close()
	}
	return nil
}
