package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/drunkod/crayon-chat/internal/domain/registry"
	"github.com/drunkod/crayon-chat/internal/domain/weather"
)

// Roles recognized in canonical messages.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Message is the canonical form of a chat turn. Text is never empty once a
// message has been stored or handed to a provider.
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

// RawMessage captures the heterogeneous inbound message shapes clients send.
// Content may be a plain string or an array of content parts.
type RawMessage struct {
	Role    string          `json:"role"`
	Content json.RawMessage `json:"content"`
	Text    string          `json:"text"`
	Message string          `json:"message"`
}

// Request is the inbound chat payload.
type Request struct {
	ThreadID string       `json:"threadId"`
	Messages []RawMessage `json:"messages"`
}

// DeltaChunk is one incremental unit of a streaming completion.
type DeltaChunk struct {
	Text string
}

// Delta is one element of the outbound stream. Err is only set on the
// terminal element when the upstream source failed mid-stream.
type Delta struct {
	Text string
	Err  error
}

// Event kinds emitted to the UI collaborator.
const (
	EventText     = "text"
	EventTemplate = "template"
)

// Event is the tagged union the stream translator emits: either raw response
// text or a typed display template.
type Event struct {
	Kind  string
	Text  string
	Name  string
	Props any
}

// Reply is the outcome of a dispatched request: exactly one of Event or
// Stream is set.
type Reply struct {
	Event  *Event
	Stream <-chan Delta
}

// ProviderStream delivers completion chunks in provider emission order.
// Recv returns io.EOF after the final chunk.
type ProviderStream interface {
	Recv() (DeltaChunk, error)
	Close() error
}

// Provider is the uniform contract every LLM backend adapter satisfies.
type Provider interface {
	StreamCompletion(ctx context.Context, messages []Message, model string) (ProviderStream, error)
}

// Providers groups the configured backend adapters for injection.
type Providers struct {
	OpenRouter Provider
	Gemini     Provider
}

// ProviderError is a non-success response from an upstream LLM API.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("provider error: status=%d %s", e.Status, e.Message)
	}
	return "provider error: " + e.Message
}

// RateLimited reports whether the failure looks like an upstream rate limit.
func (e *ProviderError) RateLimited() bool {
	if e.Status == 429 {
		return true
	}
	msg := strings.ToLower(e.Message)
	return strings.Contains(msg, "rate limit") || strings.Contains(msg, "rate-limit")
}

// ExhaustedError is produced when every retry or candidate model failed.
type ExhaustedError struct {
	RateLimited bool
	Attempts    int
	Suggestion  string
	Err         error
}

func (e *ExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("all %d attempts failed: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("all %d attempts failed", e.Attempts)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}

// ModelRegistry exposes the candidate list with cooldown filtering.
type ModelRegistry interface {
	ListAvailable(ctx context.Context, providerID string) []registry.Candidate
	MarkFailed(ctx context.Context, modelID string)
}

// WeatherClient is the external weather collaborator.
type WeatherClient interface {
	Fetch(ctx context.Context, location string) (weather.Record, error)
}

// MockReply is the offline responder's outcome: either filler text or a
// synthesized weather record.
type MockReply struct {
	Text    string
	Weather *weather.Record
}

// MockResponder substitutes for an LLM call when mock mode is enabled.
type MockResponder interface {
	Respond(ctx context.Context, conversationText string) (MockReply, error)
}

// Store keeps per-thread conversation history.
type Store interface {
	Append(ctx context.Context, threadID string, msg Message) error
	History(ctx context.Context, threadID string) ([]Message, error)
}

// Config drives dispatch behavior.
type Config struct {
	Provider       string
	MockAI         bool
	SystemPrompt   string
	GeminiModel    string
	MaxAttempts    int
	AttemptTimeout time.Duration
}
