package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/drunkod/crayon-chat/internal/domain/registry"
	apperrors "github.com/drunkod/crayon-chat/pkg/errors"
	"github.com/drunkod/crayon-chat/pkg/metrics"
)

// DefaultThreadID is used when a request does not name a thread.
const DefaultThreadID = "default"

const historyWriteTimeout = 5 * time.Second

var errAttemptTimeout = errors.New("provider attempt timed out")

// Service routes an inbound chat request to the capability that should
// answer it and returns the outbound reply.
type Service interface {
	Respond(ctx context.Context, req Request) (Reply, error)
}

type service struct {
	cfg       Config
	registry  ModelRegistry
	providers Providers
	weather   WeatherClient
	mock      MockResponder
	store     Store
	logger    *slog.Logger
	sleep     func(ctx context.Context, d time.Duration) error
}

// NewService is the wire provider for the chat dispatcher.
func NewService(cfg Config, reg ModelRegistry, providers Providers, weatherClient WeatherClient, mock MockResponder, store Store, logger *slog.Logger) Service {
	return &service{
		cfg:       cfg,
		registry:  reg,
		providers: providers,
		weather:   weatherClient,
		mock:      mock,
		store:     store,
		logger:    logger.With("component", "chat.service"),
		sleep:     sleepContext,
	}
}

func (s *service) Respond(ctx context.Context, req Request) (Reply, error) {
	if len(req.Messages) == 0 {
		return Reply{}, apperrors.Wrap("invalid_input", "messages cannot be empty", nil)
	}
	if _, ok := Normalize(req.Messages[len(req.Messages)-1]); !ok {
		return Reply{}, apperrors.Wrap("invalid_input", "last message has no content", nil)
	}

	incoming := NormalizeAll(req.Messages)
	lastMsg := incoming[len(incoming)-1]

	threadID := strings.TrimSpace(req.ThreadID)
	if threadID == "" {
		threadID = DefaultThreadID
	}

	history, err := s.store.History(ctx, threadID)
	if err != nil {
		s.logger.Warn("history lookup failed, continuing without it", "thread", threadID, "error", err)
		history = nil
	}
	conversation := append(history, incoming...)

	if location := ExtractLocation(lastMsg.Text); location != "" {
		s.logger.Info("weather query detected", "location", location)
		return s.respondWeather(ctx, threadID, lastMsg, location)
	}

	if s.cfg.MockAI {
		s.logger.Info("using mock AI responder")
		return s.respondMock(ctx, threadID, lastMsg)
	}

	return s.dispatch(ctx, threadID, lastMsg, conversation)
}

// respondWeather answers a weather query without touching any LLM. Lookup
// failures become a polite text event, never a raw error.
func (s *service) respondWeather(ctx context.Context, threadID string, userMsg Message, location string) (Reply, error) {
	record, err := s.weather.Fetch(ctx, location)
	if err != nil {
		if ctx.Err() != nil {
			return Reply{}, ctx.Err()
		}
		s.logger.Warn("weather lookup failed", "location", location, "error", err)
		text := fmt.Sprintf("Sorry, I couldn't fetch the weather for %q right now. Please try again in a moment.", location)
		s.recordTurn(ctx, threadID, userMsg, text)
		return Reply{Event: &Event{Kind: EventText, Text: text}}, nil
	}

	summary := fmt.Sprintf("Weather in %s: %s, %d°C (high %d°C, low %d°C)",
		record.Location, record.Condition, record.Temperature, record.High, record.Low)
	s.recordTurn(ctx, threadID, userMsg, summary)
	return Reply{Event: &Event{Kind: EventTemplate, Name: "weather", Props: record}}, nil
}

func (s *service) respondMock(ctx context.Context, threadID string, userMsg Message) (Reply, error) {
	reply, err := s.mock.Respond(ctx, userMsg.Text)
	if err != nil {
		return Reply{}, err
	}
	if reply.Weather != nil {
		summary := fmt.Sprintf("Weather in %s: %s, %d°C",
			reply.Weather.Location, reply.Weather.Condition, reply.Weather.Temperature)
		s.recordTurn(ctx, threadID, userMsg, summary)
		return Reply{Event: &Event{Kind: EventTemplate, Name: "weather", Props: *reply.Weather}}, nil
	}
	s.recordTurn(ctx, threadID, userMsg, reply.Text)
	return Reply{Event: &Event{Kind: EventText, Text: reply.Text}}, nil
}

// dispatch selects the configured provider and turns the first successful
// provider stream into the outbound delta channel.
func (s *service) dispatch(ctx context.Context, threadID string, userMsg Message, conversation []Message) (Reply, error) {
	messages := s.withSystemPrompt(conversation)

	if s.logger.Enabled(ctx, slog.LevelDebug) {
		texts := make([]string, 0, len(messages))
		for _, msg := range messages {
			texts = append(texts, msg.Text)
		}
		s.logger.Debug("dispatching to provider",
			"provider", s.cfg.Provider,
			"messages", len(messages),
			"usage", metrics.TokenUsage{PromptTokens: metrics.EstimatePromptTokens(texts), TotalTokens: metrics.EstimatePromptTokens(texts)})
	}

	var (
		stream ProviderStream
		err    error
	)
	if s.cfg.Provider == registry.ProviderGemini {
		stream, err = s.dispatchGemini(ctx, messages)
	} else {
		stream, err = s.dispatchOpenRouter(ctx, messages)
	}
	if err != nil {
		return Reply{}, err
	}

	return Reply{Stream: s.pump(ctx, stream, threadID, userMsg)}, nil
}

// withSystemPrompt prepends the system prompt as a canonical system message.
// The Gemini adapter lifts it back out into its dedicated instruction field.
func (s *service) withSystemPrompt(conversation []Message) []Message {
	if s.cfg.SystemPrompt == "" {
		return conversation
	}
	messages := make([]Message, 0, len(conversation)+1)
	messages = append(messages, Message{Role: RoleSystem, Text: s.cfg.SystemPrompt})
	return append(messages, conversation...)
}

// dispatchOpenRouter walks the candidate list in preference order. A failing
// model is put on cooldown only when the failure looks like a rate limit;
// every other failure is logged and the next candidate is tried.
func (s *service) dispatchOpenRouter(ctx context.Context, messages []Message) (ProviderStream, error) {
	candidates := s.registry.ListAvailable(ctx, registry.ProviderOpenRouter)

	for i, candidate := range candidates {
		s.logger.Info("trying openrouter model", "model", candidate.Model, "position", i+1, "candidates", len(candidates))
		stream, err := s.providers.OpenRouter.StreamCompletion(ctx, messages, candidate.Model)
		if err == nil {
			s.logger.Info("openrouter model connected", "model", candidate.Model)
			return stream, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		var provErr *ProviderError
		if errors.As(err, &provErr) && provErr.RateLimited() {
			s.registry.MarkFailed(ctx, candidate.Model)
		}
		s.logger.Warn("openrouter model failed", "model", candidate.Model, "error", err)
	}

	return nil, &ExhaustedError{
		Attempts:   len(candidates),
		Suggestion: "All OpenRouter models are unavailable. Try again in a few moments or switch AI_PROVIDER to gemini.",
		Err:        fmt.Errorf("all %d openrouter models failed", len(candidates)),
	}
}

// dispatchGemini retries a single model under a per-attempt timeout. Rate
// limits back off exponentially, other transient failures linearly.
func (s *service) dispatchGemini(ctx context.Context, messages []Message) (ProviderStream, error) {
	var (
		lastErr     error
		rateLimited bool
		attempts    int
	)

	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		attempts = attempt
		s.logger.Info("calling gemini", "model", s.cfg.GeminiModel, "attempt", attempt, "max_attempts", s.cfg.MaxAttempts)

		stream, err := s.attemptStream(ctx, s.providers.Gemini, messages, s.cfg.GeminiModel)
		if err == nil {
			s.logger.Info("gemini connected", "model", s.cfg.GeminiModel)
			return stream, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		retriable, rate := classifyFailure(err)
		lastErr, rateLimited = err, rate
		s.logger.Warn("gemini attempt failed", "attempt", attempt, "retriable", retriable, "rate_limited", rate, "error", err)

		if !retriable || attempt == s.cfg.MaxAttempts {
			break
		}

		var delay time.Duration
		if rate {
			delay = time.Duration(1<<attempt) * time.Second
		} else {
			delay = time.Duration(attempt) * time.Second
		}
		s.logger.Info("backing off before retry", "delay", delay)
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}

	suggestion := "Gemini is unavailable right now. Switch AI_PROVIDER to openrouter or try again later."
	if rateLimited {
		suggestion = "Gemini is rate limiting requests. Switch AI_PROVIDER to openrouter or wait before retrying."
	}
	return nil, &ExhaustedError{
		RateLimited: rateLimited,
		Attempts:    attempts,
		Suggestion:  suggestion,
		Err:         lastErr,
	}
}

// attemptStream races the adapter call against the per-attempt ceiling. On
// timeout the in-flight call is cancelled and the attempt counts as a
// transient failure.
func (s *service) attemptStream(ctx context.Context, provider Provider, messages []Message, model string) (ProviderStream, error) {
	callCtx, cancel := context.WithCancel(ctx)

	type outcome struct {
		stream ProviderStream
		err    error
	}
	done := make(chan outcome, 1)
	go func() {
		stream, err := provider.StreamCompletion(callCtx, messages, model)
		done <- outcome{stream: stream, err: err}
	}()

	timeout := s.cfg.AttemptTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		if out.err != nil {
			cancel()
			return nil, out.err
		}
		return &cancelOnClose{ProviderStream: out.stream, cancel: cancel}, nil
	case <-timer.C:
		cancel()
		return nil, errAttemptTimeout
	case <-ctx.Done():
		cancel()
		return nil, ctx.Err()
	}
}

type cancelOnClose struct {
	ProviderStream
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	defer c.cancel()
	return c.ProviderStream.Close()
}

func classifyFailure(err error) (retriable, rateLimited bool) {
	if errors.Is(err, errAttemptTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true, false
	}
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		switch provErr.Status {
		case 429:
			return true, true
		case 500, 502, 503:
			return true, provErr.RateLimited()
		}
		return false, provErr.RateLimited()
	}
	return false, false
}

// pump drains the provider stream into the outbound delta channel. History
// is recorded only after a clean end of stream on a live request, so a
// cancelled request never leaves a half-recorded turn.
func (s *service) pump(ctx context.Context, stream ProviderStream, threadID string, userMsg Message) <-chan Delta {
	out := make(chan Delta)
	go func() {
		defer close(out)
		defer stream.Close()

		var assistant strings.Builder
		for {
			chunk, err := stream.Recv()
			if err != nil {
				if errors.Is(err, io.EOF) {
					if ctx.Err() == nil {
						s.recordTurn(ctx, threadID, userMsg, assistant.String())
					}
					return
				}
				s.logger.Error("provider stream failed mid-response", "error", err)
				select {
				case out <- Delta{Err: err}:
				case <-ctx.Done():
				}
				return
			}
			if chunk.Text == "" {
				continue
			}
			assistant.WriteString(chunk.Text)
			select {
			case out <- Delta{Text: chunk.Text}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// recordTurn appends the user message and the assistant's final text as a
// pair. The write uses a detached context so a response that finished while
// the client was closing the connection is still persisted.
func (s *service) recordTurn(ctx context.Context, threadID string, userMsg Message, assistantText string) {
	assistantText = strings.TrimSpace(assistantText)
	if assistantText == "" || ctx.Err() != nil {
		return
	}

	writeCtx, cancel := context.WithTimeout(context.Background(), historyWriteTimeout)
	defer cancel()

	if err := s.store.Append(writeCtx, threadID, userMsg); err != nil {
		s.logger.Error("failed to record user turn", "thread", threadID, "error", err)
		return
	}
	if err := s.store.Append(writeCtx, threadID, Message{Role: RoleAssistant, Text: assistantText}); err != nil {
		s.logger.Error("failed to record assistant turn", "thread", threadID, "error", err)
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
