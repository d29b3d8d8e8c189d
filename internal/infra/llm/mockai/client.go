package mockai

import (
	"context"
	"math/rand"
	"regexp"
	"strings"
	"time"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
	"github.com/drunkod/crayon-chat/internal/domain/weather"
)

// DefaultDelay emulates the latency of a real completion call.
const DefaultDelay = 500 * time.Millisecond

var weatherIntent = regexp.MustCompile(`(?i)weather|temperature|forecast|climate`)

var fillerResponses = []string{
	"Hello! How can I help you today?",
	"I'm a helpful AI assistant in mock mode!",
	"That's an interesting question. As a mock AI, I can provide general assistance.",
	"Feel free to ask me anything!",
}

// Client is the offline substitute for an LLM call.
type Client struct {
	weather weather.Client
	delay   time.Duration
	rng     *rand.Rand
}

// NewClient constructs the mock responder on top of an offline weather source.
func NewClient(weatherSource weather.Client) *Client {
	return &Client{
		weather: weatherSource,
		delay:   DefaultDelay,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Respond implements chat.MockResponder. Weather intents synthesize a record
// for the mentioned (or a default) city; everything else gets filler text.
func (c *Client) Respond(ctx context.Context, conversationText string) (chat.MockReply, error) {
	if err := sleepContext(ctx, c.delay); err != nil {
		return chat.MockReply{}, err
	}

	if weatherIntent.MatchString(conversationText) {
		record, err := c.weather.Fetch(ctx, mockLocation(conversationText))
		if err != nil {
			return chat.MockReply{}, err
		}
		return chat.MockReply{Weather: &record}, nil
	}

	return chat.MockReply{Text: fillerResponses[c.rng.Intn(len(fillerResponses))]}, nil
}

// mockLocation prefers an extracted location, then a known city mentioned
// anywhere in the text, then Paris.
func mockLocation(text string) string {
	if location := chat.ExtractLocation(text); location != "" {
		return location
	}
	lowered := strings.ToLower(text)
	for _, city := range []string{"paris", "tokyo", "london", "new york", "sydney"} {
		if strings.Contains(lowered, city) {
			return city
		}
	}
	return "paris"
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
