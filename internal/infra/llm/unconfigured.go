package llm

import (
	"context"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
)

// Unconfigured stands in for a provider whose credentials are missing. Every
// call fails fast with a non-retriable provider error instead of sending an
// unauthenticated request upstream.
type Unconfigured struct {
	Name string
}

// StreamCompletion implements chat.Provider.
func (u Unconfigured) StreamCompletion(context.Context, []chat.Message, string) (chat.ProviderStream, error) {
	return nil, &chat.ProviderError{Message: u.Name + " provider is not configured: missing API key"}
}
