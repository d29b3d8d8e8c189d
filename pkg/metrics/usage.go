package metrics

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenUsage captures approximate LLM token counts for a request.
type TokenUsage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens,omitempty"`
	TotalTokens      int `json:"totalTokens"`
}

// IsZero reports whether usage data is absent.
func (u TokenUsage) IsZero() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

var (
	encodingOnce sync.Once
	encoding     *tiktoken.Tiktoken
)

// EstimatePromptTokens approximates the token count of the given texts using
// the cl100k_base encoding. Provider tokenizers differ, so the result is an
// estimate for logging, not billing.
func EstimatePromptTokens(texts []string) int {
	encodingOnce.Do(func() {
		enc, err := tiktoken.GetEncoding(tiktoken.MODEL_CL100K_BASE)
		if err != nil {
			return
		}
		encoding = enc
	})
	if encoding == nil {
		return 0
	}
	total := 0
	for _, text := range texts {
		total += len(encoding.Encode(text, nil, nil))
	}
	return total
}
