package gemini

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
)

func TestNewClientRequiresAPIKey(t *testing.T) {
	_, err := NewClient(Config{}, newTestLogger())
	require.Error(t, err)
}

func TestStreamCompletion(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1beta/models/test-model:streamGenerateContent", r.URL.Path)
		require.Equal(t, "sse", r.URL.Query().Get("alt"))
		require.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		// The system turn travels as systemInstruction, not as content.
		require.NotNil(t, req.SystemInstruction)
		require.Equal(t, "be helpful", req.SystemInstruction.Parts[0].Text)
		require.Equal(t, []content{
			{Role: "user", Parts: []part{{Text: "hello"}}},
			{Role: "model", Parts: []part{{Text: "hi there"}}},
			{Role: "user", Parts: []part{{Text: "continue"}}},
		}, req.Contents)

		w.Header().Set("Content-Type", "text/event-stream")
		w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"Hel\"}]}}]}\n\n"))
		w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[]}}]}\n\n"))
		w.Write([]byte("data: {\"candidates\":[{\"content\":{\"parts\":[{\"text\":\"lo\"}]}}]}\n\n"))
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL}, newTestLogger())
	require.NoError(t, err)

	stream, err := client.StreamCompletion(context.Background(), []chat.Message{
		{Role: chat.RoleSystem, Text: "be helpful"},
		{Role: chat.RoleUser, Text: "hello"},
		{Role: chat.RoleAssistant, Text: "hi there"},
		{Role: chat.RoleUser, Text: "continue"},
	}, "test-model")
	require.NoError(t, err)
	defer stream.Close()

	require.Equal(t, []string{"Hel", "lo"}, collect(t, stream))
}

func TestStreamCompletionRejectsEmptyConversation(t *testing.T) {
	client, err := NewClient(Config{APIKey: "test-key"}, newTestLogger())
	require.NoError(t, err)

	_, err = client.StreamCompletion(context.Background(), []chat.Message{
		{Role: chat.RoleSystem, Text: "only a system prompt"},
	}, "test-model")
	require.Error(t, err)

	var provErr *chat.ProviderError
	require.ErrorAs(t, err, &provErr)
}

func TestStreamCompletionErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"status":"RESOURCE_EXHAUSTED"}}`, http.StatusTooManyRequests)
	}))
	defer server.Close()

	client, err := NewClient(Config{APIKey: "test-key", BaseURL: server.URL}, newTestLogger())
	require.NoError(t, err)

	_, err = client.StreamCompletion(context.Background(), []chat.Message{{Role: chat.RoleUser, Text: "hello"}}, "test-model")
	require.Error(t, err)

	var provErr *chat.ProviderError
	require.ErrorAs(t, err, &provErr)
	require.Equal(t, http.StatusTooManyRequests, provErr.Status)
	require.True(t, provErr.RateLimited())
}

func TestToGeminiFormatDropsEmptyMessages(t *testing.T) {
	contents, system := toGeminiFormat([]chat.Message{
		{Role: chat.RoleSystem, Text: " prompt "},
		{Role: chat.RoleUser, Text: "   "},
		{Role: chat.RoleUser, Text: "hello"},
	})

	require.Equal(t, "prompt", system)
	require.Equal(t, []content{{Role: "user", Parts: []part{{Text: "hello"}}}}, contents)
}

func collect(t *testing.T, stream chat.ProviderStream) []string {
	t.Helper()
	var chunks []string
	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			return chunks
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk.Text)
	}
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
