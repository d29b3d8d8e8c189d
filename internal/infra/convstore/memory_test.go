package convstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drunkod/crayon-chat/internal/domain/chat"
)

func TestMemoryStoreAppendAndHistory(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Append(context.Background(), "t1", chat.Message{Role: chat.RoleUser, Text: "hello"}))
	require.NoError(t, store.Append(context.Background(), "t1", chat.Message{Role: chat.RoleAssistant, Text: "hi"}))
	require.NoError(t, store.Append(context.Background(), "t2", chat.Message{Role: chat.RoleUser, Text: "other thread"}))

	history, err := store.History(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, []chat.Message{
		{Role: chat.RoleUser, Text: "hello"},
		{Role: chat.RoleAssistant, Text: "hi"},
	}, history)
}

func TestMemoryStoreDropsEmptyMessages(t *testing.T) {
	store := NewMemoryStore()

	require.NoError(t, store.Append(context.Background(), "t1", chat.Message{Role: chat.RoleUser, Text: "   "}))

	history, err := store.History(context.Background(), "t1")
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestMemoryStoreHistoryReturnsCopy(t *testing.T) {
	store := NewMemoryStore()
	require.NoError(t, store.Append(context.Background(), "t1", chat.Message{Role: chat.RoleUser, Text: "hello"}))

	history, err := store.History(context.Background(), "t1")
	require.NoError(t, err)
	history[0].Text = "mutated"

	again, err := store.History(context.Background(), "t1")
	require.NoError(t, err)
	require.Equal(t, "hello", again[0].Text)
}

func TestMemoryStoreUnknownThreadIsEmpty(t *testing.T) {
	store := NewMemoryStore()

	history, err := store.History(context.Background(), "missing")
	require.NoError(t, err)
	require.Empty(t, history)
}
