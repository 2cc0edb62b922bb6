package database

import (
	"context"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanskieee/lantern/internal/domain"
)

func TestMemoryPromptRepo_CreateMintsConversationID(t *testing.T) {
	repo := NewMemoryPromptRepo(clockwork.NewFakeClock())
	ctx := context.Background()

	// Without a conversation id, the prompt starts its own conversation.
	first, err := repo.Create(ctx, "hello", "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, first.ConversationID)

	// A follow-up joins the existing conversation.
	second, err := repo.Create(ctx, "more", "sure", &first.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestMemoryPromptRepo_ListNewestFirst(t *testing.T) {
	repo := NewMemoryPromptRepo(clockwork.NewFakeClock())
	ctx := context.Background()

	for _, msg := range []string{"a", "b", "c"} {
		_, err := repo.Create(ctx, msg, "r", nil)
		require.NoError(t, err)
	}

	prompts, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, prompts, 3)
	assert.Equal(t, "c", prompts[0].Message)
	assert.Equal(t, "b", prompts[1].Message)
	assert.Equal(t, "a", prompts[2].Message)
}

func TestMemoryPromptRepo_ListByConversationOldestFirst(t *testing.T) {
	repo := NewMemoryPromptRepo(clockwork.NewFakeClock())
	ctx := context.Background()

	first, err := repo.Create(ctx, "q1", "a1", nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "other", "x", nil)
	require.NoError(t, err)
	_, err = repo.Create(ctx, "q2", "a2", &first.ConversationID)
	require.NoError(t, err)

	prompts, err := repo.ListByConversation(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, prompts, 2)
	assert.Equal(t, "q1", prompts[0].Message)
	assert.Equal(t, "q2", prompts[1].Message)

	empty, err := repo.ListByConversation(ctx, 999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestMemoryPromptRepo_Delete(t *testing.T) {
	repo := NewMemoryPromptRepo(clockwork.NewFakeClock())
	ctx := context.Background()

	created, err := repo.Create(ctx, "bye", "later", nil)
	require.NoError(t, err)

	deleted, err := repo.Delete(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, deleted.ID)
	assert.Equal(t, created.ConversationID, deleted.ConversationID)

	// Second delete of the same id reports not found.
	_, err = repo.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, domain.ErrPromptNotFound)
}
