package app

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ivanskieee/lantern/internal/database"
	"github.com/ivanskieee/lantern/internal/domain"
	apperrors "github.com/ivanskieee/lantern/internal/errors"
)

type fakeChat struct {
	reply string
	err   error
	calls int
}

func (f *fakeChat) Chat(_ context.Context, _ string) (string, error) {
	f.calls++
	return f.reply, f.err
}

type fakeNotifier struct {
	mu      sync.Mutex
	created []domain.Prompt
	deleted []int64
	err     error
}

func (f *fakeNotifier) NotifyCreated(prompt domain.Prompt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.created = append(f.created, prompt)
	return nil
}

func (f *fakeNotifier) NotifyDeleted(id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.deleted = append(f.deleted, id)
	return nil
}

func testService(chat *fakeChat, notifier *fakeNotifier) (*Service, *database.MemoryPromptRepo) {
	clock := clockwork.NewRealClock()
	repo := database.NewMemoryPromptRepo(clock)

	var n domain.Notifier
	if notifier != nil {
		n = notifier
	}
	return NewService(repo, chat, n, clock), repo
}

func TestSendMessage_PersistsAndNotifies(t *testing.T) {
	chat := &fakeChat{reply: "the answer"}
	notifier := &fakeNotifier{}
	service, _ := testService(chat, notifier)

	prompt, err := service.SendMessage(context.Background(), "a question", nil)
	require.NoError(t, err)

	assert.Equal(t, "a question", prompt.Message)
	assert.Equal(t, "the answer", prompt.Reply)
	assert.Equal(t, prompt.ID, prompt.ConversationID, "first prompt mints its conversation")

	require.Len(t, notifier.created, 1)
	assert.Equal(t, *prompt, notifier.created[0])
}

func TestSendMessage_ContinuesConversation(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	service, _ := testService(chat, &fakeNotifier{})
	ctx := context.Background()

	first, err := service.SendMessage(ctx, "start", nil)
	require.NoError(t, err)

	second, err := service.SendMessage(ctx, "continue", &first.ConversationID)
	require.NoError(t, err)
	assert.Equal(t, first.ConversationID, second.ConversationID)
	assert.NotEqual(t, first.ID, second.ID)
}

func TestSendMessage_EmptyMessageRejected(t *testing.T) {
	chat := &fakeChat{reply: "never"}
	service, _ := testService(chat, &fakeNotifier{})

	for _, message := range []string{"", "   ", "\n\t"} {
		_, err := service.SendMessage(context.Background(), message, nil)
		require.Error(t, err)

		var structured *apperrors.Error
		require.ErrorAs(t, err, &structured)
		assert.Equal(t, apperrors.TypeValidation, structured.Type)
	}
	assert.Zero(t, chat.calls, "upstream must not be called for empty messages")
}

func TestSendMessage_UpstreamFailureNothingPersisted(t *testing.T) {
	chat := &fakeChat{err: errors.New("model unavailable")}
	service, repo := testService(chat, &fakeNotifier{})

	_, err := service.SendMessage(context.Background(), "hello", nil)
	require.Error(t, err)

	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeUpstream, structured.Type)

	prompts, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, prompts, "failed generations must leave no trace")
}

func TestSendMessage_NotifyFailureDoesNotFailRequest(t *testing.T) {
	chat := &fakeChat{reply: "fine"}
	notifier := &fakeNotifier{err: errors.New("relay saturated")}
	service, repo := testService(chat, notifier)

	prompt, err := service.SendMessage(context.Background(), "hello", nil)
	require.NoError(t, err, "relay trouble must not surface to the caller")
	require.NotNil(t, prompt)

	prompts, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, prompts, 1)
}

func TestSendMessage_NilNotifier(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	service, _ := testService(chat, nil)

	_, err := service.SendMessage(context.Background(), "hello", nil)
	require.NoError(t, err)
}

func TestDeletePrompt(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	notifier := &fakeNotifier{}
	service, _ := testService(chat, notifier)
	ctx := context.Background()

	prompt, err := service.SendMessage(ctx, "delete me", nil)
	require.NoError(t, err)

	deleted, err := service.DeletePrompt(ctx, prompt.ID)
	require.NoError(t, err)
	assert.Equal(t, prompt.ID, deleted.ID)

	require.Len(t, notifier.deleted, 1)
	assert.Equal(t, prompt.ID, notifier.deleted[0])
}

func TestDeletePrompt_NotFound(t *testing.T) {
	service, _ := testService(&fakeChat{}, &fakeNotifier{})

	_, err := service.DeletePrompt(context.Background(), 12345)
	require.Error(t, err)

	var structured *apperrors.Error
	require.ErrorAs(t, err, &structured)
	assert.Equal(t, apperrors.TypeNotFound, structured.Type)
	assert.Equal(t, int64(12345), structured.Context["prompt_id"])
}

func TestListAndGetConversation(t *testing.T) {
	chat := &fakeChat{reply: "ok"}
	service, _ := testService(chat, &fakeNotifier{})
	ctx := context.Background()

	first, err := service.SendMessage(ctx, "one", nil)
	require.NoError(t, err)
	_, err = service.SendMessage(ctx, "two", nil)
	require.NoError(t, err)
	_, err = service.SendMessage(ctx, "three", &first.ConversationID)
	require.NoError(t, err)

	all, err := service.ListPrompts(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "three", all[0].Message, "list is newest first")

	thread, err := service.GetConversation(ctx, first.ConversationID)
	require.NoError(t, err)
	require.Len(t, thread, 2)
	assert.Equal(t, "one", thread[0].Message, "conversation is oldest first")
	assert.Equal(t, "three", thread[1].Message)
}
