package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_InitPromptList(t *testing.T) {
	data := []byte(`{
		"event": "init_prompt_list",
		"prompts": [
			{"id": 2, "conversation_id": 1, "message": "hi", "reply": "hello", "created_at": "2025-06-01T12:00:00Z"},
			{"id": 1, "conversation_id": 1, "message": "first", "reply": "reply", "created_at": "2025-06-01T11:00:00Z"}
		],
		"degraded": true
	}`)

	event, err := DecodeEvent(data)
	require.NoError(t, err)

	init, ok := event.(InitPromptListEvent)
	require.True(t, ok)
	assert.True(t, init.Degraded)
	require.Len(t, init.Prompts, 2)
	assert.Equal(t, int64(2), init.Prompts[0].ID)
	assert.Equal(t, "hi", init.Prompts[0].Message)
}

func TestDecodeEvent_NewPrompt(t *testing.T) {
	data := []byte(`{
		"event": "new_prompt",
		"prompt": {"id": 5, "conversation_id": 5, "message": "q", "reply": "a", "created_at": "2025-06-01T12:00:00Z"}
	}`)

	event, err := DecodeEvent(data)
	require.NoError(t, err)

	created, ok := event.(NewPromptEvent)
	require.True(t, ok)
	assert.Equal(t, int64(5), created.Prompt.ID)
	assert.Equal(t, int64(5), created.Prompt.ConversationID)
}

func TestDecodeEvent_PromptDeleted(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"event": "prompt_deleted", "deleted_id": 42}`))
	require.NoError(t, err)

	deleted, ok := event.(PromptDeletedEvent)
	require.True(t, ok)
	assert.Equal(t, int64(42), deleted.DeletedID)
}

func TestDecodeEvent_UnknownEventRejected(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"event": "presence_update", "user": "x"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown event")
}

func TestDecodeEvent_MalformedFrameRejected(t *testing.T) {
	_, err := DecodeEvent([]byte(`{not json`))
	require.Error(t, err)

	_, err = DecodeEvent([]byte(`{"event": "new_prompt", "prompt": "not an object"}`))
	require.Error(t, err)
}
