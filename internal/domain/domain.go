package domain

import (
	"context"
	"time"
)

// Prompt is one user/assistant message pair. A conversation is the set of
// prompts sharing a ConversationID. The first prompt of a conversation uses
// its own ID as the conversation id, so the two id namespaces overlap and
// clients depend on that.
type Prompt struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Message        string    `json:"message"`
	Reply          string    `json:"reply"`
	CreatedAt      time.Time `json:"created_at"`
}

// PromptRepository is the durable store of prompts.
type PromptRepository interface {
	// Create persists a new prompt. When conversationID is nil the new row's
	// own id becomes its conversation id before Create returns.
	Create(ctx context.Context, message, reply string, conversationID *int64) (*Prompt, error)
	// List returns all prompts, newest first.
	List(ctx context.Context) ([]Prompt, error)
	// ListByConversation returns one conversation's prompts, oldest first.
	ListByConversation(ctx context.Context, conversationID int64) ([]Prompt, error)
	// Delete removes a prompt and returns the removed row.
	// Returns ErrPromptNotFound when the id does not exist.
	Delete(ctx context.Context, id int64) (*Prompt, error)
}

// AppService is the application layer surface consumed by HTTP handlers.
type AppService interface {
	SendMessage(ctx context.Context, message string, conversationID *int64) (*Prompt, error)
	ListPrompts(ctx context.Context) ([]Prompt, error)
	GetConversation(ctx context.Context, conversationID int64) ([]Prompt, error)
	DeletePrompt(ctx context.Context, id int64) (*Prompt, error)
}

// ChatClient calls the upstream language model.
type ChatClient interface {
	Chat(ctx context.Context, message string) (string, error)
}

// Notifier is the relay's narrow mutation surface as seen by the write path.
// Both calls are best-effort: an error means the notification could not be
// accepted, not that the underlying write failed.
type Notifier interface {
	NotifyCreated(prompt Prompt) error
	NotifyDeleted(id int64) error
}
