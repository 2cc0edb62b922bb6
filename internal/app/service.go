package app

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/ivanskieee/lantern/internal/domain"
	apperrors "github.com/ivanskieee/lantern/internal/errors"
	"github.com/ivanskieee/lantern/internal/logging"
	"github.com/ivanskieee/lantern/internal/metrics"
	"github.com/ivanskieee/lantern/internal/retry"
)

const (
	notifyMaxAttempts    = 3
	notifyInitialBackoff = 100 * time.Millisecond
	notifyMaxBackoff     = time.Second
	notifyTimeout        = 5 * time.Second
)

// Service is the application layer. It orchestrates all use cases.
type Service struct {
	prompts  domain.PromptRepository
	chat     domain.ChatClient
	notifier domain.Notifier
	clock    clockwork.Clock
}

// NewService creates the application layer service.
// notifier may be nil when no relay is attached (tests).
func NewService(prompts domain.PromptRepository, chat domain.ChatClient, notifier domain.Notifier, clock clockwork.Clock) *Service {
	return &Service{
		prompts:  prompts,
		chat:     chat,
		notifier: notifier,
		clock:    clock,
	}
}

// SendMessage runs the write path: model call first (nothing is persisted on
// upstream failure), then persist, then best-effort relay notification.
// A nil conversationID mints a new conversation whose id equals the new
// prompt's own id.
func (s *Service) SendMessage(ctx context.Context, message string, conversationID *int64) (*domain.Prompt, error) {
	if strings.TrimSpace(message) == "" {
		return nil, apperrors.ValidationError("message must not be empty")
	}

	reply, err := s.chat.Chat(ctx, message)
	if err != nil {
		return nil, apperrors.UpstreamError("failed to generate reply", err)
	}

	prompt, err := s.prompts.Create(ctx, message, reply, conversationID)
	if err != nil {
		return nil, apperrors.InternalError("failed to persist prompt", err)
	}

	logging.WithConversation(prompt.ConversationID).Info("Prompt created", "prompt_id", prompt.ID)
	s.notifyCreated(*prompt)
	return prompt, nil
}

// ListPrompts returns all prompts, newest first.
func (s *Service) ListPrompts(ctx context.Context) ([]domain.Prompt, error) {
	prompts, err := s.prompts.List(ctx)
	if err != nil {
		return nil, apperrors.InternalError("failed to list prompts", err)
	}
	return prompts, nil
}

// GetConversation returns one conversation's prompts, oldest first.
func (s *Service) GetConversation(ctx context.Context, conversationID int64) ([]domain.Prompt, error) {
	prompts, err := s.prompts.ListByConversation(ctx, conversationID)
	if err != nil {
		return nil, apperrors.InternalError("failed to load conversation", err)
	}
	return prompts, nil
}

// DeletePrompt removes a prompt from the store and notifies the relay.
func (s *Service) DeletePrompt(ctx context.Context, id int64) (*domain.Prompt, error) {
	prompt, err := s.prompts.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrPromptNotFound) {
			return nil, apperrors.NotFoundError("prompt not found").WithField("prompt_id", id)
		}
		return nil, apperrors.InternalError("failed to delete prompt", err)
	}

	logging.WithPrompt(prompt.ID).Info("Prompt deleted", "conversation_id", prompt.ConversationID)
	s.notifyDeleted(prompt.ID)
	return prompt, nil
}

// notifyCreated pushes the created prompt to the relay with bounded retry.
// The relay is a best-effort cache: exhausted retries are logged, never
// propagated to the request.
func (s *Service) notifyCreated(prompt domain.Prompt) {
	if s.notifier == nil {
		return
	}
	s.notify("new_prompt", prompt.ID, func() error {
		return s.notifier.NotifyCreated(prompt)
	})
}

func (s *Service) notifyDeleted(id int64) {
	if s.notifier == nil {
		return
	}
	s.notify("prompt_deleted", id, func() error {
		return s.notifier.NotifyDeleted(id)
	})
}

func (s *Service) notify(event string, promptID int64, op retry.VoidOperation) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()

	policy := retry.Policy{
		MaxAttempts:    notifyMaxAttempts,
		InitialBackoff: notifyInitialBackoff,
		MaxBackoff:     notifyMaxBackoff,
		Clock:          s.clock,
		OnRetry: func(attempt int, err error, backoff time.Duration) {
			slog.Warn("Relay notification retry", "event", event, "prompt_id", promptID, "attempt", attempt, "backoff", backoff, "error", err)
		},
	}

	if err := retry.DoVoid(ctx, policy, retry.RetryAll, op); err != nil {
		metrics.RelayNotifyFailures.Inc()
		logging.WithError(err).Error("Relay notification failed", "event", event, "prompt_id", promptID)
	}
}
