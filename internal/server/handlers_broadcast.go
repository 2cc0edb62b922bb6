package server

import (
	"fmt"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ivanskieee/lantern/internal/domain"
	apperrors "github.com/ivanskieee/lantern/internal/errors"
)

type broadcastRequest struct {
	ID             int64     `json:"id"`
	ConversationID int64     `json:"conversation_id"`
	Message        string    `json:"message"`
	Reply          string    `json:"reply"`
	CreatedAt      time.Time `json:"created_at"`
}

// handleBroadcast lets an external writer push a created prompt into the
// relay. The local write path calls the relay in-process; this endpoint
// mirrors it for writers outside this process.
func (s *Server) handleBroadcast(c echo.Context) error {
	var req broadcastRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}
	if req.ID == 0 {
		return apperrors.ValidationError("id is required")
	}
	if req.Message == "" {
		return apperrors.ValidationError("message is required")
	}

	prompt := domain.Prompt{
		ID:             req.ID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Reply:          req.Reply,
		CreatedAt:      req.CreatedAt,
	}
	if err := s.relay.NotifyCreated(prompt); err != nil {
		return apperrors.InternalError("failed to queue broadcast", err)
	}

	if err := c.JSON(200, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type broadcastDeleteRequest struct {
	DeletedID int64 `json:"deleted_id"`
}

func (s *Server) handleBroadcastDelete(c echo.Context) error {
	var req broadcastDeleteRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}
	if req.DeletedID == 0 {
		return apperrors.ValidationError("deleted_id is required")
	}

	if err := s.relay.NotifyDeleted(req.DeletedID); err != nil {
		return apperrors.InternalError("failed to queue broadcast", err)
	}

	if err := c.JSON(200, map[string]string{"status": "ok"}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
