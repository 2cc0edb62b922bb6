package server

import (
	"fmt"
	"strconv"

	"github.com/labstack/echo/v4"

	apperrors "github.com/ivanskieee/lantern/internal/errors"
)

type sendMessageRequest struct {
	Message        string `json:"message"`
	ConversationID *int64 `json:"conversation_id,omitempty"`
}

type sendMessageResponse struct {
	Reply          string `json:"reply"`
	ConversationID int64  `json:"conversation_id"`
	MessageID      int64  `json:"message_id"`
}

func (s *Server) handleSendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}

	prompt, err := s.app.SendMessage(c.Request().Context(), req.Message, req.ConversationID)
	if err != nil {
		return err
	}

	resp := sendMessageResponse{
		Reply:          prompt.Reply,
		ConversationID: prompt.ConversationID,
		MessageID:      prompt.ID,
	}
	if err := c.JSON(200, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleListPrompts(c echo.Context) error {
	prompts, err := s.app.ListPrompts(c.Request().Context())
	if err != nil {
		return err
	}

	if err := c.JSON(200, prompts); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleGetConversation(c echo.Context) error {
	conversationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("conversation id must be numeric").WithField("id", c.Param("id"))
	}

	prompts, err := s.app.GetConversation(c.Request().Context(), conversationID)
	if err != nil {
		return err
	}

	if err := c.JSON(200, prompts); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type deletePromptResponse struct {
	Message        string `json:"message"`
	DeletedID      int64  `json:"deleted_id"`
	ConversationID int64  `json:"conversation_id"`
}

func (s *Server) handleDeletePrompt(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return apperrors.ValidationError("prompt id must be numeric").WithField("id", c.Param("id"))
	}

	prompt, err := s.app.DeletePrompt(c.Request().Context(), id)
	if err != nil {
		return err
	}

	resp := deletePromptResponse{
		Message:        "prompt deleted",
		DeletedID:      prompt.ID,
		ConversationID: prompt.ConversationID,
	}
	if err := c.JSON(200, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
