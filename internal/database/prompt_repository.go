package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ivanskieee/lantern/internal/domain"
)

// promptColumns must match the Scan order in scanPrompt.
const promptColumns = `id, conversation_id, message, reply, created_at`

// PromptRepo implements domain.PromptRepository backed by PostgreSQL.
type PromptRepo struct {
	pool *pgxpool.Pool
}

// NewPromptRepo creates a PromptRepo from the shared connection pool.
func NewPromptRepo(pool *pgxpool.Pool) *PromptRepo {
	return &PromptRepo{pool: pool}
}

func scanPrompt(row pgx.Row) (*domain.Prompt, error) {
	var p domain.Prompt
	err := row.Scan(&p.ID, &p.ConversationID, &p.Message, &p.Reply, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a prompt. The conversation-id assignment for a fresh
// conversation happens inside the same transaction: the row is inserted with
// a NULL conversation_id and then updated to its own id.
func (r *PromptRepo) Create(ctx context.Context, message, reply string, conversationID *int64) (*domain.Prompt, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var p domain.Prompt
	err = tx.QueryRow(ctx, `
		INSERT INTO prompts (conversation_id, message, reply, created_at)
		VALUES ($1, $2, $3, now())
		RETURNING id, created_at
	`, conversationID, message, reply).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert prompt: %w", err)
	}
	p.Message = message
	p.Reply = reply

	if conversationID != nil {
		p.ConversationID = *conversationID
	} else {
		err = tx.QueryRow(ctx, `
			UPDATE prompts SET conversation_id = id WHERE id = $1
			RETURNING conversation_id
		`, p.ID).Scan(&p.ConversationID)
		if err != nil {
			return nil, fmt.Errorf("failed to assign conversation id: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit prompt: %w", err)
	}

	return &p, nil
}

// List returns all prompts, newest first.
func (r *PromptRepo) List(ctx context.Context) ([]domain.Prompt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+promptColumns+`
		FROM prompts
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list prompts: %w", err)
	}
	defer rows.Close()

	return collectPrompts(rows)
}

// ListByConversation returns one conversation's prompts, oldest first.
func (r *PromptRepo) ListByConversation(ctx context.Context, conversationID int64) ([]domain.Prompt, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+promptColumns+`
		FROM prompts
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation: %w", err)
	}
	defer rows.Close()

	return collectPrompts(rows)
}

// Delete removes a prompt and returns the removed row.
func (r *PromptRepo) Delete(ctx context.Context, id int64) (*domain.Prompt, error) {
	p, err := scanPrompt(r.pool.QueryRow(ctx, `
		DELETE FROM prompts
		WHERE id = $1
		RETURNING `+promptColumns+`
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrPromptNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete prompt: %w", err)
	}
	return p, nil
}

func collectPrompts(rows pgx.Rows) ([]domain.Prompt, error) {
	prompts := make([]domain.Prompt, 0)
	for rows.Next() {
		var p domain.Prompt
		if err := rows.Scan(&p.ID, &p.ConversationID, &p.Message, &p.Reply, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prompt: %w", err)
		}
		prompts = append(prompts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prompts: %w", err)
	}
	return prompts, nil
}
