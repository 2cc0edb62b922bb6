package database

import (
	"context"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"

	"github.com/ivanskieee/lantern/internal/domain"
)

// MemoryPromptRepo is an in-memory domain.PromptRepository for tests and
// local development without PostgreSQL.
type MemoryPromptRepo struct {
	mu      sync.Mutex
	clock   clockwork.Clock
	nextID  int64
	prompts map[int64]domain.Prompt
}

func NewMemoryPromptRepo(clock clockwork.Clock) *MemoryPromptRepo {
	return &MemoryPromptRepo{
		clock:   clock,
		nextID:  1,
		prompts: make(map[int64]domain.Prompt),
	}
}

func (r *MemoryPromptRepo) Create(_ context.Context, message, reply string, conversationID *int64) (*domain.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := domain.Prompt{
		ID:        r.nextID,
		Message:   message,
		Reply:     reply,
		CreatedAt: r.clock.Now(),
	}
	r.nextID++

	if conversationID != nil {
		p.ConversationID = *conversationID
	} else {
		p.ConversationID = p.ID
	}

	r.prompts[p.ID] = p
	return &p, nil
}

func (r *MemoryPromptRepo) List(_ context.Context) ([]domain.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prompts := make([]domain.Prompt, 0, len(r.prompts))
	for _, p := range r.prompts {
		prompts = append(prompts, p)
	}
	// Newest first; ids are monotonic so they break timestamp ties.
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].ID > prompts[j].ID })
	return prompts, nil
}

func (r *MemoryPromptRepo) ListByConversation(_ context.Context, conversationID int64) ([]domain.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	prompts := make([]domain.Prompt, 0)
	for _, p := range r.prompts {
		if p.ConversationID == conversationID {
			prompts = append(prompts, p)
		}
	}
	sort.Slice(prompts, func(i, j int) bool { return prompts[i].ID < prompts[j].ID })
	return prompts, nil
}

func (r *MemoryPromptRepo) Delete(_ context.Context, id int64) (*domain.Prompt, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.prompts[id]
	if !ok {
		return nil, domain.ErrPromptNotFound
	}
	delete(r.prompts, id)
	return &p, nil
}
