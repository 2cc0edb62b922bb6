package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/ivanskieee/lantern/internal/domain"
)

// Status is the reconciler's view of the push-channel connection.
type Status int

const (
	// StatusConnecting means a dial is in flight.
	StatusConnecting Status = iota
	// StatusConnected means the subscription is live.
	StatusConnected
	// StatusDisconnected means the connection dropped and a reconnect is pending.
	StatusDisconnected
	// StatusGaveUp means the reconnect budget is exhausted; the reconciler
	// keeps serving its last known state but receives no further events.
	StatusGaveUp
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusDisconnected:
		return "disconnected"
	case StatusGaveUp:
		return "gave up"
	default:
		return "unknown"
	}
}

const (
	defaultMaxAttempts    = 8
	defaultInitialBackoff = 250 * time.Millisecond
	defaultMaxBackoff     = 10 * time.Second
	defaultRevealInterval = 30 * time.Millisecond
	defaultRevealStep     = 2
)

// Options tunes the reconciler. Zero values take the defaults.
type Options struct {
	// MaxAttempts bounds consecutive failed reconnects before giving up.
	MaxAttempts int
	// InitialBackoff is the delay before the first reconnect attempt. It
	// doubles on each consecutive failure up to MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RevealInterval and RevealStep control the reply animation: every
	// interval, step more runes of the reply become visible.
	RevealInterval time.Duration
	RevealStep     int
	// OnChange fires after any state mutation. Called outside the
	// reconciler's lock; reading accessors from it is safe.
	OnChange func()
	// OnStatus fires on connection status transitions.
	OnStatus func(Status)
}

type item struct {
	prompt     domain.Prompt
	state      RevealState
	replyRunes []rune
	revealed   int
}

// PromptView is a read snapshot of one prompt, with the reply truncated to
// its currently revealed portion.
type PromptView struct {
	Prompt domain.Prompt
	State  RevealState
	Reply  string
}

// Reconciler subscribes to the relay's push channel and merges its events
// into a local prompt view. Creation is idempotent per prompt id, so the
// push delivery and the HTTP acknowledgement of the same prompt coexist
// without duplicates or restarted reveals. Deletion of an unknown id is a
// no-op.
type Reconciler struct {
	wsURL  string
	dialer *websocket.Dialer
	clock  clockwork.Clock

	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	revealInterval time.Duration
	revealStep     int

	onChange func()
	onStatus func(Status)

	mu       sync.Mutex
	status   Status
	degraded bool
	order    []int64
	items    map[int64]*item
	reveals  map[int64]*revealTask
	conn     *websocket.Conn

	cancel context.CancelFunc
	done   chan struct{}
}

// NewReconciler creates a reconciler for the push channel at wsURL, e.g.
// "ws://localhost:8080/ws". Start must be called before events flow.
func NewReconciler(wsURL string, clock clockwork.Clock, opts Options) *Reconciler {
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = defaultMaxAttempts
	}
	if opts.InitialBackoff == 0 {
		opts.InitialBackoff = defaultInitialBackoff
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = defaultMaxBackoff
	}
	if opts.RevealInterval == 0 {
		opts.RevealInterval = defaultRevealInterval
	}
	if opts.RevealStep == 0 {
		opts.RevealStep = defaultRevealStep
	}

	return &Reconciler{
		wsURL:          wsURL,
		dialer:         websocket.DefaultDialer,
		clock:          clock,
		maxAttempts:    opts.MaxAttempts,
		initialBackoff: opts.InitialBackoff,
		maxBackoff:     opts.MaxBackoff,
		revealInterval: opts.RevealInterval,
		revealStep:     opts.RevealStep,
		onChange:       opts.OnChange,
		onStatus:       opts.OnStatus,
		status:         StatusDisconnected,
		items:          make(map[int64]*item),
		reveals:        make(map[int64]*revealTask),
	}
}

// Start launches the subscription loop. It returns immediately; connection
// status is reported through OnStatus and Status.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(ctx)
}

// Stop tears down the subscription and all running reveal tasks. It blocks
// until the run loop has exited.
func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()

	r.mu.Lock()
	if r.conn != nil {
		r.conn.Close()
	}
	tasks := make([]*revealTask, 0, len(r.reveals))
	for id, task := range r.reveals {
		tasks = append(tasks, task)
		delete(r.reveals, id)
	}
	r.mu.Unlock()

	for _, task := range tasks {
		task.stop()
	}
	<-r.done
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	attempt := 0
	backoff := r.initialBackoff

	for {
		r.setStatus(StatusConnecting)

		conn, resp, err := r.dialer.DialContext(ctx, r.wsURL, nil)
		if resp != nil {
			resp.Body.Close()
		}
		if err == nil {
			attempt = 0
			backoff = r.initialBackoff

			// Stop closes r.conn under the lock; re-checking the context
			// after publishing the conn covers a Stop that ran in between.
			r.mu.Lock()
			r.conn = conn
			cancelled := ctx.Err() != nil
			r.mu.Unlock()
			if cancelled {
				conn.Close()
				r.setStatus(StatusDisconnected)
				return
			}

			r.setStatus(StatusConnected)
			r.readLoop(conn)
			conn.Close()

			r.mu.Lock()
			r.conn = nil
			r.mu.Unlock()
		} else {
			slog.Warn("push channel dial failed",
				"url", r.wsURL,
				"attempt", attempt+1,
				"error", err)
		}

		if ctx.Err() != nil {
			r.setStatus(StatusDisconnected)
			return
		}

		attempt++
		if attempt >= r.maxAttempts {
			slog.Error("push channel reconnect budget exhausted",
				"attempts", attempt)
			r.setStatus(StatusGaveUp)
			return
		}
		r.setStatus(StatusDisconnected)

		timer := r.clock.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			r.setStatus(StatusDisconnected)
			return
		case <-timer.Chan():
		}
		backoff = min(backoff*2, r.maxBackoff)
	}
}

func (r *Reconciler) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("push channel read ended", "error", err)
			return
		}

		event, err := domain.DecodeEvent(data)
		if err != nil {
			slog.Warn("dropping undecodable push frame", "error", err)
			continue
		}

		switch ev := event.(type) {
		case domain.InitPromptListEvent:
			r.applySnapshot(ev.Prompts, ev.Degraded)
		case domain.NewPromptEvent:
			r.applyCreated(ev.Prompt)
		case domain.PromptDeletedEvent:
			r.applyDeleted(ev.DeletedID)
		}
	}
}

// AcknowledgeCreated merges a prompt learned through the HTTP send
// acknowledgement. If the push channel delivered it first (or delivers it
// later) the duplicate is a no-op and an in-progress reveal keeps running.
func (r *Reconciler) AcknowledgeCreated(prompt domain.Prompt) {
	r.applyCreated(prompt)
}

// AcknowledgeDeleted merges a deletion learned through the HTTP delete
// acknowledgement. Unknown ids are ignored.
func (r *Reconciler) AcknowledgeDeleted(id int64) {
	r.applyDeleted(id)
}

func (r *Reconciler) applyCreated(prompt domain.Prompt) {
	r.mu.Lock()
	if _, exists := r.items[prompt.ID]; exists {
		r.mu.Unlock()
		return
	}

	it := &item{
		prompt:     prompt,
		state:      StateRevealing,
		replyRunes: []rune(prompt.Reply),
	}
	if len(it.replyRunes) == 0 {
		it.state = StateSettled
	}
	r.items[prompt.ID] = it
	r.order = append([]int64{prompt.ID}, r.order...)
	if it.state == StateRevealing {
		r.reveals[prompt.ID] = r.startReveal(prompt.ID)
	}
	r.mu.Unlock()

	r.notifyChange()
}

func (r *Reconciler) applyDeleted(id int64) {
	r.mu.Lock()
	if _, exists := r.items[id]; !exists {
		r.mu.Unlock()
		return
	}

	delete(r.items, id)
	r.order = removeID(r.order, id)
	task := r.reveals[id]
	delete(r.reveals, id)
	r.mu.Unlock()

	if task != nil {
		task.stop()
	}
	r.notifyChange()
}

// applySnapshot replaces the local prompt list with the server's. Prompts
// already known keep their reveal progress; prompts absent from the
// snapshot are dropped.
func (r *Reconciler) applySnapshot(prompts []domain.Prompt, degraded bool) {
	r.mu.Lock()
	r.degraded = degraded

	seen := make(map[int64]struct{}, len(prompts))
	order := make([]int64, 0, len(prompts))
	for _, p := range prompts {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		order = append(order, p.ID)

		if existing, ok := r.items[p.ID]; ok {
			existing.prompt = p
			continue
		}
		runes := []rune(p.Reply)
		r.items[p.ID] = &item{
			prompt:     p,
			state:      StateSettled,
			replyRunes: runes,
			revealed:   len(runes),
		}
	}

	var stopped []*revealTask
	for id := range r.items {
		if _, ok := seen[id]; ok {
			continue
		}
		delete(r.items, id)
		if task := r.reveals[id]; task != nil {
			stopped = append(stopped, task)
			delete(r.reveals, id)
		}
	}
	r.order = order
	r.mu.Unlock()

	for _, task := range stopped {
		task.stop()
	}
	r.notifyChange()
}

// Status reports the connection state.
func (r *Reconciler) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Degraded reports whether the last snapshot was flagged as possibly
// incomplete.
func (r *Reconciler) Degraded() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.degraded
}

// Prompts returns the current prompt list, newest first, with replies
// truncated to their revealed portion.
func (r *Reconciler) Prompts() []PromptView {
	r.mu.Lock()
	defer r.mu.Unlock()

	views := make([]PromptView, 0, len(r.order))
	for _, id := range r.order {
		it, ok := r.items[id]
		if !ok {
			continue
		}
		views = append(views, r.viewLocked(it))
	}
	return views
}

// Prompt returns the view of a single prompt by id.
func (r *Reconciler) Prompt(id int64) (PromptView, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	it, ok := r.items[id]
	if !ok {
		return PromptView{}, false
	}
	return r.viewLocked(it), true
}

// Conversations returns one prompt per conversation, newest first. The most
// recent prompt represents its conversation.
func (r *Reconciler) Conversations() []domain.Prompt {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int64]struct{})
	conversations := make([]domain.Prompt, 0)
	for _, id := range r.order {
		it, ok := r.items[id]
		if !ok {
			continue
		}
		if _, dup := seen[it.prompt.ConversationID]; dup {
			continue
		}
		seen[it.prompt.ConversationID] = struct{}{}
		conversations = append(conversations, it.prompt)
	}
	return conversations
}

func (r *Reconciler) viewLocked(it *item) PromptView {
	return PromptView{
		Prompt: it.prompt,
		State:  it.state,
		Reply:  string(it.replyRunes[:it.revealed]),
	}
}

func (r *Reconciler) setStatus(status Status) {
	r.mu.Lock()
	if r.status == status {
		r.mu.Unlock()
		return
	}
	r.status = status
	r.mu.Unlock()

	if r.onStatus != nil {
		r.onStatus(status)
	}
}

func (r *Reconciler) notifyChange() {
	if r.onChange != nil {
		r.onChange()
	}
}

func removeID(ids []int64, id int64) []int64 {
	for i, candidate := range ids {
		if candidate == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}
