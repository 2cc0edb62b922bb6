package relay

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"

	"github.com/ivanskieee/lantern/internal/domain"
	"github.com/ivanskieee/lantern/internal/metrics"
)

const (
	commandTimeout = 5 * time.Second // actor command timeout
	stopTimeout    = 10 * time.Second
)

// relayCmd is the command interface for the Relay actor.
type relayCmd interface{ isRelayCmd() }

type baseRelayCmd struct{}

func (baseRelayCmd) isRelayCmd() {}

type connectResult struct {
	id  uuid.UUID
	err error
}

type connectCmd struct {
	baseRelayCmd
	connection   *websocket.Conn
	replyChannel chan connectResult
}

type disconnectCmd struct {
	baseRelayCmd
	id uuid.UUID
}

type createdCmd struct {
	baseRelayCmd
	prompt domain.Prompt
}

type deletedCmd struct {
	baseRelayCmd
	id int64
}

type fillCmd struct {
	baseRelayCmd
	prompts  []domain.Prompt
	degraded bool
}

type subscriberCountCmd struct {
	baseRelayCmd
	replyChannel chan int
}

type snapshotCmd struct {
	baseRelayCmd
	replyChannel chan []domain.Prompt
}

type stopCmd struct {
	baseRelayCmd
}

// Relay owns the prompt snapshot and the live subscriber set.
// All mutation happens on the actor goroutine.
type Relay struct {
	cmdCh          chan relayCmd
	clock          clockwork.Clock
	subscribers    map[uuid.UUID]*subscriberWriter
	snapshot       []domain.Prompt // newest first
	degraded       bool
	maxSubscribers int
	done           chan struct{}
	stopTimeout    time.Duration
}

// NewRelay creates a relay with an empty snapshot and starts its actor
// goroutine. maxSubscribers caps concurrent connections.
func NewRelay(clock clockwork.Clock, maxSubscribers int) *Relay {
	r := &Relay{
		cmdCh:          make(chan relayCmd, 256),
		clock:          clock,
		subscribers:    make(map[uuid.UUID]*subscriberWriter),
		snapshot:       make([]domain.Prompt, 0),
		maxSubscribers: maxSubscribers,
		done:           make(chan struct{}),
		stopTimeout:    stopTimeout,
	}
	go r.run()
	return r
}

// Connect registers a subscriber and queues the snapshot init event to it.
// Returns the subscriber id used for Disconnect.
func (r *Relay) Connect(conn *websocket.Conn) (uuid.UUID, error) {
	replyCh := make(chan connectResult, 1)
	r.cmdCh <- connectCmd{connection: conn, replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case res := <-replyCh:
		return res.id, res.err
	case <-timer.Chan():
		return uuid.Nil, fmt.Errorf("connect command timed out after %v", commandTimeout)
	}
}

// Disconnect removes a subscriber. Idempotent.
func (r *Relay) Disconnect(id uuid.UUID) {
	r.cmdCh <- disconnectCmd{id: id}
}

// NotifyCreated inserts the prompt at the front of the snapshot and fans the
// delta out to every connected subscriber. Returns an error only when the
// actor cannot accept the command within the command timeout.
func (r *Relay) NotifyCreated(prompt domain.Prompt) error {
	return r.enqueue(createdCmd{prompt: prompt})
}

// NotifyDeleted removes the prompt from the snapshot if present and fans the
// delta out to every connected subscriber.
func (r *Relay) NotifyDeleted(id int64) error {
	return r.enqueue(deletedCmd{id: id})
}

// enqueue submits a command without blocking forever on a stuck actor.
func (r *Relay) enqueue(cmd relayCmd) error {
	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case r.cmdCh <- cmd:
		return nil
	case <-timer.Chan():
		return fmt.Errorf("relay command queue full after %v", commandTimeout)
	}
}

// Fill replaces the snapshot, typically with the Store's content at startup.
// degraded marks the snapshot as possibly incomplete; the flag travels with
// every subsequent init event until a non-degraded Fill.
func (r *Relay) Fill(prompts []domain.Prompt, degraded bool) {
	r.cmdCh <- fillCmd{prompts: prompts, degraded: degraded}
}

// SubscriberCount returns the number of connected subscribers.
// Returns -1 if the command times out.
func (r *Relay) SubscriberCount() int {
	replyCh := make(chan int, 1)
	r.cmdCh <- subscriberCountCmd{replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case count := <-replyCh:
		return count
	case <-timer.Chan():
		slog.Warn("SubscriberCount timed out", "timeout", commandTimeout)
		return -1
	}
}

// Snapshot returns a copy of the current snapshot, newest first.
func (r *Relay) Snapshot() []domain.Prompt {
	replyCh := make(chan []domain.Prompt, 1)
	r.cmdCh <- snapshotCmd{replyChannel: replyCh}

	timer := r.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case snapshot := <-replyCh:
		return snapshot
	case <-timer.Chan():
		slog.Warn("Snapshot timed out", "timeout", commandTimeout)
		return nil
	}
}

// Stop shuts down the relay, closing all subscriber connections.
// Blocks until the actor goroutine has exited or timeout is reached.
func (r *Relay) Stop() {
	r.cmdCh <- stopCmd{}

	timeout := r.clock.NewTimer(r.stopTimeout)
	defer timeout.Stop()

	select {
	case <-r.done:
		slog.Info("Relay stopped gracefully")
	case <-timeout.Chan():
		slog.Warn("Relay stop timeout exceeded, forcing exit", "timeout", r.stopTimeout)
		close(r.done)
	}
}

func (r *Relay) run() {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Relay panic recovered", "panic", rec)
			r.closeAllSubscribers("relay panic")
		}
	}()
	defer close(r.done)

	for cmd := range r.cmdCh {
		switch c := cmd.(type) {
		case connectCmd:
			r.handleConnect(c)
		case disconnectCmd:
			r.handleDisconnect(c.id)
		case createdCmd:
			r.handleCreated(c.prompt)
		case deletedCmd:
			r.handleDeleted(c.id)
		case fillCmd:
			r.handleFill(c)
		case subscriberCountCmd:
			c.replyChannel <- len(r.subscribers)
		case snapshotCmd:
			snapshot := make([]domain.Prompt, len(r.snapshot))
			copy(snapshot, r.snapshot)
			c.replyChannel <- snapshot
		case stopCmd:
			r.handleStop()
			return
		default:
			slog.Warn("Relay received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
		}
	}
}

func (r *Relay) handleConnect(c connectCmd) {
	if len(r.subscribers) >= r.maxSubscribers {
		slog.Warn("Rejecting subscriber: max subscribers reached", "max_subscribers", r.maxSubscribers)
		c.connection.Close()
		c.replyChannel <- connectResult{err: fmt.Errorf("max subscribers (%d) reached", r.maxSubscribers)}
		return
	}

	init := domain.InitPromptListEvent{
		Event:    domain.EventInitPromptList,
		Prompts:  r.snapshot,
		Degraded: r.degraded,
	}
	data, err := json.Marshal(init)
	if err != nil {
		c.connection.Close()
		c.replyChannel <- connectResult{err: fmt.Errorf("failed to marshal init event: %w", err)}
		return
	}

	id := uuid.New()
	sw := newSubscriberWriter(c.connection, r.clock)
	r.subscribers[id] = sw

	// The send buffer is empty at this point, so the init event cannot
	// overflow it.
	sw.sendChannel <- data

	metrics.RelaySubscribers.Set(float64(len(r.subscribers)))
	slog.Debug("Subscriber registered", "subscriber_id", id.String(), "total_subscribers", len(r.subscribers))
	c.replyChannel <- connectResult{id: id}
}

func (r *Relay) handleDisconnect(id uuid.UUID) {
	sw, exists := r.subscribers[id]
	if !exists {
		return
	}

	sw.stop()
	delete(r.subscribers, id)

	metrics.RelaySubscribers.Set(float64(len(r.subscribers)))
	slog.Debug("Subscriber unregistered", "subscriber_id", id.String(), "remaining_subscribers", len(r.subscribers))
}

func (r *Relay) handleCreated(prompt domain.Prompt) {
	r.snapshot = append([]domain.Prompt{prompt}, r.snapshot...)
	metrics.RelaySnapshotSize.Set(float64(len(r.snapshot)))

	data, err := json.Marshal(domain.NewPromptEvent{Event: domain.EventNewPrompt, Prompt: prompt})
	if err != nil {
		slog.Error("Failed to marshal new_prompt event", "error", err)
		return
	}
	r.fanOut(domain.EventNewPrompt, data)
}

func (r *Relay) handleDeleted(id int64) {
	for i, p := range r.snapshot {
		if p.ID == id {
			r.snapshot = append(r.snapshot[:i], r.snapshot[i+1:]...)
			break
		}
	}
	metrics.RelaySnapshotSize.Set(float64(len(r.snapshot)))

	data, err := json.Marshal(domain.PromptDeletedEvent{Event: domain.EventPromptDeleted, DeletedID: id})
	if err != nil {
		slog.Error("Failed to marshal prompt_deleted event", "error", err)
		return
	}
	r.fanOut(domain.EventPromptDeleted, data)
}

func (r *Relay) handleFill(c fillCmd) {
	r.snapshot = make([]domain.Prompt, len(c.prompts))
	copy(r.snapshot, c.prompts)
	r.degraded = c.degraded
	metrics.RelaySnapshotSize.Set(float64(len(r.snapshot)))
	slog.Info("Relay snapshot filled", "prompts", len(r.snapshot), "degraded", r.degraded)
}

// fanOut queues data to every subscriber. Subscribers whose send buffer is
// full are evicted rather than blocking the actor.
func (r *Relay) fanOut(event string, data []byte) {
	metrics.RelayEventsEmitted.WithLabelValues(event).Inc()

	var slow []uuid.UUID
	for id, sw := range r.subscribers {
		select {
		case sw.sendChannel <- data:
		default:
			slow = append(slow, id)
		}
	}

	for _, id := range slow {
		slog.Warn("Disconnecting slow subscriber", "subscriber_id", id.String())
		metrics.RelaySlowSubscribersEvicted.Inc()
		r.handleDisconnect(id)
	}
}

func (r *Relay) handleStop() {
	slog.Info("Relay shutting down", "subscribers", len(r.subscribers))
	r.closeAllSubscribers("Server shutting down")
}

// closeAllSubscribers closes all subscriber connections with the given reason.
// Used during panic recovery and graceful shutdown.
func (r *Relay) closeAllSubscribers(reason string) {
	for id, sw := range r.subscribers {
		sw.stopGraceful(reason)
		delete(r.subscribers, id)
	}
	metrics.RelaySubscribers.Set(0)
}
