package client

// RevealState tracks the display phase of a prompt's reply.
type RevealState int

const (
	// StateRevealing means the reply text is being surfaced incrementally.
	StateRevealing RevealState = iota
	// StateSettled means the full reply is visible.
	StateSettled
)

func (s RevealState) String() string {
	switch s {
	case StateRevealing:
		return "revealing"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// revealTask advances one prompt's reveal on a ticker until the full reply
// is shown or the task is cancelled. Cancellation is cooperative: the
// reconciler closes stopCh, and the goroutine exits on the next select.
type revealTask struct {
	stopCh chan struct{}
	doneCh chan struct{}
}

func (r *Reconciler) startReveal(id int64) *revealTask {
	task := &revealTask{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}

	go func() {
		defer close(task.doneCh)

		ticker := r.clock.NewTicker(r.revealInterval)
		defer ticker.Stop()

		for {
			select {
			case <-task.stopCh:
				return
			case <-ticker.Chan():
				if done := r.advanceReveal(id); done {
					return
				}
			}
		}
	}()

	return task
}

func (t *revealTask) stop() {
	select {
	case <-t.stopCh:
	default:
		close(t.stopCh)
	}
}

// advanceReveal shows the next chunk of the reply. It reports true when
// the prompt has settled or no longer exists.
func (r *Reconciler) advanceReveal(id int64) bool {
	r.mu.Lock()
	it, ok := r.items[id]
	if !ok || it.state != StateRevealing {
		r.mu.Unlock()
		return true
	}

	it.revealed += r.revealStep
	total := len(it.replyRunes)
	settled := it.revealed >= total
	if settled {
		it.revealed = total
		it.state = StateSettled
		delete(r.reveals, id)
	}
	r.mu.Unlock()

	r.notifyChange()
	return settled
}
