// Package client implements the subscriber side of the relay: an HTTP API
// client for the chat endpoints and a Reconciler that merges the push
// channel's snapshot and delta events into a de-duplicated local view.
//
// The Reconciler owns reconnection (bounded attempts, capped exponential
// backoff), the per-identifier duplicate-delivery guard, and the reveal
// animation that surfaces reply text incrementally. Front ends observe it
// through an OnChange callback and read accessors; they hold no state of
// their own.
package client
