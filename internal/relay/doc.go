// Package relay implements the in-memory broadcast relay using the actor pattern.
//
// The Relay holds the newest-first snapshot of known prompts and a set of live
// WebSocket subscribers. Write-path notifications mutate the snapshot and fan
// out delta events; a new subscriber immediately receives the full snapshot.
// Uses a single goroutine + command channel (no mutexes). Per-connection write
// goroutines with bounded buffers isolate slow subscribers: on overflow the
// subscriber is dropped and must reconnect.
package relay
