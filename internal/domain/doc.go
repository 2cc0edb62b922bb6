// Package domain holds the core types and interfaces shared across layers.
//
// Prompt is the persisted message pair, Event the closed set of push-channel
// payloads. Repositories and collaborators are interfaces here; concrete
// implementations live in database, cohere and relay.
package domain
