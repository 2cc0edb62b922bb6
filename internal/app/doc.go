// Package app provides the application service layer.
//
// Orchestrates the use cases: send a message (model call, persist, notify),
// list prompts, fetch a conversation, delete a prompt. Sits between HTTP
// handlers and the domain interfaces. Relay notification is best-effort with
// bounded retry; it never fails the request that triggered it.
package app
