// Package database implements the prompt store on PostgreSQL.
//
// Connect builds a pgx connection pool; migrations are embedded SQL files run
// through tern under a PostgreSQL advisory lock so concurrent instances do not
// race. MemoryPromptRepo is an in-memory stand-in for tests.
package database
