// Package repositories implements SQLite persistence for the todo list.
//
// Key Implementations:
//   - [TodoRepository] : per-username todo entries ordered by insertion
//
// Entries are addressed by position within a username's list, matching the HTTP surface. The
// autoincrement sequence column provides that order; ids are UUIDs and are never exposed.
package repositories
