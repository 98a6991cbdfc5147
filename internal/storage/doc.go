// Package storage persists the full bot state (cats + connection codes).
//
// The state is tiny (a handful of users), so every driver does a full-state
// overwrite on Save. Two drivers exist:
//
//   - "file": atomic JSON snapshot (tmp + rename)
//   - "sqlite": SQLite database file (optional, build tag "sqlite")
package storage
