// Package transport defines the chat-transport surface the core depends on.
// The Telegram implementation lives in transport/telegram; tests use fakes.
package transport

import "context"

// Sender delivers outbound messages to a user's chat session. Implementations
// must be safe for concurrent use.
type Sender interface {
	// SendMessage sends plain text to the user.
	SendMessage(ctx context.Context, userID int64, text string) error
	// SendPhoto sends a local image file with an optional caption.
	SendPhoto(ctx context.Context, userID int64, path, caption string) error
}
