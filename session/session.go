package session

import (
	"context"

	"coursechat/models"
)

// Store keeps per-session conversation history. Implementations create a
// session on first write, so callers never need an explicit create step
// before AddExchange. History is bounded: once the configured cap is
// reached the oldest exchange is evicted.
type Store interface {
	// Create allocates a fresh session and returns its id.
	Create(ctx context.Context) (string, error)
	// History returns the retained exchanges, oldest first. Unknown
	// sessions yield an empty history, not an error.
	History(ctx context.Context, id string) ([]models.Exchange, error)
	// AddExchange appends one query/answer pair, evicting the oldest
	// exchange when the session is at capacity.
	AddExchange(ctx context.Context, id string, ex models.Exchange) error
	// Clear drops a session's history.
	Clear(ctx context.Context, id string) error
}
