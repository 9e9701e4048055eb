package driven

import (
	"context"
	"errors"

	"github.com/brmorais/cadastrohub/internal/domain/model"
)

// ErrSessionNotFound indicates the session ID is unknown or already expired.
var ErrSessionNotFound = errors.New("session not found")

// SessionStore defines the driven port for server-side session persistence.
// Each browser holds only an opaque session ID; the authoritative state lives
// here so concurrent operators stay isolated.
type SessionStore interface {
	// Put stores a new session.
	Put(ctx context.Context, session model.Session) error

	// Get returns the session for the given ID, or ErrSessionNotFound.
	// Implementations must not return expired sessions.
	Get(ctx context.Context, id string) (model.Session, error)

	// DeleteExpired removes sessions whose expiry is at or before now.
	// Returns the number of sessions removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
