package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/brmorais/cadastrohub/internal/domain/model"
	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

// ErrInvalidCredentials is returned for every failed login, whatever the
// cause. Unknown username and wrong password are deliberately not
// distinguished, so usernames cannot be enumerated.
var ErrInvalidCredentials = errors.New("invalid credentials")

// SessionGate authenticates operators and issues server-side sessions. Each
// successful login creates an independent session, so concurrent operators
// never share state. There is no logout: sessions end when their TTL runs
// out.
type SessionGate struct {
	directory *UserDirectory
	store     driven.SessionStore
	ttl       time.Duration
	logger    *slog.Logger

	// Swapped in tests.
	now   func() time.Time
	newID func() string
}

// NewSessionGate creates a SessionGate issuing sessions of the given TTL.
func NewSessionGate(directory *UserDirectory, store driven.SessionStore, ttl time.Duration, logger *slog.Logger) *SessionGate {
	return &SessionGate{
		directory: directory,
		store:     store,
		ttl:       ttl,
		logger:    logger,
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// Login validates the submitted credentials and, on success, stores and
// returns a fresh session. Every failure path returns ErrInvalidCredentials.
func (g *SessionGate) Login(ctx context.Context, username, password string) (model.Session, error) {
	if !g.directory.Authenticate(username, password) {
		g.logger.Info("login rejected", "username", username)
		return model.Session{}, ErrInvalidCredentials
	}

	now := g.now()
	session := model.Session{
		ID:        g.newID(),
		Username:  username,
		CreatedAt: now,
		ExpiresAt: now.Add(g.ttl),
	}
	if err := g.store.Put(ctx, session); err != nil {
		return model.Session{}, fmt.Errorf("store session: %w", err)
	}

	g.logger.Info("login accepted", "username", username, "expires_at", session.ExpiresAt)
	return session, nil
}

// Authenticate returns the live session for the given ID, or
// driven.ErrSessionNotFound for unknown and expired sessions alike.
func (g *SessionGate) Authenticate(ctx context.Context, sessionID string) (model.Session, error) {
	if sessionID == "" {
		return model.Session{}, driven.ErrSessionNotFound
	}
	return g.store.Get(ctx, sessionID)
}

// Sweep removes expired sessions. Called once at startup; expired sessions
// are also excluded from lookups, so sweeping is housekeeping, not
// correctness.
func (g *SessionGate) Sweep(ctx context.Context) {
	n, err := g.store.DeleteExpired(ctx)
	if err != nil {
		g.logger.Warn("session sweep failed", "error", err)
		return
	}
	if n > 0 {
		g.logger.Info("expired sessions removed", "count", n)
	}
}
