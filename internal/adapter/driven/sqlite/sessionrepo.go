package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/brmorais/cadastrohub/internal/domain/model"
	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SessionStore = (*SessionRepo)(nil)

// SessionRepo is the SQLite implementation of the SessionStore port.
type SessionRepo struct {
	db *DB

	// now is swapped in tests to control expiry.
	now func() time.Time
}

// NewSessionRepo creates a SessionRepo on the given database.
func NewSessionRepo(db *DB) *SessionRepo {
	return &SessionRepo{db: db, now: time.Now}
}

// Put stores a new session.
func (r *SessionRepo) Put(ctx context.Context, session model.Session) error {
	const query = `INSERT INTO sessions (id, username, created_at, expires_at) VALUES (?, ?, ?, ?)`
	_, err := r.db.Writer.ExecContext(ctx, query,
		session.ID,
		session.Username,
		session.CreatedAt.UTC().Format(time.RFC3339),
		session.ExpiresAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("put session: %w", err)
	}
	return nil
}

// Get returns the unexpired session with the given ID, or ErrSessionNotFound.
func (r *SessionRepo) Get(ctx context.Context, id string) (model.Session, error) {
	const query = `SELECT id, username, created_at, expires_at FROM sessions WHERE id = ? AND expires_at > ?`

	var session model.Session
	var createdAt, expiresAt string
	err := r.db.Reader.QueryRowContext(ctx, query, id, r.now().UTC().Format(time.RFC3339)).
		Scan(&session.ID, &session.Username, &createdAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, driven.ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("get session: %w", err)
	}

	if session.CreatedAt, err = parseTime(createdAt); err != nil {
		return model.Session{}, fmt.Errorf("parse session created_at: %w", err)
	}
	if session.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return model.Session{}, fmt.Errorf("parse session expires_at: %w", err)
	}

	return session, nil
}

// DeleteExpired removes sessions whose expiry has passed and returns the
// number removed.
func (r *SessionRepo) DeleteExpired(ctx context.Context) (int64, error) {
	const query = `DELETE FROM sessions WHERE expires_at <= ?`
	res, err := r.db.Writer.ExecContext(ctx, query, r.now().UTC().Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count deleted sessions: %w", err)
	}
	return n, nil
}
