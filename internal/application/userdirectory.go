// Package application holds the services between the driving adapters and
// the driven ports: user directory, session gate, and registration flow.
package application

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

// ErrNoUsers indicates the user directory secret could not be resolved into a
// non-empty mapping and no fallback directory was configured. Fatal at
// startup: the service must not come up without a real operator directory.
var ErrNoUsers = errors.New("user directory unresolved and no fallback configured")

// dummyHash is compared against when the username is unknown, so unknown-user
// and wrong-password attempts cost the same.
var dummyHash = []byte("$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy")

// UserDirectory maps operator usernames to password verifiers. Loaded once at
// startup from a resolved secret and immutable thereafter; never written back.
// Values are bcrypt hashes; bare values are accepted as plaintext for
// migration and flagged in the logs.
type UserDirectory struct {
	users  map[string]string
	logger *slog.Logger
}

// LoadUserDirectory resolves the named secret into a username-to-verifier
// mapping. The secret must be a non-empty JSON object of strings. When
// resolution fails or the shape is invalid, fallback is used if provided
// (development only) and the condition is logged; with no fallback the load
// fails, which callers treat as fatal.
func LoadUserDirectory(ctx context.Context, secrets driven.SecretSource, secretID string, fallback map[string]string, logger *slog.Logger) (*UserDirectory, error) {
	raw, err := secrets.Resolve(ctx, secretID)
	if err != nil && !errors.Is(err, driven.ErrSecretNotFound) {
		return nil, fmt.Errorf("resolve user directory secret: %w", err)
	}

	users, parseErr := parseDirectory(raw)
	if parseErr == nil {
		d := &UserDirectory{users: users, logger: logger}
		d.warnPlaintext()
		return d, nil
	}

	if fallback == nil {
		return nil, fmt.Errorf("%w: %v", ErrNoUsers, parseErr)
	}

	logger.Warn("user directory secret unusable, using configured fallback directory",
		"secret", secretID,
		"reason", parseErr,
	)
	d := &UserDirectory{users: fallback, logger: logger}
	d.warnPlaintext()
	return d, nil
}

// parseDirectory validates raw as a non-empty JSON object of strings.
func parseDirectory(raw string) (map[string]string, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("secret is empty")
	}

	var users map[string]string
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("secret is not a JSON object of strings: %w", err)
	}
	if len(users) == 0 {
		return nil, errors.New("secret is an empty object")
	}
	return users, nil
}

// Authenticate reports whether the username/password pair is valid. Unknown
// usernames and wrong passwords are indistinguishable to the caller, and both
// paths perform a hash comparison.
func (d *UserDirectory) Authenticate(username, password string) bool {
	verifier, ok := d.users[username]
	if !ok {
		// Equalize cost with the known-user path.
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}

	if isBcryptHash(verifier) {
		return bcrypt.CompareHashAndPassword([]byte(verifier), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(verifier), []byte(password)) == 1
}

// Len returns the number of directory entries.
func (d *UserDirectory) Len() int { return len(d.users) }

func isBcryptHash(v string) bool {
	return strings.HasPrefix(v, "$2a$") || strings.HasPrefix(v, "$2b$") || strings.HasPrefix(v, "$2y$")
}

// warnPlaintext logs once per plaintext entry so operators migrate to hashes.
func (d *UserDirectory) warnPlaintext() {
	for username, verifier := range d.users {
		if !isBcryptHash(verifier) {
			d.logger.Warn("user has a plaintext password, store a bcrypt hash instead", "username", username)
		}
	}
}
