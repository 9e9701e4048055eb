package driven

import (
	"context"
	"errors"
)

// ErrSecretNotFound indicates no source yielded a value for the requested
// secret. Recoverable: callers apply their own fallback or fail their own
// startup check, the resolver itself never aborts the process.
var ErrSecretNotFound = errors.New("secret not found in any source")

// SecretSource defines the driven port for resolving named secrets. The
// adapter tries an environment-style override first, then the remote secret
// store, returning the first value found.
type SecretSource interface {
	// Resolve returns the secret's latest value. Returns ErrSecretNotFound
	// (possibly wrapped) when no source yields a value.
	Resolve(ctx context.Context, secretID string) (string, error)
}
