// Package gcp implements the SecretSource port against Google Secret Manager
// and provides the token sources used to call the Sheets API.
package gcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.SecretSource = (*Resolver)(nil)

// LoadServiceIdentity returns the raw service-account key JSON from either an
// inline blob or a key file, preferring the inline form. Returns (nil, nil)
// when neither is configured, in which case clients fall back to ambient
// default credentials.
func LoadServiceIdentity(inlineJSON, filePath string) ([]byte, error) {
	if trimmed := strings.TrimSpace(inlineJSON); strings.HasPrefix(trimmed, "{") {
		if !json.Valid([]byte(trimmed)) {
			return nil, fmt.Errorf("inline service account JSON does not parse")
		}
		return []byte(trimmed), nil
	}

	if filePath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read service account file %s: %w", filePath, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("service account file %s does not parse", filePath)
	}
	return data, nil
}

// accessFunc fetches one secret version payload by resource name. Split out
// so tests can stub the Secret Manager call.
type accessFunc func(ctx context.Context, name string) ([]byte, error)

// Resolver implements driven.SecretSource. Resolution order, first hit wins:
// an environment variable named exactly like the secret ID, then the latest
// version of the secret in Secret Manager. A missing secret is recoverable
// (driven.ErrSecretNotFound), never fatal.
type Resolver struct {
	projectID string
	identity  []byte // Service-account key JSON; nil means ambient credentials.
	timeout   time.Duration
	logger    *slog.Logger
	access    accessFunc
}

// NewResolver creates a Resolver for the given project. identity may be nil.
func NewResolver(projectID string, identity []byte, timeout time.Duration, logger *slog.Logger) *Resolver {
	r := &Resolver{
		projectID: projectID,
		identity:  identity,
		timeout:   timeout,
		logger:    logger,
	}
	r.access = r.accessSecretVersion
	return r
}

// Resolve returns the value of the named secret.
func (r *Resolver) Resolve(ctx context.Context, secretID string) (string, error) {
	// Direct environment override: return verbatim, no remote lookup.
	if v := os.Getenv(secretID); v != "" {
		return v, nil
	}

	if r.projectID == "" {
		return "", fmt.Errorf("secret %q: no env override and no project configured: %w", secretID, driven.ErrSecretNotFound)
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	name := fmt.Sprintf("projects/%s/secrets/%s/versions/latest", r.projectID, secretID)
	payload, err := r.access(ctx, name)
	if status.Code(err) == codes.NotFound {
		r.logger.Warn("secret not found in secret manager", "secret", secretID)
		return "", fmt.Errorf("secret %q: %w", secretID, driven.ErrSecretNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("access secret %q: %w", secretID, err)
	}

	return string(payload), nil
}

// accessSecretVersion is the real Secret Manager call behind Resolve.
func (r *Resolver) accessSecretVersion(ctx context.Context, name string) ([]byte, error) {
	var opts []option.ClientOption
	if len(r.identity) > 0 {
		opts = append(opts, option.WithCredentialsJSON(r.identity))
	}

	client, err := secretmanager.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create secret manager client: %w", err)
	}
	defer client.Close()

	resp, err := client.AccessSecretVersion(ctx,
		&secretmanagerpb.AccessSecretVersionRequest{Name: name},
		gax.WithTimeout(r.timeout),
	)
	if err != nil {
		return nil, err
	}
	return resp.GetPayload().GetData(), nil
}
