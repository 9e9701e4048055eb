package gcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gsheets "google.golang.org/api/sheets/v4"
)

// callbackAddr is the fixed local redirect target for the delegated
// authorization flow. The OAuth client registration must list
// http://127.0.0.1:8484/callback as an authorized redirect URI.
const callbackAddr = "127.0.0.1:8484"

// ServiceAccountTokenSource builds a Sheets-scoped token source from a
// service-account key. This is the default, non-interactive credential path
// for headless deployments.
func ServiceAccountTokenSource(ctx context.Context, identity []byte) (oauth2.TokenSource, error) {
	cfg, err := google.JWTConfigFromJSON(identity, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account key: %w", err)
	}
	return cfg.TokenSource(ctx), nil
}

// OAuthFlow implements the delegated authorization-code variant: reuse a
// cached token when valid, refresh it in place when expired, and only fall
// back to the interactive browser flow when neither works. The resulting
// token is cached for reuse across runs.
type OAuthFlow struct {
	config    *oauth2.Config
	cachePath string
	logger    *slog.Logger
}

// NewOAuthFlow parses an OAuth client registration (the "installed app"
// client secret JSON) and prepares a flow caching tokens at cachePath.
func NewOAuthFlow(clientJSON []byte, cachePath string, logger *slog.Logger) (*OAuthFlow, error) {
	cfg, err := google.ConfigFromJSON(clientJSON, gsheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse oauth client JSON: %w", err)
	}
	cfg.RedirectURL = "http://" + callbackAddr + "/callback"

	return &OAuthFlow{
		config:    cfg,
		cachePath: cachePath,
		logger:    logger,
	}, nil
}

// TokenSource returns a Sheets-scoped token source, performing the
// interactive flow only when no cached token can be used or refreshed.
// Refreshed tokens are written back to the cache.
func (f *OAuthFlow) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	tok, err := f.readCache()
	if err != nil {
		f.logger.Warn("token cache unreadable, starting fresh", "path", f.cachePath, "error", err)
	}

	if tok != nil {
		ts := f.config.TokenSource(ctx, tok)
		if tok.Valid() {
			return f.persisting(ts), nil
		}
		if tok.RefreshToken != "" {
			fresh, refreshErr := ts.Token()
			if refreshErr == nil {
				if writeErr := f.writeCache(fresh); writeErr != nil {
					f.logger.Warn("could not persist refreshed token", "error", writeErr)
				}
				return f.persisting(oauth2.ReuseTokenSource(fresh, ts)), nil
			}
			f.logger.Warn("token refresh failed, reauthorizing", "error", refreshErr)
		}
	}

	tok, err = f.authorize(ctx)
	if err != nil {
		return nil, err
	}
	if writeErr := f.writeCache(tok); writeErr != nil {
		f.logger.Warn("could not persist token", "error", writeErr)
	}
	return f.persisting(f.config.TokenSource(ctx, tok)), nil
}

// authorize runs the interactive authorization-code flow: listen on the fixed
// local callback, direct the operator to the consent URL, exchange the code.
func (f *OAuthFlow) authorize(ctx context.Context) (*oauth2.Token, error) {
	listener, err := net.Listen("tcp", callbackAddr)
	if err != nil {
		return nil, fmt.Errorf("listen on oauth callback %s: %w", callbackAddr, err)
	}
	defer listener.Close()

	state, err := randomState()
	if err != nil {
		return nil, err
	}

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	srv := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("state") != state {
			errCh <- fmt.Errorf("oauth callback state mismatch")
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}
		code := r.URL.Query().Get("code")
		if code == "" {
			errCh <- fmt.Errorf("oauth callback missing code")
			http.Error(w, "missing code", http.StatusBadRequest)
			return
		}
		fmt.Fprintln(w, "Autorização concluída. Pode fechar esta janela.")
		codeCh <- code
	})}
	go srv.Serve(listener)
	defer srv.Close()

	url := f.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
	f.logger.Info("authorization required, open this URL in a browser", "url", url)
	fmt.Fprintf(os.Stderr, "Abra no navegador para autorizar: %s\n", url)

	select {
	case code := <-codeCh:
		tok, err := f.config.Exchange(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("exchange authorization code: %w", err)
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// persisting wraps ts so silently refreshed tokens also land in the cache.
func (f *OAuthFlow) persisting(ts oauth2.TokenSource) oauth2.TokenSource {
	return &cachingTokenSource{inner: ts, flow: f}
}

type cachingTokenSource struct {
	inner oauth2.TokenSource
	flow  *OAuthFlow
	last  string // AccessToken of the most recently cached token.
}

func (c *cachingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := c.inner.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != c.last {
		if writeErr := c.flow.writeCache(tok); writeErr != nil {
			c.flow.logger.Warn("could not persist refreshed token", "error", writeErr)
		}
		c.last = tok.AccessToken
	}
	return tok, nil
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// readCache loads the cached token. Returns (nil, nil) when no cache exists.
func (f *OAuthFlow) readCache() (*oauth2.Token, error) {
	data, err := os.ReadFile(f.cachePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parse token cache: %w", err)
	}
	return &tok, nil
}

// writeCache persists tok with restrictive permissions. Writes go to a temp
// file in the same directory followed by a rename, so a crash mid-write never
// leaves a truncated cache.
func (f *OAuthFlow) writeCache(tok *oauth2.Token) error {
	data, err := json.Marshal(tok)
	if err != nil {
		return fmt.Errorf("marshal token: %w", err)
	}

	dir := filepath.Dir(f.cachePath)
	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return fmt.Errorf("create temp token file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod token file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write token file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close token file: %w", err)
	}

	if err := os.Rename(tmp.Name(), f.cachePath); err != nil {
		return fmt.Errorf("install token file: %w", err)
	}
	return nil
}
