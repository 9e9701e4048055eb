// Package config loads application configuration from environment variables.
package config

import (
	"fmt"
	"os"
	"time"
)

// Auth modes for the Sheets credential.
const (
	// AuthServiceAccount uses a service-account key, non-interactive. Default.
	AuthServiceAccount = "service_account"
	// AuthOAuth runs the delegated authorization flow with a local token cache.
	AuthOAuth = "oauth"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	ProjectID           string
	UsersSecretID       string
	SpreadsheetSecretID string
	ServiceAccountJSON  string
	ServiceAccountFile  string
	AuthMode            string
	OAuthClientFile     string
	TokenCachePath      string
	ListenAddr          string
	DBPath              string
	HTTPTimeout         time.Duration
	SessionTTL          time.Duration
	AllowDefaultUsers   bool
}

// Load reads configuration from environment variables and returns a validated
// Config. The spreadsheet ID itself is not read here: it resolves through the
// secret source (env override first), and a missing ID is a fatal startup
// condition enforced by the composition root.
//
// Optional variables with defaults: GCP_SECRET_ID_USERS (USER_CREDENTIALS),
// GCP_SECRET_ID_SPREADSHEET (SPREADSHEET_ID), CADASTROHUB_AUTH_MODE
// (service_account), CADASTROHUB_TOKEN_CACHE (token_cache.json),
// CADASTROHUB_LISTEN_ADDR (127.0.0.1:8080), CADASTROHUB_DB_PATH
// (cadastrohub.db), CADASTROHUB_HTTP_TIMEOUT (30s), CADASTROHUB_SESSION_TTL
// (12h).
func Load() (*Config, error) {
	cfg := &Config{
		ProjectID:           os.Getenv("GCP_PROJECT_ID"),
		UsersSecretID:       envOr("GCP_SECRET_ID_USERS", "USER_CREDENTIALS"),
		SpreadsheetSecretID: envOr("GCP_SECRET_ID_SPREADSHEET", "SPREADSHEET_ID"),
		ServiceAccountJSON:  os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile:  os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
		AuthMode:            envOr("CADASTROHUB_AUTH_MODE", AuthServiceAccount),
		OAuthClientFile:     os.Getenv("CADASTROHUB_OAUTH_CLIENT_FILE"),
		TokenCachePath:      envOr("CADASTROHUB_TOKEN_CACHE", "token_cache.json"),
		ListenAddr:          envOr("CADASTROHUB_LISTEN_ADDR", "127.0.0.1:8080"),
		DBPath:              envOr("CADASTROHUB_DB_PATH", "cadastrohub.db"),
	}

	var err error
	if cfg.HTTPTimeout, err = durationEnv("CADASTROHUB_HTTP_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SessionTTL, err = durationEnv("CADASTROHUB_SESSION_TTL", 12*time.Hour); err != nil {
		return nil, err
	}

	switch v := os.Getenv("CADASTROHUB_ALLOW_DEFAULT_USERS"); v {
	case "", "0", "false":
	case "1", "true":
		cfg.AllowDefaultUsers = true
	default:
		return nil, fmt.Errorf("CADASTROHUB_ALLOW_DEFAULT_USERS has invalid value %q (want 0/1/true/false)", v)
	}

	switch cfg.AuthMode {
	case AuthServiceAccount:
	case AuthOAuth:
		if cfg.OAuthClientFile == "" {
			return nil, fmt.Errorf("CADASTROHUB_AUTH_MODE=oauth requires CADASTROHUB_OAUTH_CLIENT_FILE")
		}
	default:
		return nil, fmt.Errorf("CADASTROHUB_AUTH_MODE has invalid value %q (want %s or %s)",
			cfg.AuthMode, AuthServiceAccount, AuthOAuth)
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, v, err)
	}
	return parsed, nil
}
