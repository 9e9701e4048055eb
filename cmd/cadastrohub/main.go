package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"golang.org/x/oauth2"
	"google.golang.org/api/option"

	gcpadapter "github.com/brmorais/cadastrohub/internal/adapter/driven/gcp"
	sheetsadapter "github.com/brmorais/cadastrohub/internal/adapter/driven/sheets"
	sqliteadapter "github.com/brmorais/cadastrohub/internal/adapter/driven/sqlite"
	httphandler "github.com/brmorais/cadastrohub/internal/adapter/driving/http"
	webhandler "github.com/brmorais/cadastrohub/internal/adapter/driving/web"
	"github.com/brmorais/cadastrohub/internal/application"
	"github.com/brmorais/cadastrohub/internal/config"
)

// defaultUsers is the development-only fallback directory, enabled by
// CADASTROHUB_ALLOW_DEFAULT_USERS. Production startups without a usable
// credential secret fail instead of falling back.
var defaultUsers = map[string]string{
	"Lara":         "9096",
	"Edy":          "1993",
	"Camilla":      "1989",
	"Valeria":      "Ze2024",
	"OutroUsuario": "Senha456",
}

func main() {
	if err := run(); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	slog.Info("config loaded",
		"listen_addr", cfg.ListenAddr,
		"db_path", cfg.DBPath,
		"auth_mode", cfg.AuthMode,
		"project_id", cfg.ProjectID,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Load the Google service identity and build the secret resolver.
	identity, err := gcpadapter.LoadServiceIdentity(cfg.ServiceAccountJSON, cfg.ServiceAccountFile)
	if err != nil {
		return err
	}
	secrets := gcpadapter.NewResolver(cfg.ProjectID, identity, cfg.HTTPTimeout, slog.Default())

	// 4. Resolve the spreadsheet ID. Without it there is nothing to serve.
	spreadsheetID, err := secrets.Resolve(ctx, cfg.SpreadsheetSecretID)
	if err != nil {
		return fmt.Errorf("resolve spreadsheet ID: %w", err)
	}
	if spreadsheetID == "" {
		return errors.New("spreadsheet ID resolved empty")
	}

	// 5. Build the Sheets client with the configured credential mode.
	tokenSource, err := sheetsTokenSource(ctx, cfg, identity)
	if err != nil {
		return err
	}
	recordStore, err := sheetsadapter.NewClient(ctx, spreadsheetID, option.WithTokenSource(tokenSource))
	if err != nil {
		return err
	}
	slog.Info("sheets client ready")

	// 6. Open the session database (dual reader/writer with WAL mode).
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	// 7. Run migrations on writer connection.
	if err := sqliteadapter.RunMigrations(db.Writer); err != nil {
		return err
	}
	slog.Info("migrations complete")

	// 8. Load the operator directory from the credential secret.
	var fallback map[string]string
	if cfg.AllowDefaultUsers {
		slog.Warn("default user fallback enabled, do not use in production")
		fallback = defaultUsers
	}
	directory, err := application.LoadUserDirectory(ctx, secrets, cfg.UsersSecretID, fallback, slog.Default())
	if err != nil {
		return fmt.Errorf("load user directory: %w", err)
	}

	// 9. Wire the services.
	sessionStore := sqliteadapter.NewSessionRepo(db)
	gate := application.NewSessionGate(directory, sessionStore, cfg.SessionTTL, slog.Default())
	gate.Sweep(ctx)
	regSvc := application.NewRegistrationService(recordStore, slog.Default())

	// 10. Register the REST API and the web GUI on one mux.
	mux := http.NewServeMux()
	httphandler.RegisterAPIRoutes(mux, httphandler.NewHandler(gate, regSvc, slog.Default()))
	webhandler.RegisterRoutes(mux, webhandler.NewHandler(gate, regSvc, slog.Default()))
	handler := httphandler.ApplyMiddleware(mux, slog.Default())

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", "error", err)
		}
	}()

	slog.Info("cadastrohub started", "listen_addr", cfg.ListenAddr)

	// 11. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	// 12. Graceful shutdown with 10s timeout for HTTP server drain.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// sheetsTokenSource builds the OAuth2 token source for the Sheets API
// according to the configured auth mode. Service accounts are the headless
// default; the delegated flow is for workstations where a person can approve
// the consent screen once, after which the cached token refreshes silently.
func sheetsTokenSource(ctx context.Context, cfg *config.Config, identity []byte) (oauth2.TokenSource, error) {
	switch cfg.AuthMode {
	case config.AuthOAuth:
		clientJSON, err := os.ReadFile(cfg.OAuthClientFile)
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
		flow, err := gcpadapter.NewOAuthFlow(clientJSON, cfg.TokenCachePath, slog.Default())
		if err != nil {
			return nil, err
		}
		return flow.TokenSource(ctx)
	default:
		if len(identity) == 0 {
			return nil, errors.New("service account auth requires GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE")
		}
		return gcpadapter.ServiceAccountTokenSource(ctx, identity)
	}
}
