// Package httphandler is the HTTP driving adapter serving the REST API.
package httphandler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/brmorais/cadastrohub/internal/application"
	"github.com/brmorais/cadastrohub/internal/domain/model"
	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

// SessionCookie carries the opaque session ID issued at login.
const SessionCookie = "cadastrohub_session"

// Handler is the HTTP driving adapter that serves the REST API.
type Handler struct {
	gate   *application.SessionGate
	regSvc *application.RegistrationService
	logger *slog.Logger
}

// NewHandler creates a Handler with all required dependencies.
func NewHandler(gate *application.SessionGate, regSvc *application.RegistrationService, logger *slog.Logger) *Handler {
	return &Handler{
		gate:   gate,
		regSvc: regSvc,
		logger: logger,
	}
}

// RegisterAPIRoutes registers all REST routes on the provided mux. Every
// record route requires a live session; only health and login are open.
func RegisterAPIRoutes(mux *http.ServeMux, h *Handler) {
	mux.HandleFunc("GET /api/v1/health", h.Health)
	mux.HandleFunc("POST /api/v1/login", h.Login)

	mux.Handle("GET /api/v1/records/{kind}", h.requireSession(http.HandlerFunc(h.ListRecords)))
	mux.Handle("POST /api/v1/records/{kind}", h.requireSession(http.HandlerFunc(h.CreateRecord)))
	mux.Handle("PUT /api/v1/records/{kind}/{index}", h.requireSession(http.HandlerFunc(h.UpdateRecord)))
}

// Health reports service liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// Login validates credentials and issues a session. The failure response is
// identical for unknown usernames and wrong passwords.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeStrict(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	session, err := h.gate.Login(r.Context(), req.Username, req.Password)
	if errors.Is(err, application.ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "credenciais inválidas")
		return
	}
	if err != nil {
		h.logger.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	http.SetCookie(w, sessionCookie(session))
	writeJSON(w, http.StatusOK, toLoginResponse(session))
}

// ListRecords returns the materialized table for the given record kind.
// A remote read failure degrades to an empty table flagged degraded.
func (h *Handler) ListRecords(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown record kind")
		return
	}

	table, degraded, err := h.regSvc.List(r.Context(), kind)
	if err != nil {
		h.logger.Error("list records failed", "kind", kind, "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	writeJSON(w, http.StatusOK, toTableResponse(table, degraded))
}

// CreateRecord validates and appends a new registration.
func (h *Handler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown record kind")
		return
	}

	var err error
	switch kind {
	case model.KindMEI:
		var req MEIRequest
		if decodeErr := decodeStrict(r, &req); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		err = h.regSvc.RegisterMEI(r.Context(), req.input())
	case model.KindPF:
		var req PFRequest
		if decodeErr := decodeStrict(r, &req); decodeErr != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON payload")
			return
		}
		err = h.regSvc.RegisterPF(r.Context(), req.input())
	}

	h.writeMutationResult(w, err, http.StatusCreated)
}

// UpdateRecord overwrites the record at the given logical index.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	kind, ok := parseKind(r.PathValue("kind"))
	if !ok {
		writeError(w, http.StatusNotFound, "unknown record kind")
		return
	}

	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid record index")
		return
	}

	var req UpdateRequest
	if decodeErr := decodeStrict(r, &req); decodeErr != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}

	h.writeMutationResult(w, h.regSvc.Update(r.Context(), kind, index, req.Values), http.StatusOK)
}

// writeMutationResult maps service errors from a create/update to HTTP
// responses. Remote write failures surface as 502 so the client knows its
// input was not stored and can resubmit unchanged.
func (h *Handler) writeMutationResult(w http.ResponseWriter, err error, okStatus int) {
	var vErr *application.ValidationError
	var remoteErr *driven.RemoteError

	switch {
	case err == nil:
		writeJSON(w, okStatus, StatusResponse{Status: "ok"})
	case errors.As(err, &vErr):
		writeJSON(w, http.StatusUnprocessableEntity, ValidationErrorResponse{
			Error: "validation failed", Field: vErr.Field, Message: vErr.Message,
		})
	case errors.Is(err, driven.ErrSchemaMismatch):
		writeError(w, http.StatusConflict, "record does not match the sheet's current columns")
	case errors.Is(err, application.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, "record not found")
	case errors.As(err, &remoteErr):
		h.logger.Error("spreadsheet write failed", "op", remoteErr.Op, "sheet", remoteErr.Sheet, "error", err)
		writeError(w, http.StatusBadGateway, "falha ao gravar na planilha, tente novamente")
	default:
		h.logger.Error("record mutation failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func parseKind(raw string) (model.RecordKind, bool) {
	kind := model.RecordKind(raw)
	_, ok := model.SchemaFor(kind)
	return kind, ok
}

func decodeStrict(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func sessionCookie(session model.Session) *http.Cookie {
	return &http.Cookie{
		Name:     SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   false, // set true when served over HTTPS
	}
}
