// Package web implements the HTML GUI driving adapter using html/template.
package web

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	httphandler "github.com/brmorais/cadastrohub/internal/adapter/driving/http"
	"github.com/brmorais/cadastrohub/internal/application"
	"github.com/brmorais/cadastrohub/internal/domain/model"
	"github.com/brmorais/cadastrohub/internal/domain/port/driven"
)

// Handler is the web GUI driving adapter that serves server-rendered HTML.
type Handler struct {
	gate      *application.SessionGate
	regSvc    *application.RegistrationService
	logger    *slog.Logger
	login     *template.Template
	dashboard *template.Template
	edit      *template.Template
}

// NewHandler creates a Handler with all required dependencies. Templates are
// parsed from the embedded filesystem; a malformed template is a programming
// error and panics at startup.
func NewHandler(gate *application.SessionGate, regSvc *application.RegistrationService, logger *slog.Logger) *Handler {
	return &Handler{
		gate:      gate,
		regSvc:    regSvc,
		logger:    logger,
		login:     parsePage("login.html"),
		dashboard: parsePage("dashboard.html"),
		edit:      parsePage("edit.html"),
	}
}

func parsePage(page string) *template.Template {
	return template.Must(template.ParseFS(TemplatesFS, "templates/layout.html", "templates/"+page))
}

// LoginPage renders the login form.
func (h *Handler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.render(w, h.login, LoginView{CSRFToken: csrfToken(w, r)})
}

// Login handles the login form submission. The failure message is identical
// for unknown usernames and wrong passwords.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	session, err := h.gate.Login(r.Context(), r.FormValue("username"), r.FormValue("password"))
	if errors.Is(err, application.ErrInvalidCredentials) {
		w.WriteHeader(http.StatusUnauthorized)
		h.render(w, h.login, LoginView{CSRFToken: csrfToken(w, r), Error: "credenciais inválidas"})
		return
	}
	if err != nil {
		h.logger.Error("login failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     httphandler.SessionCookie,
		Value:    session.ID,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
		Secure:   false, // set true when served over HTTPS
	})
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Dashboard renders the tabbed main page: the two registration forms plus the
// consultation and edit views of the spreadsheet.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	view := h.dashboardView(w, r)
	view.ActiveTab = activeTab(r.URL.Query().Get("tab"))
	if r.URL.Query().Get("saved") == "1" {
		switch view.ActiveTab {
		case "cadastro-mei":
			view.MEIForm.Saved = true
		case "cadastro-pf":
			view.PFForm.Saved = true
		}
	}
	h.render(w, h.dashboard, view)
}

// CreateMEI handles the micro-enterprise registration form. On validation
// failure the form is re-rendered with the submitted values intact.
func (h *Handler) CreateMEI(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	input := application.MEIInput{
		CompanyName:     r.FormValue("company_name"),
		ResponsibleName: r.FormValue("responsible_name"),
		Phone:           r.FormValue("phone"),
		Email:           r.FormValue("email"),
		PortalPassword:  r.FormValue("portal_password"),
		State:           r.FormValue("state"),
		CNPJ:            r.FormValue("cnpj"),
		CPF:             r.FormValue("cpf"),
		Status:          r.FormValue("status"),
	}

	if err := h.regSvc.RegisterMEI(r.Context(), input); err != nil {
		view := h.dashboardView(w, r)
		view.ActiveTab = "cadastro-mei"
		view.MEIForm = failedForm(formValues(r), err)
		h.render(w, h.dashboard, view)
		return
	}

	http.Redirect(w, r, "/?tab=cadastro-mei&saved=1", http.StatusSeeOther)
}

// CreatePF handles the individual-person registration form.
func (h *Handler) CreatePF(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	input := application.PFInput{
		FullName:       r.FormValue("full_name"),
		Phone:          r.FormValue("phone"),
		Email:          r.FormValue("email"),
		CPF:            r.FormValue("cpf"),
		State:          r.FormValue("state"),
		RG:             r.FormValue("rg"),
		PortalPassword: r.FormValue("portal_password"),
		Address:        r.FormValue("address"),
		City:           r.FormValue("city"),
		PostalCode:     r.FormValue("postal_code"),
		PixKey:         r.FormValue("pix_key"),
		OwnsProperty:   r.FormValue("owns_property"),
		OwnsVehicle:    r.FormValue("owns_vehicle"),
		HasDependents:  r.FormValue("has_dependents"),
	}

	if err := h.regSvc.RegisterPF(r.Context(), input); err != nil {
		view := h.dashboardView(w, r)
		view.ActiveTab = "cadastro-pf"
		view.PFForm = failedForm(formValues(r), err)
		h.render(w, h.dashboard, view)
		return
	}

	http.Redirect(w, r, "/?tab=cadastro-pf&saved=1", http.StatusSeeOther)
}

// EditRecord renders the edit form for one record, one input per column.
func (h *Handler) EditRecord(w http.ResponseWriter, r *http.Request) {
	kind, index, ok := recordRef(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	schema, _ := model.SchemaFor(kind)
	table, degraded, err := h.regSvc.List(r.Context(), kind)
	if err != nil {
		h.logger.Error("edit record fetch failed", "kind", kind, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	if degraded || index < 0 || index >= len(table.Records) {
		http.NotFound(w, r)
		return
	}

	h.render(w, h.edit, EditView{
		CSRFToken: csrfToken(w, r),
		Kind:      string(schema.Kind),
		Index:     index,
		Headers:   table.Headers,
		Values:    []string(table.Records[index]),
	})
}

// UpdateRecord handles the edit form submission.
func (h *Handler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	if !validateCSRF(r) {
		http.Error(w, "invalid CSRF token", http.StatusForbidden)
		return
	}

	kind, index, ok := recordRef(r)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	values := r.PostForm["values"]

	err := h.regSvc.Update(r.Context(), kind, index, model.Record(values))
	if err != nil {
		status, message := updateFailure(err)
		if status == http.StatusInternalServerError {
			h.logger.Error("record update failed", "kind", kind, "index", index, "error", err)
		}
		w.WriteHeader(status)
		h.render(w, h.edit, EditView{
			CSRFToken: csrfToken(w, r),
			Kind:      string(kind),
			Index:     index,
			Headers:   headersFor(kind, len(values)),
			Values:    values,
			Error:     message,
		})
		return
	}

	http.Redirect(w, r, "/?tab=editar", http.StatusSeeOther)
}

// RequireSession redirects browser requests without a live session to the
// login page.
func (h *Handler) RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := h.gate.Authenticate(r.Context(), sessionID(r))
		if errors.Is(err, driven.ErrSessionNotFound) {
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		if err != nil {
			h.logger.Error("session lookup failed", "error", err)
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *Handler) dashboardView(w http.ResponseWriter, r *http.Request) DashboardView {
	meiTable, meiDegraded, err := h.regSvc.List(r.Context(), model.KindMEI)
	if err != nil {
		h.logger.Error("dashboard mei fetch failed", "error", err)
	}
	pfTable, pfDegraded, err := h.regSvc.List(r.Context(), model.KindPF)
	if err != nil {
		h.logger.Error("dashboard pf fetch failed", "error", err)
	}

	session, _ := h.gate.Authenticate(r.Context(), sessionID(r))

	return DashboardView{
		CSRFToken: csrfToken(w, r),
		Username:  session.Username,
		MEITable:  newTableView(string(model.KindMEI), meiTable, meiDegraded),
		PFTable:   newTableView(string(model.KindPF), pfTable, pfDegraded),
		States:    model.UFCodes,
		Statuses:  model.MEIStatuses,
	}
}

func (h *Handler) render(w http.ResponseWriter, tmpl *template.Template, view any) {
	if err := tmpl.ExecuteTemplate(w, "layout.html", view); err != nil {
		h.logger.Error("template render failed", "template", tmpl.Name(), "error", err)
	}
}

func activeTab(tab string) string {
	switch tab {
	case "cadastro-pf", "consulta", "editar":
		return tab
	default:
		return "cadastro-mei"
	}
}

func recordRef(r *http.Request) (model.RecordKind, int, bool) {
	kind := model.RecordKind(r.PathValue("kind"))
	if _, ok := model.SchemaFor(kind); !ok {
		return "", 0, false
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		return "", 0, false
	}
	return kind, index, true
}

func formValues(r *http.Request) map[string]string {
	_ = r.ParseForm()
	values := make(map[string]string, len(r.PostForm))
	for key := range r.PostForm {
		values[key] = r.PostForm.Get(key)
	}
	return values
}

func failedForm(values map[string]string, err error) FormView {
	form := FormView{Values: values}
	var vErr *application.ValidationError
	var remoteErr *driven.RemoteError
	switch {
	case errors.As(err, &vErr):
		form.Field = vErr.Field
		form.Error = fmt.Sprintf("%s: %s", vErr.Field, vErr.Message)
	case errors.As(err, &remoteErr):
		form.Error = "falha ao gravar na planilha, tente novamente"
	default:
		form.Error = "erro interno, tente novamente"
	}
	return form
}

func updateFailure(err error) (int, string) {
	var remoteErr *driven.RemoteError
	switch {
	case errors.Is(err, driven.ErrSchemaMismatch):
		return http.StatusConflict, "o registro não corresponde às colunas atuais da planilha"
	case errors.Is(err, application.ErrRecordNotFound):
		return http.StatusNotFound, "registro não encontrado"
	case errors.As(err, &remoteErr):
		return http.StatusBadGateway, "falha ao gravar na planilha, tente novamente"
	default:
		return http.StatusInternalServerError, "erro interno, tente novamente"
	}
}

func headersFor(kind model.RecordKind, count int) []string {
	schema, ok := model.SchemaFor(kind)
	if ok && len(schema.Fields) == count {
		return schema.Fields
	}
	headers := make([]string, count)
	for i := range headers {
		headers[i] = fmt.Sprintf("Coluna %d", i+1)
	}
	return headers
}

func sessionID(r *http.Request) string {
	if cookie, err := r.Cookie(httphandler.SessionCookie); err == nil {
		return cookie.Value
	}
	return ""
}
