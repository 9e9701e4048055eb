package httphandler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/brmorais/cadastrohub/internal/application"
	"github.com/brmorais/cadastrohub/internal/domain/model"
)

// writeJSON marshals v to JSON and writes it with the given status code. If
// marshaling fails, a 500 error is written instead.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal server error"}`))
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError writes a JSON error response with the given status code and message.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// errorResponse is the standard error response body.
type errorResponse struct {
	Error string `json:"error"`
}

// LoginRequest is the JSON body for the login endpoint.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned on successful login. The session ID also travels
// in the session cookie.
type LoginResponse struct {
	SessionID string `json:"session_id"`
	Username  string `json:"username"`
	ExpiresAt string `json:"expires_at"`
}

// HealthResponse is the JSON representation of the health check endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Time   string `json:"time"`
}

// StatusResponse acknowledges a successful mutation.
type StatusResponse struct {
	Status string `json:"status"`
}

// ValidationErrorResponse reports a field-level input problem.
type ValidationErrorResponse struct {
	Error   string `json:"error"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

// TableResponse is the materialized sheet for one record kind. Degraded is
// true when the remote read failed and the table is an empty placeholder.
type TableResponse struct {
	Headers  []string   `json:"headers"`
	Records  [][]string `json:"records"`
	Degraded bool       `json:"degraded"`
}

// MEIRequest is the JSON body for creating a micro-enterprise registration.
type MEIRequest struct {
	CompanyName     string `json:"company_name"`
	ResponsibleName string `json:"responsible_name"`
	Phone           string `json:"phone"`
	Email           string `json:"email"`
	PortalPassword  string `json:"portal_password"`
	State           string `json:"state"`
	CNPJ            string `json:"cnpj"`
	CPF             string `json:"cpf"`
	Status          string `json:"status"`
}

func (r MEIRequest) input() application.MEIInput {
	return application.MEIInput{
		CompanyName:     r.CompanyName,
		ResponsibleName: r.ResponsibleName,
		Phone:           r.Phone,
		Email:           r.Email,
		PortalPassword:  r.PortalPassword,
		State:           r.State,
		CNPJ:            r.CNPJ,
		CPF:             r.CPF,
		Status:          r.Status,
	}
}

// PFRequest is the JSON body for creating an individual-person registration.
type PFRequest struct {
	FullName       string `json:"full_name"`
	Phone          string `json:"phone"`
	Email          string `json:"email"`
	CPF            string `json:"cpf"`
	State          string `json:"state"`
	RG             string `json:"rg"`
	PortalPassword string `json:"portal_password"`
	Address        string `json:"address"`
	City           string `json:"city"`
	PostalCode     string `json:"postal_code"`
	PixKey         string `json:"pix_key"`
	OwnsProperty   string `json:"owns_property"`
	OwnsVehicle    string `json:"owns_vehicle"`
	HasDependents  string `json:"has_dependents"`
}

func (r PFRequest) input() application.PFInput {
	return application.PFInput{
		FullName:       r.FullName,
		Phone:          r.Phone,
		Email:          r.Email,
		CPF:            r.CPF,
		State:          r.State,
		RG:             r.RG,
		PortalPassword: r.PortalPassword,
		Address:        r.Address,
		City:           r.City,
		PostalCode:     r.PostalCode,
		PixKey:         r.PixKey,
		OwnsProperty:   r.OwnsProperty,
		OwnsVehicle:    r.OwnsVehicle,
		HasDependents:  r.HasDependents,
	}
}

// UpdateRequest is the JSON body for overwriting a record. Values must match
// the sheet's current column count, in header order.
type UpdateRequest struct {
	Values []string `json:"values"`
}

func toLoginResponse(session model.Session) LoginResponse {
	return LoginResponse{
		SessionID: session.ID,
		Username:  session.Username,
		ExpiresAt: session.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func toTableResponse(table model.Table, degraded bool) TableResponse {
	headers := table.Headers
	if headers == nil {
		headers = []string{}
	}

	records := make([][]string, 0, len(table.Records))
	for _, rec := range table.Records {
		records = append(records, []string(rec))
	}

	return TableResponse{Headers: headers, Records: records, Degraded: degraded}
}
