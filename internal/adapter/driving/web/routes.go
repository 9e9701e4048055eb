package web

import (
	"io/fs"
	"net/http"
)

// RegisterRoutes registers all web GUI routes on the provided mux. Pages are
// served at / and record form posts at /records/*; static assets come from
// the embedded filesystem at /static/*.
func RegisterRoutes(mux *http.ServeMux, h *Handler) {
	// Static assets (embedded via go:embed).
	staticFS, _ := fs.Sub(StaticFS, "static")
	mux.Handle("GET /static/", http.StripPrefix("/static/", http.FileServerFS(staticFS)))

	// Login is the only open page.
	mux.HandleFunc("GET /login", h.LoginPage)
	mux.HandleFunc("POST /login", h.Login)

	// Everything else requires a live session.
	mux.Handle("GET /{$}", h.RequireSession(http.HandlerFunc(h.Dashboard)))
	mux.Handle("POST /records/mei", h.RequireSession(http.HandlerFunc(h.CreateMEI)))
	mux.Handle("POST /records/pf", h.RequireSession(http.HandlerFunc(h.CreatePF)))
	mux.Handle("GET /records/{kind}/{index}/edit", h.RequireSession(http.HandlerFunc(h.EditRecord)))
	mux.Handle("POST /records/{kind}/{index}", h.RequireSession(http.HandlerFunc(h.UpdateRecord)))
}
