package web

import "embed"

// TemplatesFS holds the embedded HTML templates.
//
//go:embed templates/*.html
var TemplatesFS embed.FS

// StaticFS holds the embedded static assets.
//
//go:embed static/*
var StaticFS embed.FS
