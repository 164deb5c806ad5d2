// Package site serves the embedded dispatch console: a single page that
// calls POST /suggestions and renders the ranked technicians.
package site

import (
	"context"
	"net/http"
)

// Register attaches the console routes to mux.
//
//	GET /          -> console page
//	GET /static/*  -> console assets
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic("mux is nil")
	}

	files := http.FileServer(FS())
	mux.Handle("GET /{$}", files)
	mux.Handle("GET /static/", http.StripPrefix("/static", files))
}
