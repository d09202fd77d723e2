// Package web embeds the browser chat page and serves it. The page is a
// single template plus static assets; the backend base URL is rendered into
// the page so the UI can be hosted apart from the API.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
)

//go:embed templates/*.html static/*
var embeddedFS embed.FS

const pageTitle = "AutoGen Chat"

type pageData struct {
	Title   string
	APIBase string
}

// Handler serves the chat page at / and its assets under /static/.
// apiBase is the origin of the chat API; empty means the page's own origin.
func Handler(apiBase string) (http.Handler, error) {
	tmpl, err := template.ParseFS(embeddedFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("web: parse templates: %w", err)
	}

	var page bytes.Buffer
	data := pageData{Title: pageTitle, APIBase: strings.TrimRight(strings.TrimSpace(apiBase), "/")}
	if err := tmpl.ExecuteTemplate(&page, "index.html", data); err != nil {
		return nil, fmt.Errorf("web: render index: %w", err)
	}
	index := page.Bytes()

	staticFS, err := fs.Sub(embeddedFS, "static")
	if err != nil {
		return nil, fmt.Errorf("web: static sub filesystem: %w", err)
	}
	static := http.StripPrefix("/static/", http.FileServer(http.FS(staticFS)))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		if strings.HasPrefix(r.URL.Path, "/static/") {
			static.ServeHTTP(w, r)
			return
		}
		if r.URL.Path != "/" && r.URL.Path != "/index.html" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		if _, err := w.Write(index); err != nil {
			slog.Debug("web: failed to write index", "error", err)
		}
	}), nil
}
