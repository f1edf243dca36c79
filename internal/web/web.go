// Package web serves the browser capture form.
package web

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"strings"
)

//go:embed static
var content embed.FS

var indexTemplate = template.Must(template.ParseFS(content, "static/index.html"))

// Handler renders the capture form for a vocabulary and serves its assets
// under /static/.
type Handler struct {
	signs  []string
	static http.Handler
}

// NewHandler creates a Handler offering signs in the sign selector.
func NewHandler(signs []string) *Handler {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		panic(err)
	}
	return &Handler{
		signs:  signs,
		static: http.StripPrefix("/static/", http.FileServer(http.FS(sub))),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		if strings.HasPrefix(r.URL.Path, "/static/") {
			h.static.ServeHTTP(w, r)
			return
		}
		http.NotFound(w, r)
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, struct{ Signs []string }{h.signs}); err != nil {
		log.Printf("render capture form: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
