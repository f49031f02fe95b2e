package web

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"

	"github.com/newthinker/signalboard/internal/render"
)

//go:embed templates/*
var templateFS embed.FS

var pages = []string{"index.html", "dashboard.html"}

// RegionReader exposes the rendered regions.
type RegionReader interface {
	Region(regionID string) (render.Region, bool)
	Regions() []string
}

// Handler provides web UI handlers with template rendering
type Handler struct {
	// pageTemplates holds layout.html + one page template per entry
	pageTemplates map[string]*template.Template
	regions       RegionReader
}

// NewHandler creates a web handler with templates loaded from the given
// directory. An empty templatesDir uses the embedded templates.
func NewHandler(templatesDir string, regions RegionReader) (*Handler, error) {
	if templatesDir != "" {
		pageTemplates := make(map[string]*template.Template)
		for _, page := range pages {
			tmpl, err := template.ParseFiles(
				filepath.Join(templatesDir, "layout.html"),
				filepath.Join(templatesDir, page))
			if err != nil {
				return nil, fmt.Errorf("parsing template %s: %w", page, err)
			}
			pageTemplates[page] = tmpl
		}
		return &Handler{pageTemplates: pageTemplates, regions: regions}, nil
	}
	return NewHandlerWithFS(TemplateFS(), regions)
}

// NewHandlerWithFS creates a web handler using a custom filesystem.
func NewHandlerWithFS(fsys fs.FS, regions RegionReader) (*Handler, error) {
	pageTemplates := make(map[string]*template.Template)
	for _, page := range pages {
		tmpl, err := template.ParseFS(fsys, "layout.html", page)
		if err != nil {
			return nil, fmt.Errorf("parsing template %s from fs: %w", page, err)
		}
		pageTemplates[page] = tmpl
	}
	return &Handler{pageTemplates: pageTemplates, regions: regions}, nil
}

// render executes the specified page template with the given data
func (h *Handler) render(w http.ResponseWriter, status int, page string, data any) {
	tmpl, ok := h.pageTemplates[page]
	if !ok {
		http.Error(w, "template not found: "+page, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := tmpl.ExecuteTemplate(w, "layout.html", data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// TemplateFS returns the embedded template filesystem for external use.
func TemplateFS() fs.FS {
	subFS, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return templateFS
	}
	return subFS
}
