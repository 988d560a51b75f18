// Package web holds the HTML views, embedded into the binary.
package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"helmetweb/internal/dto"
)

//go:embed templates/*.html
var templateFiles embed.FS

const (
	indexTemplate  = "index.html"
	resultTemplate = "result.html"
)

// Views renders the landing and result pages.
type Views struct {
	templates *template.Template
}

// NewViews parses the embedded templates.
func NewViews() (*Views, error) {
	templates, err := template.ParseFS(templateFiles, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("error parsing templates: %w", err)
	}
	return &Views{templates: templates}, nil
}

// MustViews is NewViews for package-level setup; it panics on a broken template.
func MustViews() *Views {
	views, err := NewViews()
	if err != nil {
		panic(err)
	}
	return views
}

// RenderIndex writes the upload form with the model metrics.
func (v *Views) RenderIndex(w io.Writer, page dto.IndexPage) error {
	return v.templates.ExecuteTemplate(w, indexTemplate, page)
}

// RenderResult writes the annotated artifact with its counts and metrics.
func (v *Views) RenderResult(w io.Writer, page dto.ResultPage) error {
	return v.templates.ExecuteTemplate(w, resultTemplate, page)
}
