package email

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var ErrTemplateNotFound = errors.New("email template not found")

type Renderer struct {
	templates *template.Template
}

func NewRenderer() (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}
	return &Renderer{templates: tmpl}, nil
}

// Render executes "<name>.html" with data.
func (r *Renderer) Render(name string, data any) (string, error) {
	file := name + ".html"
	if r.templates.Lookup(file) == nil {
		return "", fmt.Errorf("%w: %s", ErrTemplateNotFound, file)
	}
	var body bytes.Buffer
	if err := r.templates.ExecuteTemplate(&body, file, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", file, err)
	}
	return body.String(), nil
}
