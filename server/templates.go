package server

import (
	"embed"
	"fmt"
	"html/template"
)

//go:embed templates/*.html
var templateFiles embed.FS

// pageTemplates holds every page the server renders, keyed by file name.
var pageTemplates = template.Must(template.ParseFS(templateFiles, "templates/*.html"))

// ParseTemplate returns a private copy of the named page template.
func ParseTemplate(name string) (*template.Template, error) {
	page := pageTemplates.Lookup(name)
	if page == nil {
		return nil, fmt.Errorf("[ParseTemplate] unknown template %q", name)
	}
	return page.Clone()
}
