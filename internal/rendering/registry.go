package rendering

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/jonathan/resume-builder/internal/db"
)

//go:embed templates/*.html
var templateFS embed.FS

const sectionsFile = "templates/sections.html"

// Registry maps every known template name to its parsed layout. Lookups by
// any other name fail; names are never used to build a path.
type Registry struct {
	layouts   map[db.TemplateName]*template.Template
	mediaBase string
}

// Option configures a Registry
type Option func(*Registry)

// WithMediaBase sets the URL prefix used for stored files such as profile
// pictures. Defaults to "/media/".
func WithMediaBase(base string) Option {
	return func(r *Registry) {
		if base != "" && !strings.HasSuffix(base, "/") {
			base += "/"
		}
		r.mediaBase = base
	}
}

// NewRegistry parses every embedded layout together with the shared sections
func NewRegistry(opts ...Option) (*Registry, error) {
	r := &Registry{
		layouts:   make(map[db.TemplateName]*template.Template, len(db.Templates)),
		mediaBase: "/media/",
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, name := range db.Templates {
		file := "templates/" + string(name) + ".html"
		tmpl, err := template.New(string(name)+".html").
			Funcs(funcMap()).
			ParseFS(templateFS, sectionsFile, file)
		if err != nil {
			return nil, &TemplateError{
				Message: fmt.Sprintf("failed to parse template %s", name),
				Cause:   err,
			}
		}
		r.layouts[name] = tmpl
	}
	return r, nil
}

// MustNewRegistry is like NewRegistry but panics on error. The layouts are
// embedded, so a failure is a build defect.
func MustNewRegistry(opts ...Option) *Registry {
	r, err := NewRegistry(opts...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns the layout for name, or a RenderError wrapping
// ErrTemplateNotFound
func (r *Registry) Lookup(name db.TemplateName) (*template.Template, error) {
	tmpl, ok := r.layouts[name]
	if !ok {
		return nil, &RenderError{
			Message: fmt.Sprintf("unknown template %q", string(name)),
			Cause:   ErrTemplateNotFound,
		}
	}
	return tmpl, nil
}

// Names lists the registered templates in display order
func (r *Registry) Names() []db.TemplateName {
	names := make([]db.TemplateName, 0, len(r.layouts))
	for _, name := range db.Templates {
		if _, ok := r.layouts[name]; ok {
			names = append(names, name)
		}
	}
	return names
}
