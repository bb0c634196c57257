// Package render produces the human-readable message bodies the bot posts
// (welcome messages, missing alt text notices) from pongo2 template files.
package render

import (
	"fmt"

	"github.com/flosch/pongo2/v6"
)

// TemplateError wraps any failure to load or execute a named template. It is
// fatal to the response action being rendered, not to the dispatch loop.
type TemplateError struct {
	Name    string
	Wrapped error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("rendering template %q: %v", e.Name, e.Wrapped)
}

func (e *TemplateError) Unwrap() error {
	return e.Wrapped
}

type Renderer struct {
	set *pongo2.TemplateSet
}

// NewRenderer loads templates by name from the given directory. Templates are
// cached after first use.
func NewRenderer(dir string) (*Renderer, error) {
	loader, err := pongo2.NewLocalFileSystemLoader(dir)
	if err != nil {
		return nil, fmt.Errorf("initializing template loader for %s: %w", dir, err)
	}
	return &Renderer{
		set: pongo2.NewSet("fedibot", loader),
	}, nil
}

// Render executes the named template file with the given data.
func (r *Renderer) Render(name string, data map[string]any) (string, error) {
	tpl, err := r.set.FromCache(name)
	if err != nil {
		return "", &TemplateError{Name: name, Wrapped: err}
	}
	out, err := tpl.Execute(pongo2.Context(data))
	if err != nil {
		return "", &TemplateError{Name: name, Wrapped: err}
	}
	return out, nil
}
