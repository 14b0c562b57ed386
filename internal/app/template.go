package app

import (
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gin-gonic/gin/render"

	"github.com/simp-lee/gamelib/internal/domain"
)

// TemplateRenderer is a Gin HTML renderer with layout and partial inheritance.
//
// Every page under templates/ (outside layouts/ and partials/) is parsed on
// top of a clone of the shared layouts and partials. A page invokes the layout
// with {{ template "base" . }} and fills its blocks ("title", "content").
//
// In debug mode the templates are re-parsed on every render so edits show up
// without a restart; otherwise they are parsed once.
type TemplateRenderer struct {
	templates map[string]*template.Template // page name -> compiled set, release only
	fs        fs.FS
	funcMap   template.FuncMap
	debug     bool
}

var _ render.HTMLRender = (*TemplateRenderer)(nil)

// NewTemplateRenderer creates a TemplateRenderer reading templates/ from fsys.
// Outside debug mode a parse error is returned immediately.
func NewTemplateRenderer(fsys fs.FS, debug bool) (*TemplateRenderer, error) {
	r := &TemplateRenderer{
		fs:      fsys,
		funcMap: templateFuncMap(),
		debug:   debug,
	}

	if !debug {
		templates, err := r.parseAllTemplates()
		if err != nil {
			return nil, fmt.Errorf("parse templates: %w", err)
		}
		r.templates = templates
	}

	return r, nil
}

// Instance returns a render.Render executing the page name, given relative to
// templates/ (for example "search/index.html").
func (r *TemplateRenderer) Instance(name string, data any) render.Render {
	templates := r.templates
	if r.debug {
		var err error
		templates, err = r.parseAllTemplates()
		if err != nil {
			return &HTMLInstance{Name: name, err: err}
		}
	}

	return &HTMLInstance{
		Template: templates[name],
		Name:     name,
		Data:     data,
	}
}

func (r *TemplateRenderer) parseAllTemplates() (map[string]*template.Template, error) {
	layoutFiles, err := fs.Glob(r.fs, "templates/layouts/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob layouts: %w", err)
	}
	partialFiles, err := fs.Glob(r.fs, "templates/partials/*.html")
	if err != nil {
		return nil, fmt.Errorf("glob partials: %w", err)
	}

	base := template.New("").Funcs(r.funcMap)
	for _, f := range append(layoutFiles, partialFiles...) {
		if err := r.parseInto(base, f, f); err != nil {
			return nil, err
		}
	}

	pageFiles, err := r.discoverPageTemplates()
	if err != nil {
		return nil, fmt.Errorf("discover pages: %w", err)
	}

	templates := make(map[string]*template.Template, len(pageFiles))
	for _, pf := range pageFiles {
		clone, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone base for %s: %w", pf, err)
		}
		name := strings.TrimPrefix(pf, "templates/")
		if err := r.parseInto(clone, name, pf); err != nil {
			return nil, err
		}
		templates[name] = clone
	}

	return templates, nil
}

func (r *TemplateRenderer) parseInto(set *template.Template, name, path string) error {
	content, err := fs.ReadFile(r.fs, path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if _, err := set.New(name).Parse(string(content)); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// discoverPageTemplates lists every .html file under templates/ except the
// layouts and partials.
func (r *TemplateRenderer) discoverPageTemplates() ([]string, error) {
	var pages []string
	err := fs.WalkDir(r.fs, "templates", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".html") {
			return nil
		}
		rel := strings.TrimPrefix(path, "templates/")
		if strings.HasPrefix(rel, "layouts/") || strings.HasPrefix(rel, "partials/") {
			return nil
		}
		pages = append(pages, path)
		return nil
	})
	return pages, err
}

func templateFuncMap() template.FuncMap {
	statusNames := make(map[string]string)
	for _, s := range domain.StatusOptions() {
		statusNames[s.Slug] = s.Name
	}

	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			return t.Format("2006-01-02 15:04")
		},

		// timeAgo renders t relative to now, e.g. "3 days ago".
		"timeAgo": humanize.Time,

		// count groups thousands: 12345 -> "12,345".
		"count": func(n any) string {
			switch v := n.(type) {
			case int:
				return humanize.Comma(int64(v))
			case int64:
				return humanize.Comma(v)
			default:
				return fmt.Sprint(n)
			}
		},

		// statusName maps a status slug to its label; unknown slugs pass through.
		"statusName": func(slug string) string {
			if name, ok := statusNames[slug]; ok {
				return name
			}
			return slug
		},

		"platformNames": func(platforms []domain.Platform) string {
			names := make([]string, len(platforms))
			for i, p := range platforms {
				names[i] = p.Name
			}
			return strings.Join(names, ", ")
		},

		"add": func(a, b int) int {
			return a + b
		},

		"sub": func(a, b int) int {
			return a - b
		},
	}
}

// HTMLInstance implements gin's render.Render for one template execution.
type HTMLInstance struct {
	Template *template.Template
	Name     string
	Data     any
	err      error // parse failure in debug mode
}

const htmlContentType = "text/html; charset=utf-8"

// Render writes the template output to w.
func (h *HTMLInstance) Render(w http.ResponseWriter) error {
	h.WriteContentType(w)
	if h.err != nil {
		return h.err
	}
	if h.Template == nil {
		return fmt.Errorf("template %q not found", h.Name)
	}
	return h.Template.ExecuteTemplate(w, h.Name, h.Data)
}

// WriteContentType sets an HTML Content-Type unless one is already present.
func (h *HTMLInstance) WriteContentType(w http.ResponseWriter) {
	header := w.Header()
	if val := header["Content-Type"]; len(val) == 0 {
		header["Content-Type"] = []string{htmlContentType}
	}
}
