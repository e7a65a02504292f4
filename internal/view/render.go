// internal/view/render.go
//
// Central view engine: the embedded base layout, per-component template
// sets, and the func-map every page can use.
//
// Public helpers
// --------------
//   - Register       – parse a component's embedded templates once at boot.
//   - Render         – write rendered HTML to an http.ResponseWriter.
//   - RenderToString – return template.HTML (tests, fragments).
//   - Static         – serve the embedded stylesheet under /static/.
//
// Template layout
// ---------------
// templates/layout.html defines "base", which calls {{ template "content" . }}.
// Each component ships one file per page under its own templates/ directory,
// and each file defines "content" (and optionally "head").  Every page file
// is parsed into its own clone of the layout, so the "content" blocks never
// collide.  Files whose names start with "_" are partials and are parsed
// into every page of the same component.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/yanizio/serenity/internal/head"
)

//go:embed templates/*.html
var layoutFS embed.FS

//go:embed static
var staticFS embed.FS

// Page is the data handed to every template.  Data carries the
// component-specific view model.
type Page struct {
	Head *head.Builder
	Path string
	Data any
}

// NewPage returns a Page with a fresh head builder and the default
// stylesheet linked.
func NewPage(r *http.Request, title string, data any) *Page {
	h := head.New()
	h.SetTitle(title)
	h.Link("stylesheet", "/static/site.css")
	p := &Page{Head: h, Data: data}
	if r != nil {
		p.Path = r.URL.Path
	}
	return p
}

// Renderer holds parsed template sets keyed by "<comp>/<name>".  Safe for
// concurrent use once Register calls are done.
type Renderer struct {
	mu   sync.RWMutex
	base *template.Template
	sets map[string]*template.Template
}

// New parses the embedded base layout.
func New() (*Renderer, error) {
	base, err := template.New("base").Funcs(funcMap()).ParseFS(layoutFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}
	return &Renderer{base: base, sets: make(map[string]*template.Template)}, nil
}

// Register parses every *.html in the root of fsys as pages of comp.
func (v *Renderer) Register(comp string, fsys fs.FS) error {
	files, err := fs.Glob(fsys, "*.html")
	if err != nil {
		return err
	}
	var pages, partials []string
	for _, f := range files {
		if strings.HasPrefix(f, "_") {
			partials = append(partials, f)
		} else {
			pages = append(pages, f)
		}
	}
	if len(pages) == 0 {
		return fmt.Errorf("component %s: no templates", comp)
	}

	parsed := make(map[string]*template.Template, len(pages))
	for _, p := range pages {
		t, err := v.base.Clone()
		if err != nil {
			return err
		}
		if _, err := t.ParseFS(fsys, append([]string{p}, partials...)...); err != nil {
			return fmt.Errorf("component %s: %w", comp, err)
		}
		if t.Lookup("content") == nil {
			return fmt.Errorf("component %s: %s does not define \"content\"", comp, p)
		}
		parsed[comp+"/"+strings.TrimSuffix(path.Base(p), ".html")] = t
	}

	v.mu.Lock()
	for k, t := range parsed {
		v.sets[k] = t
	}
	v.mu.Unlock()
	zap.S().Debugw("templates registered", "component", comp, "pages", len(parsed))
	return nil
}

// Render executes comp/name into a buffer, then writes it with status.  A
// template error produces a plain 500 instead of half a page.
func (v *Renderer) Render(w http.ResponseWriter, status int, comp, name string, p *Page) error {
	var buf bytes.Buffer
	if err := v.execute(&buf, comp, name, p); err != nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

// RenderToString executes comp/name and returns the HTML.
func (v *Renderer) RenderToString(comp, name string, p *Page) (template.HTML, error) {
	var buf bytes.Buffer
	if err := v.execute(&buf, comp, name, p); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func (v *Renderer) execute(buf *bytes.Buffer, comp, name string, p *Page) error {
	v.mu.RLock()
	t, ok := v.sets[comp+"/"+name]
	v.mu.RUnlock()
	if !ok {
		return fmt.Errorf("template %s/%s: %w", comp, name, fs.ErrNotExist)
	}
	if p == nil {
		p = NewPage(nil, "", nil)
	}
	if p.Head == nil {
		p.Head = head.New()
	}
	return t.ExecuteTemplate(buf, "base", p)
}

// Static serves the embedded assets.  Mount it at /static/.
func Static() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err) // embed layout is fixed at build time
	}
	return http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
}

//
// func-map
//

func funcMap() template.FuncMap {
	return template.FuncMap{
		"dict":     dict,
		"active":   active,
		"navLinks": func() []NavLink { return nav },
	}
}

// NavLink is one entry of the header navigation.
type NavLink struct {
	Label string
	Href  string
}

var nav = []NavLink{
	{"Home", "/"},
	{"About", "/about"},
	{"Services", "/services"},
	{"Contact", "/contact"},
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}

// active reports whether the nav entry href matches the current path.
func active(current, href string) bool {
	if href == "/" {
		return current == "/"
	}
	return current == href || strings.HasPrefix(current, href+"/")
}
