// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page’s
// <head> element.  It is scoped to a single request.  Handlers push tags
// into the builder, then the base layout decides where to emit each slice.
//
// Features
// --------
//   - SetTitle              – single <title> tag (last call wins), suffixed
//     with the site name.
//   - Meta, Link, Refresh   – typed tags, escaped here, deduplicated.
//   - JSONLD                – marshals a value and wraps it in
//     <script type="application/ld+json">…</script>.
//   - Render helpers        – concat methods that return template.HTML.
package head

import (
	"encoding/json"
	"fmt"
	"html/template"
	"strings"
	"sync"
)

// SiteName is appended to every page title.
const SiteName = "Serenity Wellness"

// Builder is safe for concurrent writes, though typical use is one
// goroutine per request.
type Builder struct {
	mu sync.Mutex

	title string

	metas  []string
	links  []string
	jsonLD []string

	seen map[string]struct{}
}

func New() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// ------------------------------------------------------------------
// Single-value helper
// ------------------------------------------------------------------

// SetTitle overrides the page title.  The last caller wins.
func (b *Builder) SetTitle(t string) {
	b.mu.Lock()
	b.title = t
	b.mu.Unlock()
}

// Title returns a fully formed <title> tag.  An unset title yields the
// bare site name.
func (b *Builder) Title() template.HTML {
	b.mu.Lock()
	t := b.title
	b.mu.Unlock()
	if t == "" || t == SiteName {
		t = SiteName
	} else {
		t += " | " + SiteName
	}
	return template.HTML("<title>" + template.HTMLEscapeString(t) + "</title>")
}

// ------------------------------------------------------------------
// Tag helpers with deduplication
// ------------------------------------------------------------------

// Meta adds <meta name="name" content="content">.
func (b *Builder) Meta(name, content string) {
	tag := fmt.Sprintf(`<meta name="%s" content="%s">`,
		template.HTMLEscapeString(name), template.HTMLEscapeString(content))
	b.add("meta:"+name, &b.metas, tag)
}

// Description is shorthand for Meta("description", s).
func (b *Builder) Description(s string) { b.Meta("description", s) }

// Refresh asks the browser to load url after secs seconds.  The busy view
// uses it to poll until the submission settles.
func (b *Builder) Refresh(secs int, url string) {
	tag := fmt.Sprintf(`<meta http-equiv="refresh" content="%d;url=%s">`,
		secs, template.HTMLEscapeString(url))
	b.add("meta:refresh", &b.metas, tag)
}

// Link adds <link rel="rel" href="href">.
func (b *Builder) Link(rel, href string) {
	tag := fmt.Sprintf(`<link rel="%s" href="%s">`,
		template.HTMLEscapeString(rel), template.HTMLEscapeString(href))
	b.add("link:"+rel+":"+href, &b.links, tag)
}

// JSONLD marshals v as a structured-data block.  Values that fail to
// marshal are dropped.
func (b *Builder) JSONLD(v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	// json.Marshal escapes <, >, and & so the block cannot close its
	// <script> early.
	js := string(raw)
	b.add("jsonld:"+js, &b.jsonLD, js)
}

func (b *Builder) add(key string, tgt *[]string, tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	*tgt = append(*tgt, tag)
}

// ------------------------------------------------------------------
// Rendering helpers called from the layout
// ------------------------------------------------------------------

func (b *Builder) Metas() template.HTML { return b.concat(&b.metas) }
func (b *Builder) Links() template.HTML { return b.concat(&b.links) }

// JSON returns all JSON-LD blocks wrapped in <script> tags.
func (b *Builder) JSON() template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.jsonLD) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, js := range b.jsonLD {
		sb.WriteString(`<script type="application/ld+json">`)
		sb.WriteString(js)
		sb.WriteString(`</script>`)
	}
	return template.HTML(sb.String())
}

// concat joins pre-escaped tags without a separator.
func (b *Builder) concat(sl *[]string) template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	return template.HTML(strings.Join(*sl, ""))
}
