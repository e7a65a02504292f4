// components/pages/pages.go
//
// Serenity static pages – Home, About, and Services.
//
// Copy lives in the embedded content.yaml and is parsed once in Init, so
// the handlers only pick a template and hand over the parsed struct.
//
//------------------------------------------------------------------------------

package pages

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"

	"github.com/yanizio/serenity/internal/component"
	"github.com/yanizio/serenity/internal/logger"
	"github.com/yanizio/serenity/internal/view"
)

//go:embed content.yaml
var contentYAML []byte

//go:embed templates/*.html
var templatesFS embed.FS

// Card is one tile in a card grid.
type Card struct {
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
	Highlight   string `yaml:"highlight"`
}

// Fact is one label/value pair on the About page.
type Fact struct {
	Label string `yaml:"label"`
	Value string `yaml:"value"`
}

// Content is the parsed content.yaml.
type Content struct {
	Highlights []Card `yaml:"highlights"`
	Facts      []Fact `yaml:"facts"`
	Values     []Card `yaml:"values"`
	Services   []Card `yaml:"services"`
}

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the static pages.
type Component struct {
	views   *view.Renderer
	content Content
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "pages" }

// Init parses the page copy and registers the templates.
func (c *Component) Init(env component.Env) error {
	if env.Views == nil {
		return errors.New("pages: views are required")
	}
	var ct Content
	if err := yaml.Unmarshal(contentYAML, &ct); err != nil {
		return fmt.Errorf("pages: content.yaml: %w", err)
	}
	if len(ct.Services) == 0 {
		return errors.New("pages: content.yaml lists no services")
	}
	tpl, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return err
	}
	if err := env.Views.Register(c.Name(), tpl); err != nil {
		return err
	}
	c.views = env.Views
	c.content = ct
	return nil
}

// Routes declares the page endpoints.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.page("home", "", "Premium wellness retreats and hospitality services in the heart of Latvia."))
	r.Get("/about", c.page("about", "About", "About Serenity Wellness and Hospitality, SIA in Jēkabpils, Latvia."))
	r.Get("/services", c.page("services", "Services", "Spa, yoga, thermal, dining, and personalized wellness programs."))
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) page(name, title, description string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := view.NewPage(r, title, c.content)
		p.Head.Description(description)
		if name == "home" {
			p.Head.JSONLD(organization)
		}
		if err := c.views.Render(w, http.StatusOK, c.Name(), name, p); err != nil {
			logger.FromContext(r.Context()).Errorw("render page", "page", name, "err", err)
		}
	}
}

// organization is the schema.org record for the home page.
var organization = map[string]any{
	"@context":  "https://schema.org",
	"@type":     "HealthAndBeautyBusiness",
	"name":      "Serenity Wellness and Hospitality, SIA",
	"email":     "info@serenity.lv",
	"telephone": []string{"+371 255 695 75", "+371 265 638 12"},
	"address": map[string]string{
		"@type":           "PostalAddress",
		"streetAddress":   "Bebru iela 22 - 40",
		"addressLocality": "Jēkabpils",
		"postalCode":      "LV-5201",
		"addressCountry":  "LV",
	},
}
