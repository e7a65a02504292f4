// components/contact/contact.go
//
// Serenity contact component – the /contact page and its JSON API.
//
// Context
//   Each visitor owns one contact.Controller, found through the
//   serenity_form cookie in the session store.  Handlers translate HTTP
//   into Edit, Submit, and Reset calls and render whatever the controller
//   snapshot says: the form, the busy view, or the acknowledgment.
//
//   The HTML flow is plain POST-redirect-GET.  While a delivery is
//   outstanding the busy view refreshes itself every few seconds, so the
//   page works without JavaScript.  Script-driven clients use the
//   /api/contact endpoints and send the token in X-CSRF-Token.
//
//------------------------------------------------------------------------------

package contact

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/serenity/internal/component"
	"github.com/yanizio/serenity/internal/form"
	"github.com/yanizio/serenity/internal/middleware"
	"github.com/yanizio/serenity/internal/session"
	"github.com/yanizio/serenity/internal/view"
)

const (
	formID = "contact/contact"

	// maxBody bounds every request body this component reads.
	maxBody = 64 << 10

	// pollSeconds is the busy view's refresh interval.
	pollSeconds = 2
)

//go:embed forms/*.yaml
var formsFS embed.FS

//go:embed templates/*.html
var templatesFS embed.FS

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves the contact page.
type Component struct {
	sessions *session.Store
	views    *view.Renderer
	limiter  *middleware.Limiter
	secure   bool
	minFill  time.Duration
}

/*────────────────── component.Component methods ───────────────────────────*/

// Name returns the canonical component key.
func (c *Component) Name() string { return "contact" }

// Init loads the embedded form definition and templates.
func (c *Component) Init(env component.Env) error {
	if env.Config == nil || env.Sessions == nil || env.Views == nil {
		return errors.New("contact: config, sessions, and views are required")
	}
	if err := form.RegisterFS(formsFS, "forms"); err != nil {
		return fmt.Errorf("forms: %w", err)
	}
	tpl, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		return err
	}
	if err := env.Views.Register(c.Name(), tpl); err != nil {
		return err
	}

	cc := env.Config.Contact
	c.sessions = env.Sessions
	c.views = env.Views
	c.secure = cc.SecureCookie
	c.minFill = cc.MinFillTime
	c.limiter = nil
	if cc.RatePerMinute > 0 {
		c.limiter = middleware.NewLimiter(cc.RatePerMinute, cc.RateBurst)
	}
	return nil
}

// Routes declares the page and API endpoints.  Only the two routes that
// start a delivery are rate limited; edits and resets are not.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	var limited chi.Router = r
	if c.limiter != nil {
		limited = r.With(c.limiter.Middleware)
	}

	r.Get("/contact", c.handleContactGET)
	limited.Post("/contact", c.handleContactPOST)
	r.Post("/contact/reset", c.handleResetPOST)

	r.Get("/api/contact", c.handleStateGET)
	r.Patch("/api/contact/fields/{field}", c.handleFieldPATCH)
	limited.Post("/api/contact/submit", c.handleSubmitPOST)
	r.Post("/api/contact/reset", c.handleAPIResetPOST)
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }
