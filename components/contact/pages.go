// components/contact/pages.go
//
// HTML handlers: GET /contact, POST /contact, and POST /contact/reset.
//
//------------------------------------------------------------------------------

package contact

import (
	"errors"
	"html/template"
	"net/http"

	cform "github.com/yanizio/serenity/internal/contact"
	"github.com/yanizio/serenity/internal/form"
	"github.com/yanizio/serenity/internal/logger"
	"github.com/yanizio/serenity/internal/metrics"
	"github.com/yanizio/serenity/internal/requestinfo"
	"github.com/yanizio/serenity/internal/session"
	"github.com/yanizio/serenity/internal/view"
)

// pageData is the view model of templates/contact.html.
type pageData struct {
	Submitted bool
	Form      template.HTML
	CSRFToken string
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleContactGET(w http.ResponseWriter, r *http.Request) {
	sid := session.Ensure(w, r, c.secure)
	c.render(w, r, http.StatusOK, sid, c.sessions.Get(sid).Snapshot(), "")
}

// handleContactPOST applies the posted values and submits.  Accepted
// submissions redirect back to GET /contact, which shows the busy view
// until delivery settles.
func (c *Component) handleContactPOST(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	log := logger.FromContext(r.Context())

	sid := session.Ensure(w, r, c.secure)
	ctl := c.sessions.Get(sid)

	fields, err := form.ParseSubmission(formID, r, sid, c.minFill)
	if err != nil {
		var fe *form.FormError
		var tooBig *http.MaxBytesError
		switch {
		case errors.As(err, &fe):
			metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
			log.Infow("contact form rejected", "reason", fe.Err)
			snap := ctl.Snapshot()
			if snap.State == cform.StateIdle {
				snap.Fields = postedFields(r)
			}
			c.render(w, r, http.StatusForbidden, sid, snap, fe.Message)
		case errors.As(err, &tooBig):
			http.Error(w, http.StatusText(http.StatusRequestEntityTooLarge), http.StatusRequestEntityTooLarge)
		default:
			log.Errorw("contact form parse failed", "err", err)
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		}
		return
	}

	if err := ctl.EditAll(fields); err != nil {
		c.pageError(w, r, sid, ctl, err)
		return
	}
	if err := ctl.Submit(r.Context(), requestinfo.FromContext(r.Context()).Meta()); err != nil {
		c.pageError(w, r, sid, ctl, err)
		return
	}

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}

// handleResetPOST is "Send Another Message".
func (c *Component) handleResetPOST(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBody)
	sid, ok := session.ID(r)
	if !ok {
		http.Redirect(w, r, "/contact", http.StatusSeeOther)
		return
	}
	if err := r.ParseForm(); err != nil || !form.VerifyToken(r.PostForm.Get("csrf_token"), sid) {
		ctl := c.sessions.Get(sid)
		c.render(w, r, http.StatusForbidden, sid, ctl.Snapshot(), "Security token invalid or expired.  Please reload the page and try again.")
		return
	}

	if ctl, ok := c.sessions.Lookup(sid); ok {
		if err := ctl.Reset(); err != nil && !errors.Is(err, cform.ErrNotSubmitted) {
			logger.FromContext(r.Context()).Debugw("contact reset refused", "err", err)
		}
	}
	http.Redirect(w, r, "/contact", http.StatusSeeOther)
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

// pageError maps a controller refusal onto a response.
func (c *Component) pageError(w http.ResponseWriter, r *http.Request, sid string, ctl *cform.Controller, err error) {
	snap := ctl.Snapshot()
	switch {
	case cform.IsValidationError(err):
		recordValidation(err)
		c.render(w, r, http.StatusUnprocessableEntity, sid, snap, "")
	case errors.Is(err, cform.ErrClosed):
		http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
	case snap.State == cform.StateSubmitting:
		metrics.SubmissionsTotal.WithLabelValues("busy").Inc()
		c.render(w, r, http.StatusConflict, sid, snap, "")
	case snap.State == cform.StateSubmitted:
		http.Redirect(w, r, "/contact", http.StatusSeeOther)
	default:
		logger.FromContext(r.Context()).Errorw("contact submit failed", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// render draws the view that matches snap.  notice, when set, replaces the
// controller's own notice.
func (c *Component) render(w http.ResponseWriter, r *http.Request, status int, sid string, snap cform.Snapshot, notice string) {
	log := logger.FromContext(r.Context())

	tok, err := form.GenerateToken(sid)
	if err != nil {
		log.Errorw("csrf token", "err", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	page := view.NewPage(r, "Contact", nil)
	page.Head.Description("Contact Serenity Wellness and Hospitality in Jēkabpils, Latvia.")
	data := pageData{CSRFToken: tok}

	if snap.State == cform.StateSubmitted {
		data.Submitted = true
	} else {
		busy := snap.State == cform.StateSubmitting
		if busy {
			page.Head.Refresh(pollSeconds, "/contact")
		}
		if notice == "" && snap.Notice != nil {
			notice = snap.Notice.Message
		}
		data.Form, err = form.RenderForm(formID, form.RenderOptions{
			Action:    "/contact",
			Prefill:   snap.Fields.Map(),
			Errors:    snap.Errors.Messages(),
			Notice:    notice,
			Busy:      busy,
			CSRFToken: tok,
		})
		if err != nil {
			log.Errorw("render contact form", "err", err)
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	page.Data = data
	if err := c.views.Render(w, status, c.Name(), "contact", page); err != nil {
		log.Errorw("render contact page", "err", err)
	}
}

// postedFields echoes the raw input back after a form-level rejection, so
// the visitor does not lose what they typed.
func postedFields(r *http.Request) cform.Fields {
	vals := make(map[string]string, len(cform.AllFields))
	for _, f := range cform.AllFields {
		vals[string(f)] = form.Clamp(formID, string(f), r.PostForm.Get(string(f)))
	}
	return cform.FieldsFromMap(vals)
}

func recordValidation(err error) {
	metrics.SubmissionsTotal.WithLabelValues("invalid").Inc()
	var ve *cform.ValidationError
	if !errors.As(err, &ve) {
		return
	}
	for f, fe := range ve.Fields {
		metrics.ValidationFailuresTotal.WithLabelValues(string(f), string(fe.Reason)).Inc()
	}
}
