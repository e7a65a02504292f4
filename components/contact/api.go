// components/contact/api.go
//
// JSON endpoints for script-driven clients.
//
//   GET   /api/contact                 – snapshot plus a fresh CSRF token.
//   PATCH /api/contact/fields/{field}  – {"value": "..."} edits one field.
//   POST  /api/contact/submit          – optional {"fields": {...}}, then submit.
//                                        Only the named fields are edited.
//   POST  /api/contact/reset           – leave the acknowledgment.
//
// State-changing calls need the token from GET in X-CSRF-Token and the
// serenity_form cookie.  Every response carries the current snapshot.
//
//------------------------------------------------------------------------------

package contact

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	cform "github.com/yanizio/serenity/internal/contact"
	"github.com/yanizio/serenity/internal/form"
	"github.com/yanizio/serenity/internal/logger"
	"github.com/yanizio/serenity/internal/metrics"
	"github.com/yanizio/serenity/internal/requestinfo"
	"github.com/yanizio/serenity/internal/session"
)

// CSRFHeader carries the token on API calls.
const CSRFHeader = "X-CSRF-Token"

type apiState struct {
	cform.Snapshot
	CSRFToken string `json:"csrfToken,omitempty"`
}

type apiError struct {
	Error string          `json:"error"`
	State *cform.Snapshot `json:"state,omitempty"`
}

type editRequest struct {
	Value string `json:"value"`
}

type submitRequest struct {
	Fields map[string]string `json:"fields"`
}

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleStateGET(w http.ResponseWriter, r *http.Request) {
	sid := session.Ensure(w, r, c.secure)
	tok, err := form.GenerateToken(sid)
	if err != nil {
		logger.FromContext(r.Context()).Errorw("csrf token", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, apiState{Snapshot: c.sessions.Get(sid).Snapshot(), CSRFToken: tok})
}

func (c *Component) handleFieldPATCH(w http.ResponseWriter, r *http.Request) {
	sid, ok := c.apiSession(w, r, 0)
	if !ok {
		return
	}
	f, err := cform.ParseField(chi.URLParam(r, "field"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, apiError{Error: err.Error()})
		return
	}
	var req editRequest
	if !decode(w, r, &req, false) {
		return
	}

	ctl := c.sessions.Get(sid)
	if err := ctl.Edit(f, form.Clamp(formID, string(f), req.Value)); err != nil {
		c.apiRefusal(w, r, ctl, err)
		return
	}
	writeJSON(w, http.StatusOK, apiState{Snapshot: ctl.Snapshot()})
}

func (c *Component) handleSubmitPOST(w http.ResponseWriter, r *http.Request) {
	sid, ok := c.apiSession(w, r, c.minFill)
	if !ok {
		return
	}
	var req submitRequest
	if !decode(w, r, &req, true) {
		return
	}

	ctl := c.sessions.Get(sid)
	for k := range req.Fields {
		if _, err := cform.ParseField(k); err != nil {
			c.apiRefusal(w, r, ctl, err)
			return
		}
	}
	for _, f := range cform.AllFields {
		v, ok := req.Fields[string(f)]
		if !ok {
			continue
		}
		if err := ctl.Edit(f, form.Clamp(formID, string(f), v)); err != nil {
			c.apiRefusal(w, r, ctl, err)
			return
		}
	}
	if err := ctl.Submit(r.Context(), requestinfo.FromContext(r.Context()).Meta()); err != nil {
		c.apiRefusal(w, r, ctl, err)
		return
	}

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	writeJSON(w, http.StatusAccepted, apiState{Snapshot: ctl.Snapshot()})
}

func (c *Component) handleAPIResetPOST(w http.ResponseWriter, r *http.Request) {
	sid, ok := c.apiSession(w, r, 0)
	if !ok {
		return
	}
	ctl := c.sessions.Get(sid)
	if err := ctl.Reset(); err != nil {
		c.apiRefusal(w, r, ctl, err)
		return
	}
	writeJSON(w, http.StatusOK, apiState{Snapshot: ctl.Snapshot()})
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

// apiSession returns the caller's session ID after checking the header
// token.  minFill > 0 also applies the fill-time check.
func (c *Component) apiSession(w http.ResponseWriter, r *http.Request, minFill time.Duration) (string, bool) {
	sid, ok := session.ID(r)
	if !ok {
		writeJSON(w, http.StatusForbidden, apiError{Error: "missing form session; GET /api/contact first"})
		return "", false
	}
	if err := form.CheckToken(r.Header.Get(CSRFHeader), sid, minFill); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		msg := err.Error()
		var fe *form.FormError
		if errors.As(err, &fe) {
			msg = fe.Message
		}
		writeJSON(w, http.StatusForbidden, apiError{Error: msg})
		return "", false
	}
	return sid, true
}

// apiRefusal maps a controller error onto a status code.
func (c *Component) apiRefusal(w http.ResponseWriter, r *http.Request, ctl *cform.Controller, err error) {
	snap := ctl.Snapshot()
	status := http.StatusInternalServerError
	switch {
	case cform.IsValidationError(err):
		recordValidation(err)
		status = http.StatusUnprocessableEntity
	case errors.Is(err, cform.ErrUnknownField):
		status = http.StatusNotFound
	case errors.Is(err, cform.ErrClosed):
		status = http.StatusServiceUnavailable
	case errors.Is(err, cform.ErrBusy):
		metrics.SubmissionsTotal.WithLabelValues("busy").Inc()
		status = http.StatusConflict
	case errors.Is(err, cform.ErrNotEditable),
		errors.Is(err, cform.ErrNotIdle),
		errors.Is(err, cform.ErrNotSubmitted):
		status = http.StatusConflict
	default:
		logger.FromContext(r.Context()).Errorw("contact api failed", "err", err)
	}
	writeJSON(w, status, apiError{Error: err.Error(), State: &snap})
}

// decode reads a JSON body into v.  optional allows an empty body.
func decode(w http.ResponseWriter, r *http.Request, v any, optional bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody))
	dec.DisallowUnknownFields()
	err := dec.Decode(v)
	if err == nil || (optional && errors.Is(err, io.EOF)) {
		return true
	}
	var tooBig *http.MaxBytesError
	if errors.As(err, &tooBig) {
		writeJSON(w, http.StatusRequestEntityTooLarge, apiError{Error: "request body too large"})
		return false
	}
	writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
