// components/contact/contact_test.go
//
// End-to-end handler tests.  Each test mounts the component on its own
// session store with a gated transport, so delivery settles exactly when
// the test says so.
//
// Run: go test ./components/contact -v

package contact

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"

	"github.com/yanizio/serenity/internal/component"
	"github.com/yanizio/serenity/internal/config"
	cform "github.com/yanizio/serenity/internal/contact"
	"github.com/yanizio/serenity/internal/session"
	"github.com/yanizio/serenity/internal/view"
)

func TestMain(m *testing.M) { goleak.VerifyTestMain(m) }

type harness struct {
	t      *testing.T
	h      http.Handler
	store  *session.Store
	gate   chan error
	cookie *http.Cookie
}

func newHarness(t *testing.T, minFill time.Duration, opts ...func(*config.Config)) *harness {
	t.Helper()
	gate := make(chan error, 1)
	tr := cform.TransportFunc(func(ctx context.Context, _ cform.Submission) error {
		select {
		case err := <-gate:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	store := session.NewStore(func(string) *cform.Controller {
		return cform.New(tr, cform.WithTimeout(time.Minute))
	}, 16, time.Hour)
	t.Cleanup(store.Close)

	views, err := view.New()
	if err != nil {
		t.Fatalf("view.New: %v", err)
	}
	cfg := &config.Config{}
	cfg.Contact.MinFillTime = minFill
	for _, o := range opts {
		o(cfg)
	}

	c := &Component{}
	if err := c.Init(component.Env{Config: cfg, Sessions: store, Views: views}); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return &harness{t: t, h: c.Routes(), store: store, gate: gate}
}

func (h *harness) do(method, path string, body io.Reader, hdr map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()
	r := httptest.NewRequest(method, path, body)
	for k, v := range hdr {
		r.Header.Set(k, v)
	}
	if h.cookie != nil {
		r.AddCookie(h.cookie)
	}
	rec := httptest.NewRecorder()
	h.h.ServeHTTP(rec, r)
	for _, c := range rec.Result().Cookies() {
		if c.Name == session.CookieName {
			h.cookie = c
		}
	}
	return rec
}

func (h *harness) post(path string, vals url.Values) *httptest.ResponseRecorder {
	return h.do(http.MethodPost, path, strings.NewReader(vals.Encode()),
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"})
}

// settle waits until the visitor's outstanding delivery has finished.
func (h *harness) settle() {
	h.t.Helper()
	ctl, ok := h.store.Lookup(h.cookie.Value)
	if !ok {
		h.t.Fatalf("no session for %s", h.cookie.Value)
	}
	ctl.Wait()
}

var tokenRE = regexp.MustCompile(`name="csrf_token" value="([^"]+)"`)

func token(t *testing.T, body string) string {
	t.Helper()
	m := tokenRE.FindStringSubmatch(body)
	if m == nil {
		t.Fatalf("no csrf token in page:\n%s", body)
	}
	return m[1]
}

func mustContain(t *testing.T, body string, wants ...string) {
	t.Helper()
	for _, w := range wants {
		if !strings.Contains(body, w) {
			t.Errorf("body missing %q", w)
		}
	}
}

func validForm(tok string) url.Values {
	return url.Values{
		"csrf_token": {tok},
		"name":       {"Jane Bērziņa"},
		"email":      {"jane@example.lv"},
		"phone":      {"+371 255 695 75"},
		"message":    {"We would like a weekend retreat in May."},
	}
}

func TestContactPage_FullCycle(t *testing.T) {
	h := newHarness(t, 0)

	rec := h.do(http.MethodGet, "/contact", nil, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d", rec.Code)
	}
	if h.cookie == nil {
		t.Fatalf("form session cookie not set")
	}
	body := rec.Body.String()
	mustContain(t, body, "Get in", "Send Message", "Your full name", "Reach Out")
	tok := token(t, body)

	// Invalid: name missing, short message.  Input is kept.
	bad := validForm(tok)
	bad.Set("name", "")
	bad.Set("message", "hi")
	rec = h.post("/contact", bad)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid POST status = %d", rec.Code)
	}
	mustContain(t, rec.Body.String(),
		"Full name is required",
		"Message should be at least 10 characters",
		`value="jane@example.lv"`,
		`aria-invalid="true"`)

	// Valid: accepted, redirect, busy view.
	rec = h.post("/contact", validForm(tok))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != "/contact" {
		t.Fatalf("valid POST = %d %q", rec.Code, rec.Header().Get("Location"))
	}
	rec = h.do(http.MethodGet, "/contact", nil, nil)
	mustContain(t, rec.Body.String(), "<fieldset disabled>", "Sending...", `http-equiv="refresh"`)

	// Double submit while busy.
	rec = h.post("/contact", validForm(tok))
	if rec.Code != http.StatusConflict {
		t.Fatalf("busy POST status = %d", rec.Code)
	}

	// Delivery succeeds: acknowledgment.
	h.gate <- nil
	h.settle()
	rec = h.do(http.MethodGet, "/contact", nil, nil)
	body = rec.Body.String()
	mustContain(t, body, "Thank You!", "Your message has been received.", "24–48 hours", "Send Another Message")

	// Send another message: empty form again.
	rec = h.post("/contact/reset", url.Values{"csrf_token": {token(t, body)}})
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("reset status = %d", rec.Code)
	}
	rec = h.do(http.MethodGet, "/contact", nil, nil)
	body = rec.Body.String()
	if strings.Contains(body, "jane@example.lv") || strings.Contains(body, "Thank You!") {
		t.Fatalf("form not reset:\n%s", body)
	}
}

func TestContactPage_TransportFailureKeepsInput(t *testing.T) {
	h := newHarness(t, 0)
	tok := token(t, h.do(http.MethodGet, "/contact", nil, nil).Body.String())

	if rec := h.post("/contact", validForm(tok)); rec.Code != http.StatusSeeOther {
		t.Fatalf("POST status = %d", rec.Code)
	}
	h.gate <- errors.New("smtp down")
	h.settle()

	rec := h.do(http.MethodGet, "/contact", nil, nil)
	mustContain(t, rec.Body.String(),
		"We could not send your message.  Please try again.",
		`value="jane@example.lv"`,
		"Send Message")
}

func TestContactPage_FormRejections(t *testing.T) {
	t.Run("bad token", func(t *testing.T) {
		h := newHarness(t, 0)
		h.do(http.MethodGet, "/contact", nil, nil)
		rec := h.post("/contact", validForm("forged"))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
		mustContain(t, rec.Body.String(), "Security token invalid or expired.", `value="jane@example.lv"`)
	})
	t.Run("too fast", func(t *testing.T) {
		h := newHarness(t, time.Hour)
		tok := token(t, h.do(http.MethodGet, "/contact", nil, nil).Body.String())
		rec := h.post("/contact", validForm(tok))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
		mustContain(t, rec.Body.String(), "Form submitted too quickly.")
	})
	t.Run("reset without token", func(t *testing.T) {
		h := newHarness(t, 0)
		h.do(http.MethodGet, "/contact", nil, nil)
		if rec := h.post("/contact/reset", url.Values{}); rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d", rec.Code)
		}
	})
}

type stateBody struct {
	State     string            `json:"state"`
	Fields    map[string]string `json:"fields"`
	Errors    map[string]any    `json:"errors"`
	CSRFToken string            `json:"csrfToken"`
	Error     string            `json:"error"`
}

func decodeState(t *testing.T, rec *httptest.ResponseRecorder) stateBody {
	t.Helper()
	var s stateBody
	if err := json.Unmarshal(rec.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return s
}

func TestContactAPI(t *testing.T) {
	h := newHarness(t, 0)

	st := decodeState(t, h.do(http.MethodGet, "/api/contact", nil, nil))
	if st.State != "idle" || st.CSRFToken == "" {
		t.Fatalf("initial state = %+v", st)
	}
	hdr := map[string]string{CSRFHeader: st.CSRFToken, "Content-Type": "application/json"}

	rec := h.do(http.MethodPatch, "/api/contact/fields/email", strings.NewReader(`{"value":"jane@example.lv"}`), hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("PATCH status = %d: %s", rec.Code, rec.Body)
	}
	if got := decodeState(t, rec).Fields["email"]; got != "jane@example.lv" {
		t.Fatalf("email = %q", got)
	}

	if rec := h.do(http.MethodPatch, "/api/contact/fields/fax", strings.NewReader(`{"value":"1"}`), hdr); rec.Code != http.StatusNotFound {
		t.Fatalf("unknown field status = %d", rec.Code)
	}
	if rec := h.do(http.MethodPatch, "/api/contact/fields/name", strings.NewReader(`{"value":"x"}`), nil); rec.Code != http.StatusForbidden {
		t.Fatalf("missing token status = %d", rec.Code)
	}

	// Submit with only the email set: every other required field fails.
	rec = h.do(http.MethodPost, "/api/contact/submit", nil, hdr)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("invalid submit status = %d", rec.Code)
	}

	rec = h.do(http.MethodPost, "/api/contact/submit", strings.NewReader(`{"fields":{"name":"Jane","email":"jane@example.lv","message":"Hello there, Serenity"}}`), hdr)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body)
	}
	st = decodeState(t, rec)
	want := map[string]string{"name": "Jane", "email": "jane@example.lv", "phone": "", "message": "Hello there, Serenity"}
	if st.State != "submitting" {
		t.Fatalf("state = %q", st.State)
	}
	if diff := cmp.Diff(want, st.Fields); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}

	if rec := h.do(http.MethodPost, "/api/contact/submit", nil, hdr); rec.Code != http.StatusConflict {
		t.Fatalf("busy submit status = %d", rec.Code)
	}
	if rec := h.do(http.MethodPatch, "/api/contact/fields/name", strings.NewReader(`{"value":"x"}`), hdr); rec.Code != http.StatusConflict {
		t.Fatalf("edit while busy status = %d", rec.Code)
	}

	h.gate <- nil
	h.settle()
	if st := decodeState(t, h.do(http.MethodGet, "/api/contact", nil, nil)); st.State != "submitted" {
		t.Fatalf("state after delivery = %q", st.State)
	}

	rec = h.do(http.MethodPost, "/api/contact/reset", nil, hdr)
	if rec.Code != http.StatusOK {
		t.Fatalf("reset status = %d", rec.Code)
	}
	st = decodeState(t, rec)
	if st.State != "idle" || st.Fields["name"] != "" {
		t.Fatalf("after reset = %+v", st)
	}
	if rec := h.do(http.MethodPost, "/api/contact/reset", nil, hdr); rec.Code != http.StatusConflict {
		t.Fatalf("second reset status = %d", rec.Code)
	}
}

func TestContactAPI_EditsAreNotRateLimited(t *testing.T) {
	h := newHarness(t, 0, func(cfg *config.Config) {
		cfg.Contact.RatePerMinute = 6
		cfg.Contact.RateBurst = 3
	})

	st := decodeState(t, h.do(http.MethodGet, "/api/contact", nil, nil))
	hdr := map[string]string{CSRFHeader: st.CSRFToken, "Content-Type": "application/json"}

	for _, kv := range [][2]string{
		{"name", "Jane"},
		{"email", "jane@example.lv"},
		{"phone", "+371 255 695 75"},
		{"message", "Hello there, Serenity"},
	} {
		body := strings.NewReader(`{"value":"` + kv[1] + `"}`)
		if rec := h.do(http.MethodPatch, "/api/contact/fields/"+kv[0], body, hdr); rec.Code != http.StatusOK {
			t.Fatalf("PATCH %s status = %d: %s", kv[0], rec.Code, rec.Body)
		}
	}

	// Only phone is named; the other patched values survive.
	rec := h.do(http.MethodPost, "/api/contact/submit", strings.NewReader(`{"fields":{"phone":"+371 265 638 12"}}`), hdr)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("submit status = %d: %s", rec.Code, rec.Body)
	}
	want := map[string]string{"name": "Jane", "email": "jane@example.lv", "phone": "+371 265 638 12", "message": "Hello there, Serenity"}
	if diff := cmp.Diff(want, decodeState(t, rec).Fields); diff != "" {
		t.Fatalf("fields (-want +got):\n%s", diff)
	}

	// Submits still draw on the burst of 3.
	for i, code := range []int{http.StatusConflict, http.StatusConflict, http.StatusTooManyRequests} {
		if rec := h.do(http.MethodPost, "/api/contact/submit", nil, hdr); rec.Code != code {
			t.Fatalf("submit %d status = %d, want %d", i+2, rec.Code, code)
		}
	}
	if rec := h.do(http.MethodPatch, "/api/contact/fields/fax", strings.NewReader(`{"value":"1"}`), hdr); rec.Code != http.StatusNotFound {
		t.Fatalf("PATCH after limit status = %d", rec.Code)
	}

	h.gate <- nil
	h.settle()
}

func TestContactAPI_SubmitUnknownField(t *testing.T) {
	h := newHarness(t, 0)
	st := decodeState(t, h.do(http.MethodGet, "/api/contact", nil, nil))
	hdr := map[string]string{CSRFHeader: st.CSRFToken, "Content-Type": "application/json"}

	rec := h.do(http.MethodPost, "/api/contact/submit", strings.NewReader(`{"fields":{"name":"Jane","fax":"1"}}`), hdr)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if got := decodeState(t, h.do(http.MethodGet, "/api/contact", nil, nil)).Fields["name"]; got != "" {
		t.Fatalf("name edited despite refusal: %q", got)
	}
}

func TestInitRequiresEnv(t *testing.T) {
	if err := (&Component{}).Init(component.Env{}); err == nil {
		t.Fatalf("Init accepted empty env")
	}
}
