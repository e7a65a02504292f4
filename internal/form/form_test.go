// internal/form/form_test.go
//
// Unit-tests for the forms subsystem: loader, renderer, CSRF, and
// submission parsing.
//
// Run: go test ./internal/form -v

package form

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

const testYAML = `
id: test/contact
title: Send us a message
submit_label: Send Message
busy_label: Sending...
fields:
  - name: name
    label: Full Name
    type: text
    placeholder: Your full name
    required: true
    autocomplete: name
    maxlength: 5
  - name: email
    label: Email Address
    type: email
    required: true
  - name: phone
    label: Phone Number
    type: tel
  - name: message
    label: Message
    type: textarea
    required: true
`

func registerTestForm(t *testing.T) {
	t.Helper()
	fsys := fstest.MapFS{"forms/contact.yaml": {Data: []byte(testYAML)}}
	if err := RegisterFS(fsys, "forms"); err != nil {
		t.Fatalf("RegisterFS: %v", err)
	}
}

func TestRegisterFS(t *testing.T) {
	registerTestForm(t)
	fd, ok := GetFormDef("test/contact")
	if !ok {
		t.Fatalf("form not registered")
	}
	if len(fd.Fields) != 4 || fd.Fields[3].Rows != 5 {
		t.Fatalf("unexpected def: %+v", fd)
	}
}

func TestParseFormDef_Rejects(t *testing.T) {
	tests := map[string]string{
		"missing id":     "fields:\n  - {name: a, label: A, type: text}\n",
		"no fields":      "id: x\n",
		"bad type":       "id: x\nfields:\n  - {name: a, label: A, type: select}\n",
		"duplicate name": "id: x\nfields:\n  - {name: a, label: A, type: text}\n  - {name: a, label: B, type: text}\n",
		"bad pattern":    "id: x\nfields:\n  - {name: a, label: A, type: text, pattern: \"[\"}\n",
		"missing label":  "id: x\nfields:\n  - {name: a, type: text}\n",
	}
	for name, doc := range tests {
		if _, err := ParseFormDef([]byte(doc), name); err == nil {
			t.Errorf("%s: accepted", name)
		}
	}
}

func TestRenderForm(t *testing.T) {
	registerTestForm(t)

	out, err := RenderForm("test/contact", RenderOptions{
		Action:    "/contact",
		Prefill:   map[string]string{"name": `Jane "JJ"`, "message": "<b>hi</b>"},
		Errors:    map[string]string{"email": "Email is required"},
		Notice:    "We could not send your message.  Please try again.",
		CSRFToken: "tok",
	})
	if err != nil {
		t.Fatalf("RenderForm: %v", err)
	}
	html := string(out)
	for _, want := range []string{
		`action="/contact"`,
		`value="Jane &#34;JJ&#34;"`,
		`&lt;b&gt;hi&lt;/b&gt;</textarea>`,
		`aria-invalid="true" aria-describedby="err-email"`,
		`<span class="error" id="err-email" aria-live="polite">Email is required</span>`,
		`role="alert">We could not send your message.`,
		`name="csrf_token" value="tok"`,
		`<button type="submit">Send Message</button>`,
	} {
		if !strings.Contains(html, want) {
			t.Errorf("output missing %q\n%s", want, html)
		}
	}
	if strings.Contains(html, "disabled") {
		t.Errorf("idle form rendered disabled")
	}

	busy, _ := RenderForm("test/contact", RenderOptions{Busy: true})
	if !strings.Contains(string(busy), `<fieldset disabled>`) || !strings.Contains(string(busy), "Sending...") {
		t.Errorf("busy form not disabled:\n%s", busy)
	}

	if _, err := RenderForm("nope", RenderOptions{}); err == nil {
		t.Errorf("unknown form rendered")
	}
}

func TestCSRF(t *testing.T) {
	if err := SetKey("c2VyZW5pdHktdGVzdC1rZXktdGhhdC1pcy0zMi1ieXRlcw"); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	tok, err := GenerateToken("sid-1")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if !VerifyToken(tok, "sid-1") {
		t.Fatalf("fresh token rejected")
	}
	if VerifyToken(tok, "sid-2") {
		t.Fatalf("token accepted for another session")
	}
	if VerifyToken(tok[:len(tok)-2]+"AA", "sid-1") {
		t.Fatalf("tampered token accepted")
	}

	old, _ := generateAt("sid-1", time.Now().Add(-MaxAge-time.Minute))
	if VerifyToken(old, "sid-1") {
		t.Fatalf("expired token accepted")
	}

	if err := SetKey("c2hvcnQ"); err == nil {
		t.Fatalf("short key accepted")
	}
}

func postForm(vals url.Values) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/contact", strings.NewReader(vals.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func TestParseSubmission(t *testing.T) {
	registerTestForm(t)
	tok, _ := generateAt("sid", time.Now().Add(-5*time.Second))

	vals := url.Values{
		"csrf_token": {tok},
		"name":       {"Jānis Bērziņš"},
		"email":      {"janis@example.lv"},
		"message":    {"Hello there, friends"},
		"extra":      {"ignored"},
	}
	got, err := ParseSubmission("test/contact", postForm(vals), "sid", 2*time.Second)
	if err != nil {
		t.Fatalf("ParseSubmission: %v", err)
	}
	if got.Name != "Jānis" {
		t.Fatalf("name not clamped to 5 runes: %q", got.Name)
	}
	if got.Email != "janis@example.lv" || got.Phone != "" || got.Message != "Hello there, friends" {
		t.Fatalf("unexpected fields: %+v", got)
	}
}

func TestParseSubmission_FormErrors(t *testing.T) {
	registerTestForm(t)
	fresh, _ := GenerateToken("sid")
	aged, _ := generateAt("sid", time.Now().Add(-5*time.Second))

	tests := []struct {
		name string
		tok  string
		sid  string
		want error
	}{
		{"missing token", "", "sid", ErrBadToken},
		{"other session", aged, "other", ErrBadToken},
		{"too fast", fresh, "sid", ErrTooFast},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseSubmission("test/contact", postForm(url.Values{"csrf_token": {tt.tok}}), tt.sid, 2*time.Second)
			if !errors.Is(err, tt.want) || !IsFormError(err) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	registerTestForm(t)
	if got := Clamp("test/contact", "name", "abcdefgh"); got != "abcde" {
		t.Fatalf("Clamp = %q", got)
	}
	if got := Clamp("test/contact", "email", "abcdefgh"); got != "abcdefgh" {
		t.Fatalf("Clamp without limit = %q", got)
	}
}

func TestCheckToken(t *testing.T) {
	aged, _ := generateAt("sid", time.Now().Add(-5*time.Second))
	if err := CheckToken(aged, "sid", 2*time.Second); err != nil {
		t.Fatalf("CheckToken: %v", err)
	}
	if err := CheckToken(aged, "sid", time.Minute); !errors.Is(err, ErrTooFast) {
		t.Fatalf("err = %v, want ErrTooFast", err)
	}
	if err := CheckToken("garbage", "sid", 0); !errors.Is(err, ErrBadToken) {
		t.Fatalf("err = %v, want ErrBadToken", err)
	}
}
