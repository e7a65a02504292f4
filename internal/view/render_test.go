package view

import (
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func newRenderer(t *testing.T, files fstest.MapFS) *Renderer {
	t.Helper()
	v, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := v.Register("demo", files); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return v
}

func TestRender_LayoutAndContent(t *testing.T) {
	v := newRenderer(t, fstest.MapFS{
		"hello.html":    {Data: []byte(`{{define "content"}}<p>{{.Data}}</p>{{template "sig" .}}{{end}}`)},
		"other.html":    {Data: []byte(`{{define "content"}}other{{end}}`)},
		"_partial.html": {Data: []byte(`{{define "sig"}}<em>sig</em>{{end}}`)},
	})

	r := httptest.NewRequest(http.MethodGet, "/about", nil)
	rec := httptest.NewRecorder()
	if err := v.Render(rec, http.StatusTeapot, "demo", "hello", NewPage(r, "About", "<b>hi</b>")); err != nil {
		t.Fatalf("Render: %v", err)
	}
	body := rec.Body.String()

	if rec.Code != http.StatusTeapot {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{
		"<title>About | Serenity Wellness</title>",
		"<p>&lt;b&gt;hi&lt;/b&gt;</p>",
		"<em>sig</em>",
		`<a href="/about" class="active" aria-current="page">About</a>`,
		"Bebru iela 22 - 40, Jēkabpils, LV-5201, Latvia",
		"info@serenity.lv",
		"© 2026 Serenity Wellness and Hospitality, SIA",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("body missing %q", want)
		}
	}
	if strings.Contains(body, `<a href="/" class="active"`) {
		t.Errorf("home link marked active on /about")
	}

	other, err := v.RenderToString("demo", "other", nil)
	if err != nil || !strings.Contains(string(other), "other") {
		t.Fatalf("RenderToString = %q, %v", other, err)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	v := newRenderer(t, fstest.MapFS{
		"x.html": {Data: []byte(`{{define "content"}}x{{end}}`)},
	})
	rec := httptest.NewRecorder()
	err := v.Render(rec, http.StatusOK, "demo", "missing", nil)
	if !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("err = %v, want fs.ErrNotExist", err)
	}
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestRegister_RequiresContent(t *testing.T) {
	v, err := New()
	if err != nil {
		t.Fatal(err)
	}
	if err := v.Register("bad", fstest.MapFS{"a.html": {Data: []byte(`plain`)}}); err == nil {
		t.Fatalf("template without content block accepted")
	}
	if err := v.Register("empty", fstest.MapFS{}); err == nil {
		t.Fatalf("component without templates accepted")
	}
}

func TestActive(t *testing.T) {
	cases := []struct {
		cur, href string
		want      bool
	}{
		{"/", "/", true},
		{"/contact", "/", false},
		{"/contact", "/contact", true},
		{"/contact/reset", "/contact", true},
		{"/contacts", "/contact", false},
	}
	for _, c := range cases {
		if got := active(c.cur, c.href); got != c.want {
			t.Errorf("active(%q, %q) = %v", c.cur, c.href, got)
		}
	}
}

func TestStatic(t *testing.T) {
	rec := httptest.NewRecorder()
	Static().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/site.css", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), ".serenity-form") {
		t.Fatalf("static = %d", rec.Code)
	}
}
