package render

import (
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"layouts/base.html": {Data: []byte(
			`{{define "base"}}<html><body>{{block "content" .}}{{end}}</body></html>{{end}}`)},
		"layouts/admin.html": {Data: []byte(
			`{{define "sidebar"}}<nav>{{range .Nav}}{{.Name}} {{end}}</nav>{{end}}`)},
		"partials/flash.html": {Data: []byte(
			`{{define "flash"}}{{if .Flash}}<div class="{{.FlashType}}">{{.Flash}}</div>{{end}}{{end}}`)},
		"admin/dashboard.html": {Data: []byte(
			`{{define "content"}}{{template "sidebar" .}}{{template "flash" .}}<h1>{{.Title}}</h1>{{end}}`)},
		"auth/signin.html": {Data: []byte(
			`{{define "content"}}{{template "flash" .}}<form>{{.CSRFToken}}</form>{{end}}`)},
		"frontend/landing.html": {Data: []byte(
			`{{define "content"}}<p>{{formatEditionDate .Data}}</p>{{end}}`)},
	}
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(Config{TemplatesFS: testFS()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

func TestNew_ParsesAllTemplateSets(t *testing.T) {
	r := testRenderer(t)

	for _, name := range []string{"admin/dashboard", "auth/signin", "frontend/landing"} {
		if _, ok := r.templates[name]; !ok {
			t.Errorf("template %q not parsed", name)
		}
	}
}

func TestRender_AdminPage(t *testing.T) {
	r := testRenderer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/admin", nil)
	err := r.Render(w, req, "admin/dashboard", TemplateData{Title: "Dashboard"})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	body := w.Body.String()
	if !strings.Contains(body, "<h1>Dashboard</h1>") {
		t.Errorf("body = %q", body)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/html; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestRender_UnknownTemplate(t *testing.T) {
	r := testRenderer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	if err := r.Render(w, req, "admin/nope", TemplateData{}); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestRender_EditionDateFunc(t *testing.T) {
	r := testRenderer(t)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	if err := r.Render(w, req, "frontend/landing", TemplateData{Data: "2026-08-23"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(w.Body.String(), "Sunday, August 23, 2026") {
		t.Errorf("body = %q", w.Body.String())
	}

	// Unparsable dates pass through untouched.
	w = httptest.NewRecorder()
	if err := r.Render(w, req, "frontend/landing", TemplateData{Data: "not-a-date"}); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(w.Body.String(), "not-a-date") {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestTemplateFuncs(t *testing.T) {
	r := testRenderer(t)
	funcs := r.templateFuncs()

	if got := funcs["truncate"].(func(string, int) string)("abcdef", 3); got != "abc..." {
		t.Errorf("truncate = %q", got)
	}
	if got := funcs["add"].(func(int, int) int)(2, 3); got != 5 {
		t.Errorf("add = %d", got)
	}
	if got := funcs["sub"].(func(int, int) int)(5, 2); got != 3 {
		t.Errorf("sub = %d", got)
	}
	seq := funcs["seq"].(func(int, int) []int)(1, 3)
	if len(seq) != 3 || seq[0] != 1 || seq[2] != 3 {
		t.Errorf("seq = %v", seq)
	}
}
