// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/epress-go/internal/api"
	"github.com/olegiv/epress-go/internal/cache"
	"github.com/olegiv/epress-go/internal/middleware"
	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/render"
)

// minimalTemplates is just enough template surface for handlers to render
// without pulling in the real asset tree.
func minimalTemplates() fstest.MapFS {
	page := `{{define "content"}}{{.Title}}{{end}}`
	return fstest.MapFS{
		"layouts/base.html":          {Data: []byte(`{{define "base"}}{{block "content" .}}{{end}}{{end}}`)},
		"layouts/admin.html":         {Data: []byte(`{{define "sidebar"}}{{end}}`)},
		"admin/dashboard.html":       {Data: []byte(page)},
		"admin/users_list.html":      {Data: []byte(page)},
		"admin/users_form.html":      {Data: []byte(page)},
		"admin/epapers_list.html":    {Data: []byte(page)},
		"admin/epapers_form.html":    {Data: []byte(page)},
		"admin/epapers_view.html":    {Data: []byte(page)},
		"auth/signin.html":           {Data: []byte(page)},
		"frontend/landing.html":      {Data: []byte(`{{define "content"}}{{with .Data}}{{if .BackendDown}}ERROR{{else if .NoEdition}}EMPTY{{else if .IsFallback}}FALLBACK {{.Epaper.Name}}{{else}}EDITION {{.Epaper.Name}}{{end}}{{end}}{{end}}`)},
		"frontend/notfound.html":     {Data: []byte(page)},
	}
}

// testEnv bundles the collaborators a handler needs in tests.
type testEnv struct {
	client   *api.Client
	renderer *render.Renderer
	sm       *scs.SessionManager
	editions *cache.Editions
}

// newTestEnv starts a stub backend and builds handler collaborators
// around it. Sessions use the in-memory scs store.
func newTestEnv(t *testing.T, backend http.Handler) *testEnv {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	sm := scs.New()

	renderer, err := render.New(render.Config{
		TemplatesFS:    minimalTemplates(),
		SessionManager: sm,
	})
	if err != nil {
		t.Fatalf("render.New: %v", err)
	}

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mem.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := api.New(srv.URL, 5*time.Second, api.TokenFunc(func(context.Context) string { return "" }), logger)

	return &testEnv{
		client:   client,
		renderer: renderer,
		sm:       sm,
		editions: cache.NewEditions(mem, time.Minute),
	}
}

// withSession wraps a handler with scs session loading so flash helpers
// and session reads work in tests.
func (e *testEnv) withSession(h http.Handler) http.Handler {
	return e.sm.LoadAndSave(h)
}

// asUser injects an authenticated user the way the LoadUser middleware
// does in production.
func asUser(r *http.Request, user *model.User) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.ContextKeyUser, user)
	return r.WithContext(ctx)
}

func staffUser() *model.User {
	return &model.User{ID: "u-staff", FullName: "Staff Member", UserName: "staff", Role: model.RoleStaff}
}

func adminUser() *model.User {
	return &model.User{ID: "u-admin", FullName: "Admin User", UserName: "admin", Role: model.RoleAdmin}
}
