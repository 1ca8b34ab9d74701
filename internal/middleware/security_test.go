// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecurityHeaders_Production(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(false, "https://api.example.com")
	handler := SecurityHeaders(cfg)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	h := rec.Header()
	if h.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("missing nosniff")
	}
	if !strings.Contains(h.Get("Strict-Transport-Security"), "max-age=31536000") {
		t.Errorf("HSTS = %q", h.Get("Strict-Transport-Security"))
	}
	csp := h.Get("Content-Security-Policy")
	if !strings.Contains(csp, "default-src 'self'") {
		t.Errorf("CSP = %q", csp)
	}
	if !strings.Contains(csp, "https://api.example.com") {
		t.Error("CSP should allow the backend origin for images")
	}
	if h.Get("X-Frame-Options") != "SAMEORIGIN" {
		t.Errorf("X-Frame-Options = %q", h.Get("X-Frame-Options"))
	}
}

func TestSecurityHeaders_DevelopmentSkipsHSTS(t *testing.T) {
	cfg := DefaultSecurityHeadersConfig(true, "")
	handler := SecurityHeaders(cfg)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Header().Get("Strict-Transport-Security") != "" {
		t.Error("HSTS must not be set in development")
	}
}

func TestBuildCSP_Deterministic(t *testing.T) {
	d := map[string]string{
		"default-src": "'self'",
		"script-src":  "'self'",
		"object-src":  "'none'",
	}
	first := buildCSP(d)
	for i := 0; i < 10; i++ {
		if got := buildCSP(d); got != first {
			t.Fatalf("buildCSP is not deterministic: %q vs %q", got, first)
		}
	}
	if !strings.HasPrefix(first, "default-src") {
		t.Errorf("CSP order = %q", first)
	}
}
