// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/epress-go/internal/model"
)

// reorderBackend serves one edition and accepts reorder requests.
type reorderBackend struct {
	epaper       model.Epaper
	failReorder  bool
	gotOrder     []string
	reorderCalls int
}

func (s *reorderBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /epapers/{id}", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(s.epaper)
	})
	mux.HandleFunc("PATCH /epapers/{id}/reorder", func(w http.ResponseWriter, r *http.Request) {
		s.reorderCalls++
		if s.failReorder {
			w.WriteHeader(http.StatusInternalServerError)
			io.WriteString(w, `{"message":"reorder failed"}`)
			return
		}
		var body struct {
			ImageOrder []string `json:"imageOrder"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		s.gotOrder = body.ImageOrder

		images := model.ReorderImages(s.epaper.Images, body.ImageOrder)
		model.RenumberPages(images)
		json.NewEncoder(w).Encode(map[string]any{"message": "ok", "images": images})
	})
	return mux
}

func threePageEdition() model.Epaper {
	return model.Epaper{
		ID: "e1", Name: "Morning Post", Date: "2026-08-23",
		FileType: model.FileTypeImages, Status: model.StatusPublished,
		Images: []model.EpaperImage{
			{ID: "a", URL: "/files/a.jpg", PageNumber: 1},
			{ID: "b", URL: "/files/b.jpg", PageNumber: 2},
			{ID: "c", URL: "/files/c.jpg", PageNumber: 3},
		},
	}
}

func postReorder(t *testing.T, env *testEnv, id, body string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewEpapersHandler(env.client, env.renderer, nil, env.editions, nil)

	router := chi.NewRouter()
	router.Post("/admin/epapers/{id}/reorder", h.Reorder)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/admin/epapers/"+id+"/reorder", strings.NewReader(body))
	req = asUser(req, staffUser())
	env.withSession(router).ServeHTTP(w, req)
	return w
}

func TestReorder_Success(t *testing.T) {
	backend := &reorderBackend{epaper: threePageEdition()}
	env := newTestEnv(t, backend.handler())

	w := postReorder(t, env, "e1", `{"imageOrder":["c","a","b"]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp reorderResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Images) != 3 || resp.Images[0].ID != "c" || resp.Images[0].PageNumber != 1 {
		t.Errorf("canonical order = %+v", resp.Images)
	}
	if len(backend.gotOrder) != 3 || backend.gotOrder[0] != "c" {
		t.Errorf("backend received order %v", backend.gotOrder)
	}
}

func TestReorder_RejectsNonPermutation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"missing id", `{"imageOrder":["a","b"]}`},
		{"unknown id", `{"imageOrder":["a","b","x"]}`},
		{"duplicate id", `{"imageOrder":["a","a","b"]}`},
		{"empty", `{"imageOrder":[]}`},
		{"garbage body", `{nope`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &reorderBackend{epaper: threePageEdition()}
			env := newTestEnv(t, backend.handler())

			w := postReorder(t, env, "e1", tt.body)
			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
			if backend.reorderCalls != 0 {
				t.Error("invalid order must not reach the backend")
			}

			// The response carries the last-confirmed order for rollback.
			var resp reorderResult
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("decoding response: %v", err)
			}
			if len(resp.Images) != 3 || resp.Images[0].ID != "a" {
				t.Errorf("rollback order = %+v", resp.Images)
			}
			if resp.Error == "" {
				t.Error("expected an error message")
			}
		})
	}
}

func TestReorder_BackendFailureReturnsConfirmedOrder(t *testing.T) {
	backend := &reorderBackend{epaper: threePageEdition(), failReorder: true}
	env := newTestEnv(t, backend.handler())

	w := postReorder(t, env, "e1", `{"imageOrder":["c","a","b"]}`)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}

	var resp reorderResult
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Images) != 3 || resp.Images[0].ID != "a" {
		t.Errorf("rollback order = %+v", resp.Images)
	}
	if !strings.Contains(resp.Error, "reorder failed") {
		t.Errorf("error = %q", resp.Error)
	}
}

func TestValidateEpaperForm(t *testing.T) {
	tests := []struct {
		name     string
		n, d, ft, st string
		wantErrs []string
	}{
		{"valid images", "Morning Post", "2026-08-23", "images", "draft", nil},
		{"valid pdf", "Morning Post", "2026-08-23", "pdf", "published", nil},
		{"missing name", "", "2026-08-23", "images", "draft", []string{"name"}},
		{"bad date", "X", "23-08-2026", "images", "draft", []string{"date"}},
		{"bad file type", "X", "2026-08-23", "docx", "draft", []string{"fileType"}},
		{"bad status", "X", "2026-08-23", "images", "live", []string{"status"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := validateEpaperForm(tt.n, tt.d, tt.ft, tt.st)
			if len(errs) != len(tt.wantErrs) {
				t.Fatalf("errors = %v, want keys %v", errs, tt.wantErrs)
			}
			for _, key := range tt.wantErrs {
				if errs[key] == "" {
					t.Errorf("missing error for %q: %v", key, errs)
				}
			}
		})
	}
}
