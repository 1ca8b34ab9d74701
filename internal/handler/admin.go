// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"log/slog"
	"net/http"

	"github.com/olegiv/epress-go/internal/api"
	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/render"
	"github.com/olegiv/epress-go/internal/store"
)

// AdminHandler handles the dashboard.
type AdminHandler struct {
	client   *api.Client
	renderer *render.Renderer
	events   *store.Events
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(client *api.Client, renderer *render.Renderer, events *store.Events) *AdminHandler {
	return &AdminHandler{client: client, renderer: renderer, events: events}
}

// DashboardData holds data for the dashboard template.
type DashboardData struct {
	TotalEpapers   int
	PublishedCount int
	TotalUsers     int
	UserCountKnown bool
	RecentEvents   []store.Event
}

// Dashboard handles GET /admin. Backend counts are best effort: a failed
// count leaves a zero with the error logged, it never blocks the page.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	data := DashboardData{}

	if list, err := h.client.Epapers(r.Context(), api.EpaperListParams{Page: 1, Limit: 1}); err != nil {
		slog.Error("failed to count editions", "error", err)
	} else {
		data.TotalEpapers = list.Pagination.Total
	}

	if list, err := h.client.Epapers(r.Context(), api.EpaperListParams{Page: 1, Limit: 1, Status: model.StatusPublished}); err != nil {
		slog.Error("failed to count published editions", "error", err)
	} else {
		data.PublishedCount = list.Pagination.Total
	}

	// Staff cannot list users on the backend; the dashboard simply omits
	// the card when the count is unavailable.
	if users, err := h.client.Users(r.Context()); err != nil {
		if !api.IsForbidden(err) {
			slog.Error("failed to count users", "error", err)
		}
	} else {
		data.TotalUsers = len(users)
		data.UserCountKnown = true
	}

	if h.events != nil {
		events, err := h.events.Recent(r.Context(), 10)
		if err != nil {
			slog.Error("failed to load recent events", "error", err)
		} else {
			data.RecentEvents = events
		}
	}

	if err := h.renderer.Render(w, r, "admin/dashboard", adminTemplateData(r, "Dashboard", data)); err != nil {
		logAndInternalError(w, "failed to render dashboard", "error", err)
	}
}
