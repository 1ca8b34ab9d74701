// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/epress-go/internal/api"
	"github.com/olegiv/epress-go/internal/cache"
	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/render"
)

// FrontendHandler serves the public reader pages.
type FrontendHandler struct {
	client   *api.Client
	renderer *render.Renderer
	editions *cache.Editions
}

// NewFrontendHandler creates a new FrontendHandler.
func NewFrontendHandler(client *api.Client, renderer *render.Renderer, editions *cache.Editions) *FrontendHandler {
	return &FrontendHandler{client: client, renderer: renderer, editions: editions}
}

// LandingData holds data for the public landing template.
type LandingData struct {
	Epaper        *model.Epaper
	RequestedDate string
	// IsFallback is set when the requested date had no edition and the
	// latest published one is shown instead.
	IsFallback bool
	// NoEdition is set when nothing is published at all.
	NoEdition bool
	// BackendDown is set when the backend could not be reached; the page
	// shows an error state rather than a misleading "no edition" notice.
	BackendDown bool
}

// Landing handles GET /. It resolves the edition for the requested date
// (today by default) and falls back to the latest published one when the
// date has no edition. Backend errors render an error state, never a
// silent fallback.
func (h *FrontendHandler) Landing(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if date == "" {
		date = time.Now().Format(model.DateLayout)
	} else if _, err := model.ParseDate(date); err != nil {
		h.renderLanding(w, r, LandingData{RequestedDate: date, NoEdition: true})
		return
	}

	data := LandingData{RequestedDate: date}

	ep, err := h.editionByDate(r, date)
	switch {
	case err == nil:
		data.Epaper = ep
	case errors.Is(err, cache.ErrNoEdition) || api.IsNotFound(err):
		latest, lerr := h.latestPublished(r)
		switch {
		case lerr == nil && latest != nil:
			data.Epaper = latest
			data.IsFallback = true
		case lerr == nil:
			data.NoEdition = true
		default:
			slog.Error("failed to load latest edition", "error", lerr)
			data.BackendDown = true
		}
	default:
		slog.Error("failed to load edition by date", "error", err, "date", date)
		data.BackendDown = true
	}

	h.renderLanding(w, r, data)
}

// NotFound renders the public 404 page for the wildcard route.
func (h *FrontendHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNotFound)
	if err := h.renderer.Render(w, r, "frontend/notfound", render.TemplateData{
		Title: "Page Not Found",
	}); err != nil {
		slog.Error("failed to render not-found page", "error", err)
	}
}

// editionByDate consults the cache first and fills it from the backend on
// a miss. Only published editions are visible here.
func (h *FrontendHandler) editionByDate(r *http.Request, date string) (*model.Epaper, error) {
	ctx := r.Context()

	if h.editions != nil {
		ep, err := h.editions.ByDate(ctx, date)
		if err == nil {
			return ep, nil
		}
		if errors.Is(err, cache.ErrNoEdition) {
			return nil, err
		}
	}

	ep, err := h.client.EpaperByDate(ctx, date)
	if err != nil {
		if api.IsNotFound(err) && h.editions != nil {
			if cerr := h.editions.StoreMissing(ctx, date); cerr != nil {
				slog.Error("failed to cache negative edition lookup", "error", cerr)
			}
		}
		return nil, err
	}
	if ep.Status != model.StatusPublished {
		if h.editions != nil {
			if cerr := h.editions.StoreMissing(ctx, date); cerr != nil {
				slog.Error("failed to cache negative edition lookup", "error", cerr)
			}
		}
		return nil, cache.ErrNoEdition
	}

	if h.editions != nil {
		if cerr := h.editions.StoreByDate(ctx, date, ep); cerr != nil {
			slog.Error("failed to cache edition", "error", cerr)
		}
	}
	return ep, nil
}

// latestPublished returns the newest published edition, or (nil, nil)
// when none exists.
func (h *FrontendHandler) latestPublished(r *http.Request) (*model.Epaper, error) {
	ctx := r.Context()

	if h.editions != nil {
		if ep, err := h.editions.Latest(ctx); err == nil {
			return ep, nil
		}
	}

	list, err := h.client.Epapers(ctx, api.EpaperListParams{
		Page:   1,
		Limit:  1,
		Status: model.StatusPublished,
	})
	if err != nil {
		return nil, err
	}
	if len(list.Epapers) == 0 {
		return nil, nil
	}

	latest := list.Epapers[0]
	if h.editions != nil {
		if cerr := h.editions.StoreLatest(ctx, &latest); cerr != nil {
			slog.Error("failed to cache latest edition", "error", cerr)
		}
	}
	return &latest, nil
}

func (h *FrontendHandler) renderLanding(w http.ResponseWriter, r *http.Request, data LandingData) {
	title := "Today's Edition"
	if data.Epaper != nil {
		title = data.Epaper.Name
	}
	if err := h.renderer.Render(w, r, "frontend/landing", render.TemplateData{
		Title: title,
		Data:  data,
	}); err != nil {
		logAndInternalError(w, "failed to render landing page", "error", err)
	}
}
