// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler contains the HTTP handlers for the admin console and
// the public reader pages.
package handler

import (
	"net/http"

	"github.com/olegiv/epress-go/internal/middleware"
	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/nav"
	"github.com/olegiv/epress-go/internal/render"
)

// adminTemplateData builds the common template data for admin pages:
// current user, role-filtered navigation and the request path.
func adminTemplateData(r *http.Request, title string, data any) render.TemplateData {
	td := render.TemplateData{
		Title:       title,
		Data:        data,
		RequestPath: r.URL.Path,
	}
	if user := middleware.GetUser(r); user != nil {
		td.User = user
		td.Nav = nav.Filter(user.Role, r.URL.Path)
	}
	return td
}

// roleOptions are the assignable roles, in display order.
func roleOptions() []model.Role {
	return model.ValidRoles
}
