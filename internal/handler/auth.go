// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/epress-go/internal/api"
	"github.com/olegiv/epress-go/internal/middleware"
	"github.com/olegiv/epress-go/internal/render"
	"github.com/olegiv/epress-go/internal/session"
	"github.com/olegiv/epress-go/internal/store"
)

// AuthHandler handles sign-in and sign-out.
type AuthHandler struct {
	client          *api.Client
	renderer        *render.Renderer
	sessionManager  *scs.SessionManager
	loginProtection *middleware.LoginProtection
	events          *store.Events
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(client *api.Client, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection, events *store.Events) *AuthHandler {
	return &AuthHandler{
		client:          client,
		renderer:        renderer,
		sessionManager:  sm,
		loginProtection: lp,
		events:          events,
	}
}

// SigninForm renders the sign-in page. Already-authenticated users go
// straight to the dashboard.
func (h *AuthHandler) SigninForm(w http.ResponseWriter, r *http.Request) {
	if _, err := session.CurrentUser(r.Context(), h.sessionManager); err == nil {
		http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "auth/signin", render.TemplateData{
		Title: "Sign In",
	}); err != nil {
		logAndInternalError(w, "failed to render signin page", "error", err)
	}
}

// Signin handles the sign-in form submission.
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectSignin) {
		return
	}

	login := strings.TrimSpace(r.FormValue("login"))
	password := r.FormValue("password")
	remember := r.FormValue("remember") == "on"

	if login == "" || password == "" {
		flashError(w, r, h.renderer, redirectSignin, "Username and password are required")
		return
	}

	if h.loginProtection != nil {
		if locked, remaining := h.loginProtection.IsAccountLocked(login); locked {
			h.logAuthEvent(r, store.EventLevelWarning, "Sign-in attempt on locked account", login)
			flashError(w, r, h.renderer, redirectSignin,
				fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(remaining)))
			return
		}
	}

	token, user, err := h.client.Login(r.Context(), login, password)
	if err != nil {
		if api.IsUnauthorized(err) {
			slog.Debug("sign-in rejected by backend", "login", login)
			h.logAuthEvent(r, store.EventLevelWarning, "Sign-in failed: invalid credentials", login)
			if h.loginProtection != nil {
				if locked, lockDuration := h.loginProtection.RecordFailedAttempt(login); locked {
					h.logAuthEvent(r, store.EventLevelWarning, "Account locked after failed sign-ins", login)
					flashError(w, r, h.renderer, redirectSignin,
						fmt.Sprintf("Too many failed attempts. Try again in %s.", formatDuration(lockDuration)))
					return
				}
				remaining := h.loginProtection.GetRemainingAttempts(login)
				if remaining > 0 && remaining <= 3 {
					flashError(w, r, h.renderer, redirectSignin,
						fmt.Sprintf("Invalid username or password. %d attempts remaining.", remaining))
					return
				}
			}
			flashError(w, r, h.renderer, redirectSignin, "Invalid username or password")
			return
		}

		flashAPIError(w, r, h.renderer, redirectSignin, "sign-in request failed", err)
		return
	}

	if h.loginProtection != nil {
		h.loginProtection.RecordSuccessfulLogin(login)
	}

	if err := session.SignIn(r.Context(), h.sessionManager, token, user, remember); err != nil {
		logAndInternalError(w, "failed to establish session", "error", err)
		return
	}

	slog.Info("user signed in", "user_id", user.ID, "user_name", user.UserName, "role", user.Role)
	h.logAuthEvent(r, store.EventLevelInfo, "User signed in", user.UserName)

	h.renderer.SetFlash(r, "Welcome back, "+user.FullName, "success")
	http.Redirect(w, r, redirectAdmin, http.StatusSeeOther)
}

// Signout destroys the session and returns to the sign-in page.
func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	userName := middleware.GetUserName(r)

	if err := session.SignOut(r.Context(), h.sessionManager); err != nil {
		slog.Error("session destroy error", "error", err)
	}

	slog.Info("user signed out", "user_name", userName)
	h.logAuthEvent(r, store.EventLevelInfo, "User signed out", userName)

	flashAndRedirect(w, r, h.renderer, redirectSignin, "You have been signed out", "info")
}

// logAuthEvent records an authentication event in the local audit log.
func (h *AuthHandler) logAuthEvent(r *http.Request, level, message, actor string) {
	if h.events == nil {
		return
	}
	if _, err := h.events.Create(r.Context(), store.Event{
		Level:    level,
		Category: store.EventCategoryAuth,
		Message:  message,
		Actor:    actor,
	}); err != nil {
		slog.Error("failed to record auth event", "error", err)
	}
}

// formatDuration formats a lockout duration into a human-readable string.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Minute)
	if d < time.Minute {
		return "less than a minute"
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	if m == 0 {
		return fmt.Sprintf("%d hours", h)
	}
	return fmt.Sprintf("%d hours %d minutes", h, m)
}
