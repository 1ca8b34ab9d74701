// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request context handling.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alexedwards/scs/v2"

	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/session"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// Context keys for request data.
const (
	ContextKeyUser        ContextKey = "user"
	ContextKeyRequestPath ContextKey = "request_path"
)

// Auth creates middleware that requires authentication.
// It checks for a signed-in session and redirects to the sign-in page if
// not authenticated.
func Auth(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.Token(r.Context(), sm) == "" {
				http.Redirect(w, r, "/signin", http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// LoadUser creates middleware that loads the signed-in user into the request
// context. A session whose stored user record cannot be decoded is destroyed
// and the request redirected to sign-in: a broken identity never reaches a
// handler. Should be used after Auth middleware.
func LoadUser(sm *scs.SessionManager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if session.Token(r.Context(), sm) == "" {
				next.ServeHTTP(w, r)
				return
			}

			user, err := session.CurrentUser(r.Context(), sm)
			if err != nil {
				slog.Warn("destroying session with unreadable user record", "error", err)
				_ = sm.Destroy(r.Context())
				http.Redirect(w, r, "/signin", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUser retrieves the current user from the request context.
// Returns nil if no user is in context.
func GetUser(r *http.Request) *model.User {
	user, ok := r.Context().Value(ContextKeyUser).(*model.User)
	if !ok {
		return nil
	}
	return user
}

// GetUserName returns the current user's username from context, or "".
// Safe to use in audit logging where an empty actor is acceptable.
func GetUserName(r *http.Request) string {
	if user := GetUser(r); user != nil {
		return user.UserName
	}
	return ""
}

// RequireRoles creates middleware that admits only the listed roles.
// An unauthenticated request goes to sign-in; an authenticated user whose
// role is not in the set is silently redirected to fallbackPath, matching
// the navigation model: a screen a role cannot see is a screen it is
// quietly steered away from, not a visible error.
func RequireRoles(fallbackPath string, allowed ...model.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := GetUser(r)
			if user == nil {
				http.Redirect(w, r, "/signin", http.StatusSeeOther)
				return
			}

			if !model.CanAccess(user.Role, allowed) {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"user", user.UserName,
					"user_role", user.Role,
					"remote_addr", r.RemoteAddr,
				)
				http.Redirect(w, r, fallbackPath, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestPath creates middleware that stores the request path in the context.
// This is used by the logging handler to include the URL in error logs.
func RequestPath(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), ContextKeyRequestPath, r.URL.Path)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestPath retrieves the request path from the context.
func GetRequestPath(ctx context.Context) string {
	path, ok := ctx.Value(ContextKeyRequestPath).(string)
	if !ok {
		return ""
	}
	return path
}
