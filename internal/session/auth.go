// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/olegiv/epress-go/internal/model"
)

// Session data keys.
const (
	keyToken = "authToken"
	keyUser  = "authUser"
)

// ErrNoSession is returned when no signed-in identity is present.
var ErrNoSession = errors.New("session: not signed in")

// SignIn establishes an authenticated session. The session token is renewed
// first so a pre-login session ID is never carried across the privilege
// boundary. remember selects a persistent cookie; otherwise the cookie
// expires with the browser session.
func SignIn(ctx context.Context, sm *scs.SessionManager, token string, user *model.User, remember bool) error {
	if err := sm.RenewToken(ctx); err != nil {
		return fmt.Errorf("renewing session token: %w", err)
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding user: %w", err)
	}

	sm.Put(ctx, keyToken, token)
	sm.Put(ctx, keyUser, string(data))
	sm.RememberMe(ctx, remember)

	// If the backend token expires before the default session lifetime,
	// shorten the session to match. A session must never outlive its
	// credential.
	if exp, ok := tokenExpiry(token); ok && exp.Before(time.Now().Add(Lifetime)) && exp.After(time.Now()) {
		sm.SetDeadline(ctx, exp)
	}

	return nil
}

// SignOut destroys the session and its cookie. Always clears local state
// even when no session existed.
func SignOut(ctx context.Context, sm *scs.SessionManager) error {
	return sm.Destroy(ctx)
}

// CurrentUser returns the signed-in user. Malformed stored user data is
// treated as "not signed in" rather than surfaced to callers; the auth
// middleware destroys such sessions on sight.
func CurrentUser(ctx context.Context, sm *scs.SessionManager) (*model.User, error) {
	raw := sm.GetString(ctx, keyUser)
	if raw == "" {
		return nil, ErrNoSession
	}

	var user model.User
	if err := json.Unmarshal([]byte(raw), &user); err != nil {
		return nil, fmt.Errorf("decoding session user: %w", err)
	}
	if user.ID == "" || !model.IsValidRole(user.Role) {
		return nil, fmt.Errorf("session user record is incomplete")
	}
	return &user, nil
}

// Token returns the backend bearer token for the session, or "".
func Token(ctx context.Context, sm *scs.SessionManager) string {
	return sm.GetString(ctx, keyToken)
}

// Tokens adapts a session manager to the API client's TokenSource.
type Tokens struct {
	SM *scs.SessionManager
}

// Token implements api.TokenSource. scs panics when the context never
// passed through LoadAndSave; background jobs run on such contexts, and
// for them the request is simply anonymous.
func (t Tokens) Token(ctx context.Context) (token string) {
	defer func() {
		if recover() != nil {
			token = ""
		}
	}()
	return Token(ctx, t.SM)
}

// tokenExpiry extracts the exp claim from a JWT without verifying the
// signature. Verification is the backend's job; the claim is used only to
// bound the session lifetime. Opaque tokens yield (zero, false).
func tokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
