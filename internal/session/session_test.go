// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/golang-jwt/jwt/v5"
	_ "modernc.org/sqlite"

	"github.com/olegiv/epress-go/internal/model"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	// Create sessions table required by sqlite3store
	_, err = db.Exec(`
		CREATE TABLE sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		);
		CREATE INDEX sessions_expiry_idx ON sessions(expiry);
	`)
	if err != nil {
		t.Fatalf("failed to create sessions table: %v", err)
	}

	t.Cleanup(func() { _ = db.Close() })
	return db
}

// loadedCtx returns a context with a fresh session loaded, as the
// LoadAndSave middleware would provide to a handler.
func loadedCtx(t *testing.T, sm *scs.SessionManager) context.Context {
	t.Helper()
	ctx, err := sm.Load(context.Background(), "")
	if err != nil {
		t.Fatalf("loading session: %v", err)
	}
	return ctx
}

func testUser() *model.User {
	return &model.User{
		ID:       "u1",
		FullName: "Ada Admin",
		Email:    "ada@example.com",
		UserName: "ada",
		Role:     model.RoleAdmin,
	}
}

// signedToken builds a JWT with the given expiry for lifetime-cap tests.
func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u1",
		"exp": exp.Unix(),
	})
	s, err := tok.SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return s
}

func TestNew_DevMode(t *testing.T) {
	sm := New(setupTestDB(t), true)

	if sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = false in dev mode")
	}
	if sm.Cookie.Name == "__Host-session" {
		t.Error("expected default cookie name in dev mode")
	}
}

func TestNew_ProductionMode(t *testing.T) {
	sm := New(setupTestDB(t), false)

	if !sm.Cookie.Secure {
		t.Error("expected Cookie.Secure = true in production mode")
	}
	if sm.Cookie.Name != "__Host-session" {
		t.Errorf("expected __Host-session cookie name, got %q", sm.Cookie.Name)
	}
	if sm.Cookie.Path != "/" {
		t.Errorf("expected Cookie.Path = '/', got %q", sm.Cookie.Path)
	}
}

func TestNew_SessionSettings(t *testing.T) {
	sm := New(setupTestDB(t), true)

	if sm.Lifetime != 24*time.Hour {
		t.Errorf("Lifetime = %v, want 24h", sm.Lifetime)
	}
	if !sm.Cookie.HttpOnly {
		t.Error("expected Cookie.HttpOnly = true")
	}
	if sm.Cookie.SameSite != http.SameSiteLaxMode {
		t.Errorf("expected SameSite = Lax, got %v", sm.Cookie.SameSite)
	}
}

func TestSignIn_StoresTokenAndUserTogether(t *testing.T) {
	sm := New(setupTestDB(t), true)
	ctx := loadedCtx(t, sm)

	if err := SignIn(ctx, sm, "tok-1", testUser(), false); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	if got := Token(ctx, sm); got != "tok-1" {
		t.Errorf("Token = %q", got)
	}
	user, err := CurrentUser(ctx, sm)
	if err != nil {
		t.Fatalf("CurrentUser: %v", err)
	}
	if user.UserName != "ada" || user.Role != model.RoleAdmin {
		t.Errorf("user = %+v", user)
	}
}

func TestSignOut_ClearsEverything(t *testing.T) {
	sm := New(setupTestDB(t), true)
	ctx := loadedCtx(t, sm)

	if err := SignIn(ctx, sm, "tok-1", testUser(), true); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if err := SignOut(ctx, sm); err != nil {
		t.Fatalf("SignOut: %v", err)
	}

	if got := Token(ctx, sm); got != "" {
		t.Errorf("Token after SignOut = %q", got)
	}
	if _, err := CurrentUser(ctx, sm); !errors.Is(err, ErrNoSession) {
		t.Errorf("CurrentUser after SignOut = %v, want ErrNoSession", err)
	}
}

func TestCurrentUser_NoSession(t *testing.T) {
	sm := New(setupTestDB(t), true)
	ctx := loadedCtx(t, sm)

	if _, err := CurrentUser(ctx, sm); !errors.Is(err, ErrNoSession) {
		t.Errorf("err = %v, want ErrNoSession", err)
	}
}

func TestCurrentUser_MalformedJSONFailsClosed(t *testing.T) {
	sm := New(setupTestDB(t), true)
	ctx := loadedCtx(t, sm)

	sm.Put(ctx, keyToken, "tok-1")
	sm.Put(ctx, keyUser, "{not json")

	_, err := CurrentUser(ctx, sm)
	if err == nil {
		t.Fatal("expected error for malformed user data")
	}
	if errors.Is(err, ErrNoSession) {
		t.Error("malformed data must be distinguishable from no session")
	}
}

func TestCurrentUser_IncompleteRecordRejected(t *testing.T) {
	sm := New(setupTestDB(t), true)
	ctx := loadedCtx(t, sm)

	// Valid JSON but no ID and an unknown role.
	sm.Put(ctx, keyUser, `{"userName":"ghost","role":"Nobody"}`)

	if _, err := CurrentUser(ctx, sm); err == nil {
		t.Error("expected error for incomplete user record")
	}
}

func TestSignIn_CapsLifetimeToTokenExpiry(t *testing.T) {
	sm := New(setupTestDB(t), true)
	ctx := loadedCtx(t, sm)

	exp := time.Now().Add(2 * time.Hour)
	if err := SignIn(ctx, sm, signedToken(t, exp), testUser(), false); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	deadline := sm.Deadline(ctx)
	if diff := deadline.Sub(exp); diff < -time.Second || diff > time.Second {
		t.Errorf("Deadline = %v, want ~%v", deadline, exp)
	}
}

func TestSignIn_OpaqueTokenKeepsDefaultLifetime(t *testing.T) {
	sm := New(setupTestDB(t), true)
	ctx := loadedCtx(t, sm)

	if err := SignIn(ctx, sm, "opaque-token", testUser(), false); err != nil {
		t.Fatalf("SignIn: %v", err)
	}

	deadline := sm.Deadline(ctx)
	want := time.Now().Add(Lifetime)
	if diff := deadline.Sub(want); diff < -time.Minute || diff > time.Minute {
		t.Errorf("Deadline = %v, want ~%v", deadline, want)
	}
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	got, ok := tokenExpiry(signedToken(t, exp))
	if !ok {
		t.Fatal("expected expiry from JWT")
	}
	if !got.Equal(exp) {
		t.Errorf("expiry = %v, want %v", got, exp)
	}

	if _, ok := tokenExpiry("not-a-jwt"); ok {
		t.Error("opaque token should have no expiry")
	}
}

func TestTokens_TokenSource(t *testing.T) {
	sm := New(setupTestDB(t), true)
	ctx := loadedCtx(t, sm)

	src := Tokens{SM: sm}
	if got := src.Token(ctx); got != "" {
		t.Errorf("Token = %q, want empty before sign-in", got)
	}

	if err := SignIn(ctx, sm, "tok-9", testUser(), false); err != nil {
		t.Fatalf("SignIn: %v", err)
	}
	if got := src.Token(ctx); got != "tok-9" {
		t.Errorf("Token = %q", got)
	}
}

// Background jobs call the API client on contexts that never passed
// through LoadAndSave. The token source must treat those as anonymous
// rather than propagate scs's panic into a cron goroutine.
func TestTokens_ContextWithoutSession(t *testing.T) {
	src := Tokens{SM: New(setupTestDB(t), true)}

	if got := src.Token(context.Background()); got != "" {
		t.Errorf("Token = %q, want empty outside a request", got)
	}
}
