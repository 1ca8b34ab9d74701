// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func testClient(t *testing.T, handler http.Handler, token string) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	tokens := TokenFunc(func(context.Context) string { return token })
	return New(srv.URL, 5*time.Second, tokens, logger), srv
}

func TestClient_AttachesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotRequestID string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotRequestID = r.Header.Get("X-Request-ID")
		_, _ = w.Write([]byte(`{"users":[]}`))
	}), "tok-123")

	if _, err := c.Users(context.Background()); err != nil {
		t.Fatalf("Users: %v", err)
	}
	if gotAuth != "Bearer tok-123" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotRequestID == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestClient_NoTokenNoHeader(t *testing.T) {
	var gotAuth string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"users":[]}`))
	}), "")

	if _, err := c.Users(context.Background()); err != nil {
		t.Fatalf("Users: %v", err)
	}
	if gotAuth != "" {
		t.Errorf("Authorization = %q, want unset", gotAuth)
	}
}

func TestClient_ErrorMessagePriority(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"message wins over error", 400, `{"message":"bad date","error":"other"}`, "bad date"},
		{"error used when no message", 400, `{"error":"bad input"}`, "bad input"},
		{"status text when body is not json", 500, `<html>boom</html>`, "Internal Server Error"},
		{"status text when body empty", 502, ``, "Bad Gateway"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}), "tok")

			_, err := c.Users(context.Background())
			if err == nil {
				t.Fatal("expected error")
			}
			apiErr, ok := err.(*Error)
			if !ok {
				t.Fatalf("error type = %T", err)
			}
			if apiErr.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", apiErr.Message, tt.wantMsg)
			}
			if apiErr.Status != tt.status {
				t.Errorf("Status = %d, want %d", apiErr.Status, tt.status)
			}
		})
	}
}

func TestClient_ErrorKinds(t *testing.T) {
	tests := []struct {
		status int
		check  func(error) bool
		name   string
	}{
		{401, IsUnauthorized, "unauthorized"},
		{403, IsForbidden, "forbidden"},
		{404, IsNotFound, "not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}), "tok")

			_, err := c.Epaper(context.Background(), "e1")
			if err == nil {
				t.Fatal("expected error")
			}
			if !tt.check(err) {
				t.Errorf("kind check failed for status %d: %v", tt.status, err)
			}
		})
	}
}

func TestClient_TransportError(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New("http://127.0.0.1:1", time.Second, TokenFunc(func(context.Context) string { return "" }), logger)

	_, err := c.Users(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if !IsTransport(err) {
		t.Errorf("expected transport error, got %v", err)
	}
}

func TestLogin_MissingTokenIsFailure(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 200 OK but no token in the body.
		_, _ = w.Write([]byte(`{"user":{"id":"u1","userName":"adm","role":"Admin"}}`))
	}), "")

	_, _, err := c.Login(context.Background(), "adm", "pw")
	if err == nil {
		t.Fatal("expected error for tokenless login response")
	}
	if !IsUnauthorized(err) {
		t.Errorf("expected unauthorized, got %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/auth/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"token":"t1","user":{"id":"u1","userName":"adm","role":"SuperAdmin"}}`))
	}), "")

	token, user, err := c.Login(context.Background(), "adm", "pw")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if token != "t1" {
		t.Errorf("token = %q", token)
	}
	if user.UserName != "adm" || !user.IsSuperAdmin() {
		t.Errorf("user = %+v", user)
	}
}

func TestEpapers_QueryEncoding(t *testing.T) {
	var gotQuery string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"epapers":[],"pagination":{"page":2,"limit":10,"total":0,"pages":0}}`))
	}), "tok")

	_, err := c.Epapers(context.Background(), EpaperListParams{
		Page:      2,
		Limit:     10,
		Search:    "sunday",
		Status:    "published",
		StartDate: "2026-08-01",
		EndDate:   "2026-08-24",
	})
	if err != nil {
		t.Fatalf("Epapers: %v", err)
	}
	for _, want := range []string{"page=2", "limit=10", "search=sunday", "status=published", "startDate=2026-08-01", "endDate=2026-08-24"} {
		if !strings.Contains(gotQuery, want) {
			t.Errorf("query %q missing %q", gotQuery, want)
		}
	}
}

func TestEpapers_ZeroParamsOmitted(t *testing.T) {
	var gotQuery string
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"epapers":[],"pagination":{}}`))
	}), "tok")

	if _, err := c.Epapers(context.Background(), EpaperListParams{}); err != nil {
		t.Fatalf("Epapers: %v", err)
	}
	if gotQuery != "" {
		t.Errorf("query = %q, want empty", gotQuery)
	}
}

func TestCreateEpaper_MultipartAssembly(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("name"); got != "Sunday Edition" {
			t.Errorf("name = %q", got)
		}
		if got := r.FormValue("date"); got != "2026-08-23" {
			t.Errorf("date = %q", got)
		}
		if got := r.FormValue("fileType"); got != "images" {
			t.Errorf("fileType = %q", got)
		}
		if r.FormValue("status") != "" {
			t.Error("status should be omitted when empty")
		}
		files := r.MultipartForm.File["images"]
		if len(files) != 2 {
			t.Fatalf("images = %d, want 2", len(files))
		}
		// Page order in the form is the slice order.
		if files[0].Filename != "page1.jpg" || files[1].Filename != "page2.jpg" {
			t.Errorf("image order = %q, %q", files[0].Filename, files[1].Filename)
		}
		_, _ = w.Write([]byte(`{"message":"created","epaper":{"id":"e1","name":"Sunday Edition"}}`))
	}), "tok")

	ep, err := c.CreateEpaper(context.Background(), EpaperUpload{
		Name:     "Sunday Edition",
		Date:     "2026-08-23",
		FileType: "images",
		Images: []FilePart{
			{FileName: "page1.jpg", ContentType: "image/jpeg", Content: strings.NewReader("jpeg1")},
			{FileName: "page2.jpg", ContentType: "image/jpeg", Content: strings.NewReader("jpeg2")},
		},
	})
	if err != nil {
		t.Fatalf("CreateEpaper: %v", err)
	}
	if ep.ID != "e1" {
		t.Errorf("epaper ID = %q", ep.ID)
	}
}

func TestUpdateEpaper_RemovePDFFlag(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		if got := r.FormValue("removePDF"); got != "true" {
			t.Errorf("removePDF = %q", got)
		}
		if r.FormValue("name") != "" {
			t.Error("unset scalars must not be sent")
		}
		_, _ = w.Write([]byte(`{"message":"updated","epaper":{"id":"e1"}}`))
	}), "tok")

	if _, err := c.UpdateEpaper(context.Background(), "e1", EpaperUpload{RemovePDF: true}); err != nil {
		t.Fatalf("UpdateEpaper: %v", err)
	}
}

func TestReorderEpaperImages(t *testing.T) {
	c, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/epapers/e1/reorder" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if !strings.Contains(string(body), `"imageOrder":["c","a","b"]`) {
			t.Errorf("body = %s", body)
		}
		_, _ = w.Write([]byte(`{"message":"ok","images":[
			{"id":"c","pageNumber":1},{"id":"a","pageNumber":2},{"id":"b","pageNumber":3}]}`))
	}), "tok")

	images, err := c.ReorderEpaperImages(context.Background(), "e1", []string{"c", "a", "b"})
	if err != nil {
		t.Fatalf("ReorderEpaperImages: %v", err)
	}
	if len(images) != 3 || images[0].ID != "c" || images[0].PageNumber != 1 {
		t.Errorf("images = %+v", images)
	}
}

func TestDownload_StreamsWithCredential(t *testing.T) {
	var gotAuth string
	c, srv := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.7"))
	}), "tok")

	body, contentType, _, err := c.Download(context.Background(), srv.URL+"/files/ed.pdf")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	defer func() { _ = body.Close() }()

	data, _ := io.ReadAll(body)
	if string(data) != "%PDF-1.7" {
		t.Errorf("body = %q", data)
	}
	if contentType != "application/pdf" {
		t.Errorf("contentType = %q", contentType)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
}
