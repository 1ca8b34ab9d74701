// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/mail"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/epress-go/internal/api"
	"github.com/olegiv/epress-go/internal/middleware"
	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/render"
	"github.com/olegiv/epress-go/internal/store"
)

// userNameRegex restricts usernames to a URL- and login-safe alphabet.
var userNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_.-]{3,50}$`)

// UsersHandler handles user management routes. The backend owns the user
// records; this layer validates forms and forwards.
type UsersHandler struct {
	client   *api.Client
	renderer *render.Renderer
	events   *store.Events
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(client *api.Client, renderer *render.Renderer, events *store.Events) *UsersHandler {
	return &UsersHandler{client: client, renderer: renderer, events: events}
}

// UsersListData holds data for the users list template.
type UsersListData struct {
	Users         []model.User
	CurrentUserID string
}

// List handles GET /admin/users.
func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.client.Users(r.Context())
	if err != nil {
		flashAPIError(w, r, h.renderer, redirectAdmin, "failed to list users", err)
		return
	}

	data := UsersListData{
		Users:         users,
		CurrentUserID: currentUserID(r),
	}

	if err := h.renderer.Render(w, r, "admin/users_list", adminTemplateData(r, "Users", data)); err != nil {
		logAndInternalError(w, "failed to render users list", "error", err)
	}
}

// UserFormData holds data for the user form template.
type UserFormData struct {
	User       *model.User
	Roles      []model.Role
	Errors     map[string]string
	FormValues map[string]string
	IsEdit     bool
}

// NewForm handles GET /admin/users/create.
func (h *UsersHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderUserForm(w, r, "New User", UserFormData{
		Roles:      roleOptions(),
		Errors:     make(map[string]string),
		FormValues: make(map[string]string),
	})
}

// Create handles POST /admin/users/create.
func (h *UsersHandler) Create(w http.ResponseWriter, r *http.Request) {
	if !parseFormOrRedirect(w, r, h.renderer, redirectAdminUsersCreate) {
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	email := strings.TrimSpace(r.FormValue("email"))
	userName := strings.TrimSpace(r.FormValue("userName"))
	password := r.FormValue("password")
	passwordConfirm := r.FormValue("password_confirm")
	role := r.FormValue("role")

	formValues := map[string]string{
		"fullName": fullName,
		"email":    email,
		"userName": userName,
		"role":     role,
	}

	validationErrors := validateUserForm(fullName, email, role)

	if userName == "" {
		validationErrors["userName"] = "Username is required"
	} else if !userNameRegex.MatchString(userName) {
		validationErrors["userName"] = "Username must be 3-50 characters: letters, digits, dot, dash, underscore"
	}

	if password == "" {
		validationErrors["password"] = "Password is required"
	} else if len(password) < 8 {
		validationErrors["password"] = "Password must be at least 8 characters"
	} else if password != passwordConfirm {
		validationErrors["password_confirm"] = "Passwords do not match"
	}

	if len(validationErrors) > 0 {
		h.renderUserForm(w, r, "New User", UserFormData{
			Roles:      roleOptions(),
			Errors:     validationErrors,
			FormValues: formValues,
		})
		return
	}

	newUser, err := h.client.CreateUser(r.Context(), api.UserInput{
		FullName: fullName,
		Email:    email,
		UserName: userName,
		Role:     model.Role(role),
		Password: password,
	})
	if err != nil {
		flashAPIError(w, r, h.renderer, redirectAdminUsersCreate, "failed to create user", err)
		return
	}

	slog.Info("user created", "user_id", newUser.ID, "user_name", newUser.UserName, "created_by", middleware.GetUserName(r))
	h.logUserEvent(r, "User created: "+newUser.UserName)

	flashSuccess(w, r, h.renderer, redirectAdminUsers, "User created successfully")
}

// EditForm handles GET /admin/users/edit/{id}.
func (h *UsersHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	editUser, ok := h.requireUser(w, r, id)
	if !ok {
		return
	}

	h.renderUserForm(w, r, "Edit User", UserFormData{
		User:   editUser,
		Roles:  roleOptions(),
		Errors: make(map[string]string),
		FormValues: map[string]string{
			"fullName": editUser.FullName,
			"email":    editUser.Email,
			"userName": editUser.UserName,
			"role":     string(editUser.Role),
		},
		IsEdit: true,
	})
}

// Update handles POST /admin/users/edit/{id}. The username is immutable:
// it is displayed read-only and never forwarded.
func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	editURL := fmt.Sprintf(redirectAdminUsersEdit, id)

	editUser, ok := h.requireUser(w, r, id)
	if !ok {
		return
	}

	if !parseFormOrRedirect(w, r, h.renderer, editURL) {
		return
	}

	fullName := strings.TrimSpace(r.FormValue("fullName"))
	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	passwordConfirm := r.FormValue("password_confirm")
	role := r.FormValue("role")

	formValues := map[string]string{
		"fullName": fullName,
		"email":    email,
		"userName": editUser.UserName,
		"role":     role,
	}

	validationErrors := validateUserForm(fullName, email, role)

	// Password optional on update; blank means keep the current one.
	if password != "" {
		if len(password) < 8 {
			validationErrors["password"] = "Password must be at least 8 characters"
		} else if password != passwordConfirm {
			validationErrors["password_confirm"] = "Passwords do not match"
		}
	}

	if len(validationErrors) > 0 {
		h.renderUserForm(w, r, "Edit User", UserFormData{
			User:       editUser,
			Roles:      roleOptions(),
			Errors:     validationErrors,
			FormValues: formValues,
			IsEdit:     true,
		})
		return
	}

	updated, err := h.client.UpdateUser(r.Context(), id, api.UserInput{
		FullName: fullName,
		Email:    email,
		Role:     model.Role(role),
		Password: password,
	})
	if err != nil {
		flashAPIError(w, r, h.renderer, editURL, "failed to update user", err)
		return
	}

	slog.Info("user updated", "user_id", updated.ID, "updated_by", middleware.GetUserName(r))
	h.logUserEvent(r, "User updated: "+updated.UserName)

	flashSuccess(w, r, h.renderer, redirectAdminUsers, "User updated successfully")
}

// Delete handles POST /admin/users/delete/{id}. Deleting your own account
// is refused before the backend is asked.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if id == currentUserID(r) {
		flashError(w, r, h.renderer, redirectAdminUsers, "You cannot delete your own account")
		return
	}

	if err := h.client.DeleteUser(r.Context(), id); err != nil {
		flashAPIError(w, r, h.renderer, redirectAdminUsers, "failed to delete user", err)
		return
	}

	slog.Info("user deleted", "user_id", id, "deleted_by", middleware.GetUserName(r))
	h.logUserEvent(r, "User deleted: "+id)

	flashSuccess(w, r, h.renderer, redirectAdminUsers, "User deleted successfully")
}

// requireUser fetches a user or redirects to the list with a flash.
func (h *UsersHandler) requireUser(w http.ResponseWriter, r *http.Request, id string) (*model.User, bool) {
	user, err := h.client.User(r.Context(), id)
	if err != nil {
		if api.IsNotFound(err) {
			flashError(w, r, h.renderer, redirectAdminUsers, "User not found")
		} else {
			flashAPIError(w, r, h.renderer, redirectAdminUsers, "failed to load user", err)
		}
		return nil, false
	}
	return user, true
}

func (h *UsersHandler) renderUserForm(w http.ResponseWriter, r *http.Request, title string, data UserFormData) {
	if err := h.renderer.Render(w, r, "admin/users_form", adminTemplateData(r, title, data)); err != nil {
		logAndInternalError(w, "failed to render user form", "error", err)
	}
}

// logUserEvent records a user management event in the local audit log.
func (h *UsersHandler) logUserEvent(r *http.Request, message string) {
	if h.events == nil {
		return
	}
	if _, err := h.events.Create(r.Context(), store.Event{
		Level:    store.EventLevelInfo,
		Category: store.EventCategoryUser,
		Message:  message,
		Actor:    middleware.GetUserName(r),
	}); err != nil {
		slog.Error("failed to record user event", "error", err)
	}
}

// validateUserForm validates the fields shared by create and update.
func validateUserForm(fullName, email, role string) map[string]string {
	validationErrors := make(map[string]string)

	if fullName == "" {
		validationErrors["fullName"] = "Full name is required"
	} else if len(fullName) < 2 {
		validationErrors["fullName"] = "Full name must be at least 2 characters"
	}

	if email == "" {
		validationErrors["email"] = "Email is required"
	} else if _, err := mail.ParseAddress(email); err != nil {
		validationErrors["email"] = "Invalid email format"
	}

	if role == "" {
		validationErrors["role"] = "Role is required"
	} else if !model.IsValidRole(model.Role(role)) {
		validationErrors["role"] = "Invalid role"
	}

	return validationErrors
}

// currentUserID returns the signed-in user's ID, or "" when absent.
func currentUserID(r *http.Request) string {
	if user := middleware.GetUser(r); user != nil {
		return user.ID
	}
	return ""
}
