// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/olegiv/epress-go/internal/model"
)

// UserInput is the payload for creating or updating a user. On update an
// empty Password means "keep the current password"; UserName is set only
// at creation and ignored by the backend afterwards.
type UserInput struct {
	FullName string     `json:"fullName"`
	Email    string     `json:"email"`
	UserName string     `json:"userName,omitempty"`
	Role     model.Role `json:"role"`
	Password string     `json:"password,omitempty"`
}

type usersResponse struct {
	Users []model.User `json:"users"`
}

type userResponse struct {
	Message string      `json:"message"`
	User    *model.User `json:"user"`
}

// Users fetches all user accounts.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var resp usersResponse
	if err := c.getJSON(ctx, "/users", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Users, nil
}

// User fetches a single user by ID.
func (c *Client) User(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	if err := c.getJSON(ctx, "/users/"+id, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser creates a new account.
func (c *Client) CreateUser(ctx context.Context, in UserInput) (*model.User, error) {
	var resp userResponse
	if err := c.sendJSON(ctx, http.MethodPost, "/users", in, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// UpdateUser updates an existing account.
func (c *Client) UpdateUser(ctx context.Context, id string, in UserInput) (*model.User, error) {
	var resp userResponse
	if err := c.sendJSON(ctx, http.MethodPut, "/users/"+id, in, &resp); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// DeleteUser removes an account.
func (c *Client) DeleteUser(ctx context.Context, id string) error {
	return c.delete(ctx, "/users/"+id)
}
