// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"

	"github.com/olegiv/epress-go/internal/model"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// Login exchanges credentials for a bearer token and the user record.
// A 2xx response that omits the token is still a failed login: without a
// credential the session must not be established.
func (c *Client) Login(ctx context.Context, login, password string) (string, *model.User, error) {
	var resp loginResponse
	err := c.sendJSON(ctx, http.MethodPost, "/auth/login", loginRequest{Login: login, Password: password}, &resp)
	if err != nil {
		return "", nil, err
	}
	if resp.Token == "" || resp.User == nil {
		return "", nil, &Error{
			Kind:    KindUnauthorized,
			Status:  http.StatusOK,
			Message: "Login failed. Please try again.",
		}
	}
	return resp.Token, resp.User, nil
}
