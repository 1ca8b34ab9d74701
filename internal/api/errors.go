// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a backend request failure. Handlers branch on the
// kind, never on raw status codes or message text.
type ErrorKind int

const (
	// KindTransport covers failures before any HTTP response arrived:
	// DNS, connection refused, timeouts, context cancellation.
	KindTransport ErrorKind = iota
	// KindBackend is any HTTP error response not covered by a more
	// specific kind.
	KindBackend
	// KindUnauthorized means the credential was missing, rejected or
	// expired (HTTP 401).
	KindUnauthorized
	// KindForbidden means the credential is valid but the role is not
	// allowed (HTTP 403).
	KindForbidden
	// KindNotFound means the requested resource does not exist (HTTP 404).
	KindNotFound
)

// Error is the normalized form of every backend failure. It is built once
// at the HTTP boundary; nothing downstream re-parses response bodies.
type Error struct {
	Kind    ErrorKind
	Status  int    // HTTP status, 0 for transport failures
	Message string // human-readable, already prioritized per errorMessage
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("api: %s (HTTP %d)", e.Message, e.Status)
	}
	return fmt.Sprintf("api: %s", e.Message)
}

// IsNotFound reports whether err is a backend 404. Not-found drives
// fallback logic on the public landing and must never be conflated with
// transport errors.
func IsNotFound(err error) bool {
	return hasKind(err, KindNotFound)
}

// IsUnauthorized reports whether err means the session credential was
// rejected.
func IsUnauthorized(err error) bool {
	return hasKind(err, KindUnauthorized)
}

// IsForbidden reports whether err is a role rejection.
func IsForbidden(err error) bool {
	return hasKind(err, KindForbidden)
}

// IsTransport reports whether err occurred before any HTTP response.
func IsTransport(err error) bool {
	return hasKind(err, KindTransport)
}

func hasKind(err error, kind ErrorKind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

// UserMessage extracts the normalized message for display. Non-api errors
// collapse to a generic string so raw internals never reach the user.
func UserMessage(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return "Something went wrong. Please try again."
}

// errorBody is the backend's error envelope. Some endpoints use "message",
// older ones use "error".
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// newHTTPError builds an Error from a non-2xx response. Message priority:
// body "message", then body "error", then the HTTP status text.
func newHTTPError(status int, body []byte) *Error {
	kind := KindBackend
	switch status {
	case http.StatusUnauthorized:
		kind = KindUnauthorized
	case http.StatusForbidden:
		kind = KindForbidden
	case http.StatusNotFound:
		kind = KindNotFound
	}

	msg := ""
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Message != "":
			msg = eb.Message
		case eb.Error != "":
			msg = eb.Error
		}
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	if msg == "" {
		msg = "request failed"
	}

	return &Error{Kind: kind, Status: status, Message: msg}
}

// newTransportError wraps a pre-response failure.
func newTransportError(err error) *Error {
	return &Error{Kind: KindTransport, Message: err.Error()}
}
