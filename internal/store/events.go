// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Event levels.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories.
const (
	EventCategoryAuth   = "auth"
	EventCategoryUser   = "user"
	EventCategoryEpaper = "epaper"
	EventCategorySystem = "system"
)

// Event is one audit log entry. Actor is the username of the signed-in
// admin when the event came from a handler, empty for system events.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	Actor     string
	Metadata  string
	CreatedAt time.Time
}

// Events provides queries over the audit event log.
type Events struct {
	db *sql.DB
}

// NewEvents creates an Events query helper.
func NewEvents(db *sql.DB) *Events {
	return &Events{db: db}
}

// Create inserts an audit event.
func (e *Events) Create(ctx context.Context, ev Event) (int64, error) {
	if ev.Metadata == "" {
		ev.Metadata = "{}"
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now()
	}
	res, err := e.db.ExecContext(ctx,
		`INSERT INTO events (level, category, message, actor, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		ev.Level, ev.Category, ev.Message, ev.Actor, ev.Metadata, ev.CreatedAt)
	if err != nil {
		return 0, fmt.Errorf("inserting event: %w", err)
	}
	return res.LastInsertId()
}

// Recent returns the newest events, most recent first.
func (e *Events) Recent(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := e.db.QueryContext(ctx,
		`SELECT id, level, category, message, actor, metadata, created_at
		 FROM events ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Level, &ev.Category, &ev.Message,
			&ev.Actor, &ev.Metadata, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Count returns the total number of events.
func (e *Events) Count(ctx context.Context) (int64, error) {
	var n int64
	err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n)
	return n, err
}

// PurgeBefore deletes events older than cutoff. Called by the scheduler to
// keep the local database bounded.
func (e *Events) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := e.db.ExecContext(ctx, `DELETE FROM events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purging events: %w", err)
	}
	return res.RowsAffected()
}
