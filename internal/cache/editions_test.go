// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/epress-go/internal/model"
)

func testEditions(t *testing.T) *Editions {
	t.Helper()
	c := NewMemoryCache(MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })
	return NewEditions(c, time.Minute)
}

func sampleEdition() *model.Epaper {
	return &model.Epaper{
		ID:       "e1",
		Name:     "Sunday Edition",
		Date:     "2026-08-23",
		FileType: model.FileTypeImages,
		Status:   model.StatusPublished,
		Images: []model.EpaperImage{
			{ID: "a", URL: "/files/a.jpg", PageNumber: 1},
		},
	}
}

func TestEditions_ByDateRoundTrip(t *testing.T) {
	e := testEditions(t)
	ctx := context.Background()

	_, err := e.ByDate(ctx, "2026-08-23")
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, e.StoreByDate(ctx, "2026-08-23", sampleEdition()))

	got, err := e.ByDate(ctx, "2026-08-23")
	require.NoError(t, err)
	assert.Equal(t, "e1", got.ID)
	assert.Len(t, got.Images, 1)
}

func TestEditions_NegativeEntry(t *testing.T) {
	e := testEditions(t)
	ctx := context.Background()

	require.NoError(t, e.StoreMissing(ctx, "2026-08-24"))

	_, err := e.ByDate(ctx, "2026-08-24")
	assert.ErrorIs(t, err, ErrNoEdition)
	// A negative entry must not look like a plain miss, or the backend
	// would be asked again immediately.
	assert.NotErrorIs(t, err, ErrCacheMiss)
}

func TestEditions_Latest(t *testing.T) {
	e := testEditions(t)
	ctx := context.Background()

	_, err := e.Latest(ctx)
	require.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, e.StoreLatest(ctx, sampleEdition()))

	got, err := e.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Sunday Edition", got.Name)
}

func TestEditions_Invalidate(t *testing.T) {
	e := testEditions(t)
	ctx := context.Background()

	require.NoError(t, e.StoreLatest(ctx, sampleEdition()))
	require.NoError(t, e.StoreByDate(ctx, "2026-08-23", sampleEdition()))

	require.NoError(t, e.Invalidate(ctx, "2026-08-23"))

	_, err := e.Latest(ctx)
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = e.ByDate(ctx, "2026-08-23")
	assert.ErrorIs(t, err, ErrCacheMiss)
}
