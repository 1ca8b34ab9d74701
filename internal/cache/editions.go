// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/olegiv/epress-go/internal/model"
)

// ErrNoEdition is a cached not-found: the backend was asked recently and
// had no edition for that key. Distinct from ErrCacheMiss, which means
// "ask the backend".
const ErrNoEdition Error = "no edition (cached)"

// negativeMarker is stored for dates known to have no edition, so the
// landing page does not hammer the backend with lookups that 404.
var negativeMarker = []byte("!")

const (
	editionDatePrefix = "edition:date:"
	editionLatestKey  = "edition:latest"

	// negativeTTL bounds how long a not-found answer is believed. A new
	// edition published mid-day becomes visible within this window.
	negativeTTL = time.Minute
)

// Editions is a typed view over a byte cache for edition lookups.
type Editions struct {
	cache Cache
	ttl   time.Duration
}

// NewEditions wraps cache with edition-specific keys and encoding.
func NewEditions(cache Cache, ttl time.Duration) *Editions {
	return &Editions{cache: cache, ttl: ttl}
}

// ByDate returns the cached edition for a date. ErrCacheMiss means the
// backend must be consulted; ErrNoEdition means it was consulted recently
// and had nothing.
func (e *Editions) ByDate(ctx context.Context, date string) (*model.Epaper, error) {
	return e.get(ctx, editionDatePrefix+date)
}

// StoreByDate caches the edition for its date.
func (e *Editions) StoreByDate(ctx context.Context, date string, ep *model.Epaper) error {
	return e.put(ctx, editionDatePrefix+date, ep, e.ttl)
}

// StoreMissing records that a date has no edition.
func (e *Editions) StoreMissing(ctx context.Context, date string) error {
	ttl := e.ttl
	if ttl > negativeTTL {
		ttl = negativeTTL
	}
	return e.cache.Set(ctx, editionDatePrefix+date, negativeMarker, ttl)
}

// Latest returns the cached most-recent published edition.
func (e *Editions) Latest(ctx context.Context) (*model.Epaper, error) {
	return e.get(ctx, editionLatestKey)
}

// StoreLatest caches the most-recent published edition.
func (e *Editions) StoreLatest(ctx context.Context, ep *model.Epaper) error {
	return e.put(ctx, editionLatestKey, ep, e.ttl)
}

// Invalidate drops cached lookups touched by an edition write. Called
// after create, update, reorder and delete so admin changes are visible
// on the public landing without waiting for expiry.
func (e *Editions) Invalidate(ctx context.Context, dates ...string) error {
	if err := e.cache.Delete(ctx, editionLatestKey); err != nil {
		return err
	}
	for _, d := range dates {
		if d == "" {
			continue
		}
		if err := e.cache.Delete(ctx, editionDatePrefix+d); err != nil {
			return err
		}
	}
	return nil
}

func (e *Editions) get(ctx context.Context, key string) (*model.Epaper, error) {
	data, err := e.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if len(data) == len(negativeMarker) && data[0] == negativeMarker[0] {
		return nil, ErrNoEdition
	}

	var ep model.Epaper
	if err := json.Unmarshal(data, &ep); err != nil {
		// A corrupt entry behaves like a miss; the next store overwrites it.
		_ = e.cache.Delete(ctx, key)
		return nil, ErrCacheMiss
	}
	return &ep, nil
}

func (e *Editions) put(ctx context.Context, key string, ep *model.Epaper, ttl time.Duration) error {
	data, err := json.Marshal(ep)
	if err != nil {
		return err
	}
	return e.cache.Set(ctx, key, data, ttl)
}
