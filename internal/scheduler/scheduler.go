// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic background jobs: pre-warming the
// edition cache for the public landing page and purging old event rows.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/epress-go/internal/api"
	"github.com/olegiv/epress-go/internal/cache"
	"github.com/olegiv/epress-go/internal/model"
	"github.com/olegiv/epress-go/internal/store"
)

const (
	// jobTimeout bounds each job run so a hung backend call cannot pile
	// up overlapping invocations.
	jobTimeout = 30 * time.Second

	// eventRetention is how long event rows are kept before the nightly
	// purge removes them.
	eventRetention = 90 * 24 * time.Hour
)

// Scheduler handles periodic jobs.
type Scheduler struct {
	client   *api.Client
	editions *cache.Editions
	events   *store.Events
	cron     *cron.Cron
	logger   *slog.Logger
}

// New creates a new scheduler instance. Jobs run in cron goroutines, so a
// panic there would kill the whole process; the Recover chain turns it
// into a logged error instead.
func New(client *api.Client, editions *cache.Editions, events *store.Events, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		client:   client,
		editions: editions,
		events:   events,
		cron:     cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(cronLogger{logger})))),
		logger:   logger,
	}
}

// cronLogger adapts slog to the Printf shape cron's wrappers expect.
type cronLogger struct {
	l *slog.Logger
}

func (c cronLogger) Printf(format string, args ...any) {
	c.l.Error(fmt.Sprintf(format, args...))
}

// Start registers the jobs and begins running them. The edition cache is
// warmed every five minutes; events are purged once a day.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("*/5 * * * *", func() {
		if err := s.warmEditionCache(); err != nil {
			s.logger.Error("failed to warm edition cache", "error", err)
		}
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc("0 3 * * *", func() {
		if err := s.purgeOldEvents(); err != nil {
			s.logger.Error("failed to purge old events", "error", err)
		}
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// warmEditionCache refreshes the two lookups the landing page makes:
// today's edition and the latest published one. A missing edition for
// today is cached as a negative entry.
func (s *Scheduler) warmEditionCache() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	today := time.Now().Format(model.DateLayout)

	ep, err := s.client.EpaperByDate(ctx, today)
	switch {
	case err == nil && ep.Status == model.StatusPublished:
		if err := s.editions.StoreByDate(ctx, today, ep); err != nil {
			return err
		}
	case err == nil || api.IsNotFound(err):
		// Draft and archived editions are invisible to the public page.
		if err := s.editions.StoreMissing(ctx, today); err != nil {
			return err
		}
	default:
		return err
	}

	list, err := s.client.Epapers(ctx, api.EpaperListParams{
		Page:   1,
		Limit:  1,
		Status: model.StatusPublished,
	})
	if err != nil {
		return err
	}
	if len(list.Epapers) == 0 {
		return nil
	}

	latest := list.Epapers[0]
	if err := s.editions.StoreLatest(ctx, &latest); err != nil {
		return err
	}
	s.logger.Debug("edition cache warmed", "date", today, "latest", latest.ID)
	return nil
}

// purgeOldEvents deletes event rows older than the retention window.
func (s *Scheduler) purgeOldEvents() error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	cutoff := time.Now().Add(-eventRetention)
	n, err := s.events.PurgeBefore(ctx, cutoff)
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("purged old events", "count", n, "cutoff", cutoff.Format(time.RFC3339))
	}
	return nil
}
