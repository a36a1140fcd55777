// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic maintenance jobs: click retention,
// event log cleanup, GeoIP database reload and QR code backfill.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// Default cron schedules.
const (
	RetentionSchedule = "@daily"
	EventsSchedule    = "30 3 * * *"
	GeoIPSchedule     = "@weekly"
	BackfillSchedule  = "*/15 * * * *"
)

// EventRetention is how long operator events are kept.
const EventRetention = 30 * 24 * time.Hour

// backfillBatch bounds one QR backfill run so the external API is not flooded.
const backfillBatch = 25

const jobTimeout = 5 * time.Minute

// ClickPurger deletes click events older than a cutoff.
type ClickPurger interface {
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}

// RetentionSource reports the configured click retention; zero keeps forever.
type RetentionSource interface {
	Retention() time.Duration
}

// EventPruner deletes operator events older than a cutoff.
type EventPruner interface {
	DeleteEventsBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// GeoIPReloader reopens the GeoIP database.
type GeoIPReloader interface {
	Reload() error
	IsEnabled() bool
}

// QRBackfiller renders QR codes for rules that have none.
type QRBackfiller interface {
	BackfillMissing(ctx context.Context, limit int64) (int, error)
}

// Jobs wires the maintenance dependencies. Nil fields disable the matching job.
type Jobs struct {
	Clicks    ClickPurger
	Retention RetentionSource
	Events    EventPruner
	GeoIP     GeoIPReloader
	QR        QRBackfiller
}

type job struct {
	name     string
	schedule string
	run      func(ctx context.Context) error
	entryID  cron.EntryID
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	LastRun  time.Time `json:"last_run,omitzero"`
	NextRun  time.Time `json:"next_run,omitzero"`
}

// Scheduler handles the periodic maintenance jobs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   []*job
	logger *slog.Logger
	now    func() time.Time
}

// New creates a new scheduler instance with the jobs whose dependencies are set.
func New(deps Jobs, logger *slog.Logger) *Scheduler {
	s := &Scheduler{
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}

	if deps.Clicks != nil && deps.Retention != nil {
		s.jobs = append(s.jobs, &job{name: "click_retention", schedule: RetentionSchedule, run: func(ctx context.Context) error {
			return s.purgeClicks(ctx, deps.Clicks, deps.Retention)
		}})
	}
	if deps.Events != nil {
		s.jobs = append(s.jobs, &job{name: "event_cleanup", schedule: EventsSchedule, run: func(ctx context.Context) error {
			return s.pruneEvents(ctx, deps.Events)
		}})
	}
	if deps.GeoIP != nil && deps.GeoIP.IsEnabled() {
		s.jobs = append(s.jobs, &job{name: "geoip_reload", schedule: GeoIPSchedule, run: func(context.Context) error {
			return deps.GeoIP.Reload()
		}})
	}
	if deps.QR != nil {
		s.jobs = append(s.jobs, &job{name: "qr_backfill", schedule: BackfillSchedule, run: func(ctx context.Context) error {
			n, err := deps.QR.BackfillMissing(ctx, backfillBatch)
			if n > 0 {
				s.logger.Info("qr codes backfilled", "count", n)
			}
			return err
		}})
	}
	return s
}

// Start registers every job with cron and starts it.
func (s *Scheduler) Start() error {
	for _, j := range s.jobs {
		id, err := s.cron.AddFunc(j.schedule, func() {
			if err := s.runJob(j); err != nil {
				s.logger.Error("scheduled job failed", "job", j.name, "error", err)
			}
		})
		if err != nil {
			return fmt.Errorf("scheduling %s: %w", j.name, err)
		}
		j.entryID = id
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Jobs lists the registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobInfo {
	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		info := JobInfo{Name: j.name, Schedule: j.schedule}
		if j.entryID != 0 {
			e := s.cron.Entry(j.entryID)
			info.LastRun = e.Prev
			info.NextRun = e.Next
		}
		out = append(out, info)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

// RunNow runs a job synchronously outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	for _, j := range s.jobs {
		if j.name == name {
			return s.runJob(j)
		}
	}
	return fmt.Errorf("unknown job %q", name)
}

func (s *Scheduler) runJob(j *job) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()
	return j.run(ctx)
}

func (s *Scheduler) purgeClicks(ctx context.Context, clicks ClickPurger, retention RetentionSource) error {
	keep := retention.Retention()
	if keep <= 0 {
		return nil
	}
	n, err := clicks.Purge(ctx, s.now().Add(-keep))
	if err != nil {
		return err
	}
	if n > 0 {
		s.logger.Info("expired clicks purged", "count", n, "retention", keep)
	}
	return nil
}

func (s *Scheduler) pruneEvents(ctx context.Context, events EventPruner) error {
	n, err := events.DeleteEventsBefore(ctx, s.now().Add(-EventRetention))
	if err != nil {
		return fmt.Errorf("deleting old events: %w", err)
	}
	if n > 0 {
		s.logger.Debug("old events deleted", "count", n)
	}
	return nil
}
