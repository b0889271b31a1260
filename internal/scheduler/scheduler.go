// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/newsdesk/internal/model"
)

// Default schedules.
const (
	EventRetentionSchedule = "0 3 * * *"
	LoginSweepSchedule     = "*/10 * * * *"
)

// jobTimeout bounds a single run of any job.
const jobTimeout = 5 * time.Minute

// EventPurger removes old event log rows. *service.Events satisfies it.
type EventPurger interface {
	DeleteOld(ctx context.Context, retention time.Duration) (int64, error)
	LogSystem(ctx context.Context, level, message string, metadata map[string]any) error
}

// LoginSweeper drops expired login protection state.
// *middleware.LoginProtection satisfies it.
type LoginSweeper interface {
	Cleanup(ctx context.Context)
}

type job struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	run         func(ctx context.Context) error

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string
	Description string
	Schedule    string
	LastRun     time.Time
	LastError   string
	NextRun     time.Time
}

// Scheduler handles scheduled maintenance tasks.
type Scheduler struct {
	cron   *cron.Cron
	logger *slog.Logger

	mu   sync.RWMutex
	jobs map[string]*job
}

// New creates a new scheduler instance.
func New(logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
		jobs:   make(map[string]*job),
	}
}

// Add registers a job under name with a standard five-field cron schedule.
func (s *Scheduler) Add(name, description, schedule string, run func(ctx context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	j := &job{name: name, description: description, schedule: schedule, run: run}
	id, err := s.cron.AddFunc(schedule, func() { s.execute(j) })
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	j.entryID = id
	s.jobs[name] = j

	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// RegisterMaintenance adds the event retention and login sweep jobs.
func (s *Scheduler) RegisterMaintenance(events EventPurger, retention time.Duration, logins LoginSweeper) error {
	if err := s.Add("event_retention", "Delete events older than the retention period",
		EventRetentionSchedule, func(ctx context.Context) error {
			n, err := events.DeleteOld(ctx, retention)
			if err != nil {
				return err
			}
			if n > 0 {
				s.logger.Info("purged old events", "count", n, "retention", retention)
				_ = events.LogSystem(ctx, model.EventLevelInfo, "Old events purged",
					map[string]any{"count": n, "retention_days": int(retention.Hours() / 24)})
			}
			return nil
		}); err != nil {
		return err
	}

	return s.Add("login_sweep", "Clear expired login failure and lockout state",
		LoginSweepSchedule, func(ctx context.Context) error {
			logins.Cleanup(ctx)
			return nil
		})
}

// Start begins running scheduled jobs.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()))
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.RLock()
	j, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	return s.execute(j)
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]JobInfo, 0, len(s.jobs))
	for _, j := range s.jobs {
		j.mu.Lock()
		info := JobInfo{
			Name:        j.name,
			Description: j.description,
			Schedule:    j.schedule,
			LastRun:     j.lastRun,
			NextRun:     s.cron.Entry(j.entryID).Next,
		}
		if j.lastErr != nil {
			info.LastError = j.lastErr.Error()
		}
		j.mu.Unlock()
		out = append(out, info)
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Name < out[b].Name })
	return out
}

func (s *Scheduler) execute(j *job) error {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	start := time.Now()
	err := j.run(ctx)

	j.mu.Lock()
	j.lastRun = start
	j.lastErr = err
	j.mu.Unlock()

	if err != nil {
		s.logger.Error("scheduled job failed", "job", j.name, "error", err, "duration", time.Since(start))
		return err
	}
	s.logger.Debug("scheduled job finished", "job", j.name, "duration", time.Since(start))
	return nil
}
