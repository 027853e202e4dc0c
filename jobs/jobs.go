// Package jobs runs the periodic maintenance tasks.
package jobs

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"blogpress/cache"
)

// CacheSweepJob drops expired pages from the cache store.
type CacheSweepJob struct {
	store cache.Store
}

func NewCacheSweepJob(store cache.Store) *CacheSweepJob {
	return &CacheSweepJob{store: store}
}

func (j *CacheSweepJob) Run() {
	removed, err := j.store.Sweep(context.Background())
	if err != nil {
		slog.Error("cache sweep failed", "err", err)
		return
	}
	if removed > 0 {
		slog.Info("cache sweep finished", "removed", removed)
	}
}

type Manager struct {
	engine *cron.Cron
}

func NewManager() *Manager {
	return &Manager{engine: cron.New(cron.WithSeconds())}
}

// Register schedules job at schedule. An empty schedule leaves the job disabled.
func (m *Manager) Register(schedule string, job cron.Job) error {
	if schedule == "" {
		return nil
	}
	if _, err := m.engine.AddJob(schedule, job); err != nil {
		return errors.Wrapf(err, "schedule job at %q", schedule)
	}
	return nil
}

func (m *Manager) Entries() int {
	return len(m.engine.Entries())
}

func (m *Manager) Start() {
	slog.Info("cron engine starting", "jobs", m.Entries())
	m.engine.Start()
}

// Stop waits for running jobs to finish.
func (m *Manager) Stop() {
	<-m.engine.Stop().Done()
	slog.Info("cron engine stopped")
}
