package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/webcrawler/backend/internal/config"
	"github.com/webcrawler/backend/pkg/logger"
)

const jobTimeout = time.Minute

// Scheduler runs the periodic maintenance jobs: the token sweep and the
// audit log retention cleanup.
type Scheduler struct {
	cron       *cron.Cron
	tokens     *GormTokenStore
	logs       *SystemLogService
	cfg        config.SchedulerConfig
	now        func() time.Time
	entryNames map[cron.EntryID]string
}

func NewScheduler(cfg config.SchedulerConfig, tokens *GormTokenStore, logs *SystemLogService) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		tokens:     tokens,
		logs:       logs,
		cfg:        cfg,
		now:        time.Now,
		entryNames: make(map[cron.EntryID]string),
	}
}

// Start registers the configured jobs and starts the cron runner. An empty
// schedule disables the corresponding job.
func (s *Scheduler) Start() error {
	if s.cfg.TokenSweep != "" {
		if err := s.add("token_sweep", s.cfg.TokenSweep, s.SweepTokens); err != nil {
			return err
		}
	}
	if s.cfg.LogCleanup != "" && s.cfg.LogRetentionDays > 0 {
		if err := s.add("log_cleanup", s.cfg.LogCleanup, s.CleanupLogs); err != nil {
			return err
		}
	}

	s.cron.Start()
	logger.Info().Int("jobs", len(s.entryNames)).Msg("scheduler started")
	return nil
}

// Stop halts the runner and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info().Msg("scheduler stopped")
}

// Jobs returns the names of the registered jobs.
func (s *Scheduler) Jobs() []string {
	names := make([]string, 0, len(s.entryNames))
	for _, e := range s.cron.Entries() {
		names = append(names, s.entryNames[e.ID])
	}
	return names
}

func (s *Scheduler) add(name, spec string, job func(context.Context)) error {
	id, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		job(ctx)
	})
	if err != nil {
		return fmt.Errorf("schedule %s (%q): %w", name, spec, err)
	}
	s.entryNames[id] = name
	logger.Info().Str("job", name).Str("spec", spec).Msg("job scheduled")
	return nil
}

// SweepTokens expires live records whose refresh token has run out.
func (s *Scheduler) SweepTokens(ctx context.Context) {
	n, err := s.tokens.ExpireStale(ctx, s.now())
	if err != nil {
		logger.Error().Err(err).Msg("token sweep failed")
		return
	}
	sweptTokens.Add(float64(n))
	if n > 0 {
		logger.Info().Int64("expired", n).Msg("token sweep")
	}
}

func (s *Scheduler) CleanupLogs(ctx context.Context) {
	n, err := s.logs.CleanupOldLogs(ctx, s.cfg.LogRetentionDays)
	if err != nil {
		logger.Error().Err(err).Msg("audit log cleanup failed")
		return
	}
	if n > 0 {
		logger.Info().Int64("deleted", n).Int("retention_days", s.cfg.LogRetentionDays).Msg("audit log cleanup")
	}
}
