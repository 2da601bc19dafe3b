// Package scheduler runs the background jobs of the ledger service on cron schedules.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Job represents a scheduled job
type Job interface {
	Run(ctx context.Context) error
	Name() string
}

// Scheduler manages background jobs
type Scheduler struct {
	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	log    zerolog.Logger
}

// New creates a new scheduler. Schedules take a leading seconds field.
func New(log zerolog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		ctx:    ctx,
		cancel: cancel,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with cron schedule
// Schedule examples:
//   - "0 */5 * * * *"      - Every 5 minutes
//   - "0 0 */6 * * *"      - Every 6 hours
//   - "@every 30s"         - Every 30 seconds
//
// A run is skipped while the previous run of the same job is still in progress.
func (s *Scheduler) AddJob(schedule string, job Job) error {
	wrapped := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		s.run(job)
	}))

	if _, err := s.cron.AddJob(schedule, wrapped); err != nil {
		return err
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")

	return nil
}

func (s *Scheduler) run(job Job) {
	s.log.Debug().Str("job", job.Name()).Msg("Running job")

	if err := job.Run(s.ctx); err != nil {
		s.log.Error().
			Err(err).
			Str("job", job.Name()).
			Msg("Job failed")
		return
	}
	s.log.Debug().Str("job", job.Name()).Msg("Job completed")
}

// RunNow executes a job immediately (outside schedule)
func (s *Scheduler) RunNow(job Job) error {
	s.log.Info().Str("job", job.Name()).Msg("Running job immediately")
	return job.Run(s.ctx)
}
