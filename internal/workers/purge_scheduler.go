package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/launchkit-dev/launchkit/internal/tasks"
)

// Enqueuer is the subset of *asynq.Client used by schedulers and handlers
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// PurgeScheduler enqueues the expired session purge on a cron schedule
type PurgeScheduler struct {
	client   Enqueuer
	schedule cron.Schedule
	next     time.Time
	logger   zerolog.Logger
}

// NewPurgeScheduler parses a standard 5-field cron expression
// (minute hour day-of-month month day-of-week)
func NewPurgeScheduler(client Enqueuer, cronExpr string, from time.Time, logger zerolog.Logger) (*PurgeScheduler, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronExpr)
	if err != nil {
		return nil, fmt.Errorf("invalid session purge schedule %q: %w", cronExpr, err)
	}

	return &PurgeScheduler{
		client:   client,
		schedule: schedule,
		next:     schedule.Next(from),
		logger:   logger,
	}, nil
}

// Next returns when the next purge is due
func (s *PurgeScheduler) Next() time.Time {
	return s.next
}

// Run checks every minute whether a purge is due, until ctx is done
func (s *PurgeScheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	s.logger.Info().Time("next_purge_at", s.next).Msg("Session purge scheduler started")

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick enqueues the purge task when it is due and reports whether it did
func (s *PurgeScheduler) Tick(now time.Time) bool {
	if now.Before(s.next) {
		s.logger.Debug().Time("next_purge_at", s.next).Msg("Session purge not due yet")
		return false
	}

	// Unique keeps several worker processes from enqueueing the same slot twice
	if _, err := s.client.Enqueue(tasks.NewPurgeExpiredSessionsTask(), asynq.Queue("low"), asynq.Unique(55*time.Second)); err != nil {
		s.logger.Error().Err(err).Msg("Failed to enqueue session purge task")
		return false
	}

	s.next = s.schedule.Next(now)
	s.logger.Info().Time("next_purge_at", s.next).Msg("Session purge task enqueued")
	return true
}
