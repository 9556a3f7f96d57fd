package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/rs/zerolog"
)

// Repeater runs a callback on a fixed interval, starting right away.
type Repeater interface {
	ScheduleRepeating(interval time.Duration, callback func()) error
}

// CronRepeater runs a callback on a cron schedule.
type CronRepeater interface {
	ScheduleCron(expr string, callback func()) error
}

// Scheduler is a gocron-backed Repeater. Every job runs in singleton mode, so
// a slow tick delays the next one instead of overlapping it.
type Scheduler struct {
	scheduler *gocron.Scheduler
	logger    zerolog.Logger
}

// New creates a new Scheduler.
func New(logger zerolog.Logger) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	return &Scheduler{
		scheduler: s,
		logger:    logger,
	}
}

// ScheduleRepeating registers callback to run now and then every interval.
func (s *Scheduler) ScheduleRepeating(interval time.Duration, callback func()) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %s", interval)
	}
	if _, err := s.scheduler.Every(interval).Do(callback); err != nil {
		return fmt.Errorf("scheduler: every %s: %w", interval, err)
	}
	s.logger.Info().Dur("interval", interval).Msg("scheduler: repeating job registered")
	return nil
}

// ScheduleCron registers callback to run now and then on the cron expression.
func (s *Scheduler) ScheduleCron(expr string, callback func()) error {
	if _, err := s.scheduler.Cron(expr).StartImmediately().Do(callback); err != nil {
		return fmt.Errorf("scheduler: cron %q: %w", expr, err)
	}
	s.logger.Info().Str("cron", expr).Msg("scheduler: cron job registered")
	return nil
}

// Start starts the underlying scheduler without blocking.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
