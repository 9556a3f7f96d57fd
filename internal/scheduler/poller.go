package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/i474232898/meteoradar/internal/sensor"
)

// Updater refreshes the sensor state of a set of radars.
type Updater interface {
	UpdateAll(ctx context.Context, radarCodes []string) []sensor.SensorData
}

// Poller periodically refreshes the sensors of the configured radars.
type Poller struct {
	updater Updater
	radars  []string
	timeout time.Duration
	logger  zerolog.Logger
}

// NewPoller creates a Poller. timeout bounds the work done for one radar
// within a tick.
func NewPoller(updater Updater, radars []string, timeout time.Duration, logger zerolog.Logger) *Poller {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Poller{
		updater: updater,
		radars:  radars,
		timeout: timeout,
		logger:  logger,
	}
}

// Register schedules the poll on a fixed interval.
func (p *Poller) Register(r Repeater, interval time.Duration) error {
	if len(p.radars) == 0 {
		p.logger.Warn().Msg("scheduler: no radars configured; nothing to schedule")
		return nil
	}
	return r.ScheduleRepeating(interval, p.Tick)
}

// RegisterCron schedules the poll on a cron expression.
func (p *Poller) RegisterCron(r CronRepeater, expr string) error {
	if len(p.radars) == 0 {
		p.logger.Warn().Msg("scheduler: no radars configured; nothing to schedule")
		return nil
	}
	return r.ScheduleCron(expr, p.Tick)
}

// Tick runs one poll of every radar, one after another.
func (p *Poller) Tick() {
	logger := p.logger.With().Str("run_id", uuid.NewString()).Logger()
	logger.Debug().Strs("radars", p.radars).Msg("scheduler: running radar poll")

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout*time.Duration(len(p.radars)))
	defer cancel()

	results := p.updater.UpdateAll(ctx, p.radars)

	failed := 0
	for _, r := range results {
		if !r.Data.Success {
			failed++
		}
	}
	logger.Debug().Int("updated", len(results)).Int("failed", failed).Msg("scheduler: completed radar poll")
}
