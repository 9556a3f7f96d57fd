package sensor

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"github.com/i474232898/meteoradar/internal/observability"
	"github.com/i474232898/meteoradar/internal/radar"
)

// ErrNotReady is returned by CheckReadiness until a first state is published.
var ErrNotReady = errors.New("no sensor state published yet")

// Resolver produces the latest scan of a radar, given the previous result.
type Resolver interface {
	Resolve(ctx context.Context, radarCode string, previous *radar.ResolvedScan) radar.ResolvedScan
}

// Service polls radars and publishes their sensor states.
type Service struct {
	resolver Resolver
	store    Store
	logger   zerolog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock

	mu   sync.RWMutex
	last map[string]radar.ResolvedScan
}

// NewService creates a new Service. metrics may be nil; a nil clock uses real time.
func NewService(resolver Resolver, store Store, logger zerolog.Logger, metrics *observability.Metrics, clock clockwork.Clock) *Service {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Service{
		resolver: resolver,
		store:    store,
		logger:   logger,
		metrics:  metrics,
		clock:    clock,
		last:     make(map[string]radar.ResolvedScan),
	}
}

// Update resolves one radar, writes its state entity and returns the record.
// The previous result for the radar is threaded into the resolver so a failed
// poll still reports the last known image URL.
func (s *Service) Update(ctx context.Context, radarCode string) SensorData {
	var previous *radar.ResolvedScan
	if prev, ok := s.LastResult(radarCode); ok {
		previous = &prev
	}

	start := s.clock.Now()
	res := s.resolver.Resolve(ctx, radarCode, previous)
	elapsed := s.clock.Since(start)

	s.mu.Lock()
	s.last[radarCode] = res
	s.mu.Unlock()

	data := NewSensorData(res)
	s.store.SetState(data.ToState(EntityID(radarCode), s.clock.Now()))
	s.record(radarCode, res, elapsed)

	event := s.logger.Info().Str("radar", radarCode).Bool("success", res.Success)
	if !res.Success {
		event = event.Str("failure", string(res.Failure)).Err(res.Err).Bool("stale", res.Stale())
	}
	event.Msgf("%s update success = %t", radarCode, res.Success)

	return data
}

// UpdateAll updates radars one after another and stops early once ctx is done.
func (s *Service) UpdateAll(ctx context.Context, radarCodes []string) []SensorData {
	out := make([]SensorData, 0, len(radarCodes))
	for _, code := range radarCodes {
		if ctx.Err() != nil {
			s.logger.Warn().Err(ctx.Err()).Str("radar", code).Msg("update cancelled")
			break
		}
		out = append(out, s.Update(ctx, code))
	}
	return out
}

// LastResult returns the most recent resolution of a radar, if any.
func (s *Service) LastResult(radarCode string) (radar.ResolvedScan, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res, ok := s.last[radarCode]
	return res, ok
}

// GetState delegates to the underlying store.
func (s *Service) GetState(radarCode string) (State, error) {
	return s.store.GetState(EntityID(radarCode))
}

// GetHistory delegates to the underlying store.
func (s *Service) GetHistory(radarCode string, from, to time.Time) ([]State, error) {
	return s.store.GetRange(EntityID(radarCode), from, to)
}

// States returns the current state of every published entity.
func (s *Service) States() []State {
	return s.store.List()
}

// CheckReadiness reports ready once at least one state was published.
func (s *Service) CheckReadiness(_ context.Context) error {
	if len(s.store.List()) == 0 {
		return ErrNotReady
	}
	return nil
}

func (s *Service) record(radarCode string, res radar.ResolvedScan, elapsed time.Duration) {
	if s.metrics == nil {
		return
	}

	outcome := "success"
	if !res.Success {
		outcome = string(res.Failure)
	}
	s.metrics.Updates.WithLabelValues(radarCode, outcome).Inc()
	s.metrics.ResolveDuration.WithLabelValues(radarCode).Observe(elapsed.Seconds())

	if res.Success {
		now := s.clock.Now()
		s.metrics.LastSuccess.WithLabelValues(radarCode).Set(float64(now.Unix()))
		s.metrics.ScanAge.WithLabelValues(radarCode).Set(now.Sub(res.ScanTime).Seconds())
	}
}
