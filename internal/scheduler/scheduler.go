// Package scheduler drives the polling loops and funnels every engine
// update through a single consumer, so scoring, alert decisions and
// dispatch stay strictly ordered.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
)

// Source is one polled telemetry feed.
type Source struct {
	Kind    domain.SourceKind
	Cadence time.Duration
	Fetch   func(ctx context.Context) (domain.Sample, error)
}

// Engine is the scoring side the scheduler feeds.
type Engine interface {
	Ingest(domain.Sample) domain.EngineState
	Snapshot() domain.EngineState
}

// Alerter decides which snapshots deserve a notification.
type Alerter interface {
	Startup(domain.EngineState) *domain.AlertRecord
	EvaluateUpdate(domain.EngineState) *domain.AlertRecord
	DailyTick(domain.EngineState) *domain.AlertRecord
}

// Dispatcher delivers decided alerts. Never returns an error.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec domain.AlertRecord, st domain.EngineState)
}

// Options configures a Scheduler.
type Options struct {
	Sources         []Source
	DailyReportHour int
	Location        *time.Location
}

// Scheduler runs one polling goroutine per source and one consumer. Fetch
// failures back off exponentially per source, capped at ten cadences, and
// never affect the other sources.
type Scheduler struct {
	opts       Options
	engine     Engine
	machine    Alerter
	dispatcher Dispatcher

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	samples chan domain.Sample
	dailyCh chan struct{}
}

// New creates a Scheduler.
func New(opts Options, engine Engine, machine Alerter, dispatcher Dispatcher, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Scheduler {
	return &Scheduler{
		opts:       opts,
		engine:     engine,
		machine:    machine,
		dispatcher: dispatcher,
		clock:      clock,
		logger:     logger,
		metrics:    metrics,
		samples:    make(chan domain.Sample, 16),
		dailyCh:    make(chan struct{}, 1),
	}
}

// Run blocks until ctx is cancelled. The startup baseline goes out first,
// before any source has reported, so subscribers learn the process is up
// even when SWPC is unreachable.
func (s *Scheduler) Run(ctx context.Context) error {
	s.metrics.SchedulerRunning.Set(1)
	defer s.metrics.SchedulerRunning.Set(0)

	baseline := s.engine.Snapshot()
	if rec := s.machine.Startup(baseline); rec != nil {
		s.dispatcher.Dispatch(ctx, *rec, baseline)
	}

	calendar := cron.New(cron.WithLocation(s.opts.Location))
	if _, err := calendar.AddFunc(dailyReportSpec(s.opts.DailyReportHour), s.triggerDailyReport); err != nil {
		return fmt.Errorf("schedule daily report: %w", err)
	}
	calendar.Start()
	defer calendar.Stop()

	var wg sync.WaitGroup
	for _, src := range s.opts.Sources {
		wg.Add(1)
		go func(src Source) {
			defer wg.Done()
			s.poll(ctx, src)
		}(src)
	}

	s.consume(ctx)
	wg.Wait()
	return nil
}

// dailyReportSpec builds the crontab line for the configured report hour.
func dailyReportSpec(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}

// triggerDailyReport wakes the consumer for a daily-report evaluation. The
// push never blocks the cron goroutine; a pending wake is enough, the
// machine's own guard handles duplicates.
func (s *Scheduler) triggerDailyReport() {
	select {
	case s.dailyCh <- struct{}{}:
	default:
	}
}

// consume is the single writer through engine, machine and dispatcher.
func (s *Scheduler) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case sample := <-s.samples:
			st := s.engine.Ingest(sample)
			if rec := s.machine.EvaluateUpdate(st); rec != nil {
				s.dispatcher.Dispatch(ctx, *rec, st)
			}
		case <-s.dailyCh:
			st := s.engine.Snapshot()
			if rec := s.machine.DailyTick(st); rec != nil {
				s.dispatcher.Dispatch(ctx, *rec, st)
			}
		}
	}
}

// poll fetches one source on its cadence. The first fetch happens
// immediately.
func (s *Scheduler) poll(ctx context.Context, src Source) {
	label := string(src.Kind)
	failures := 0

	for {
		sample, err := src.Fetch(ctx)
		delay := src.Cadence
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			delay = backoffDelay(src.Cadence, failures)
			s.observeFailure(label, failures, delay, err)
		} else {
			failures = 0
			s.metrics.FetchAttempts.WithLabelValues(label, "success").Inc()
			s.metrics.ConsecutiveFailures.WithLabelValues(label).Set(0)
			// Block rather than drop: every successful fetch must reach the
			// engine. A backlogged consumer throttles the poller, it does
			// not lose samples.
			select {
			case s.samples <- sample:
			case <-ctx.Done():
				return
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-s.clock.After(delay):
		}
	}
}

func (s *Scheduler) observeFailure(label string, failures int, delay time.Duration, err error) {
	outcome := "error"
	var fe *domain.FetchError
	if errors.As(err, &fe) {
		outcome = string(fe.Kind)
	}
	s.metrics.FetchAttempts.WithLabelValues(label, outcome).Inc()
	s.metrics.ConsecutiveFailures.WithLabelValues(label).Set(float64(failures))

	if fe != nil && fe.Kind == domain.FetchMalformed {
		// Malformed payloads usually mean the upstream schema moved, not a
		// transient outage. Flag them distinctly for operators.
		s.logger.Warn("source payload not understood, possible upstream schema change",
			"source", label,
			"error", err,
		)
		return
	}
	s.logger.Warn("source fetch failed",
		"source", label,
		"consecutive_failures", failures,
		"retry_in", delay,
		"error", err,
	)
}

// backoffDelay doubles the cadence per consecutive failure, capped at ten
// cadences.
func backoffDelay(cadence time.Duration, failures int) time.Duration {
	limit := 10 * cadence
	delay := cadence
	for i := 0; i < failures; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return delay
}
