// Package score derives the Local Impact Score (LIS) from the latest known
// sample of each telemetry source.
package score

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Options configures an Engine.
type Options struct {
	LatitudeFactor float64
	ShortFuseBz    float64
	ShortFuseSpeed float64

	// Cadences determine per-source staleness bounds (cadence x 3).
	SolarWindInterval  time.Duration
	AlertFeedInterval  time.Duration
	KpForecastInterval time.Duration
}

// Engine owns the latest-known sample per source and recomputes the LIS on
// every ingest. It is the single writer of engine state: Ingest is
// serialized by an internal mutex, and callers only ever see immutable
// snapshots. State is rebuilt from nothing on restart.
type Engine struct {
	mu     sync.Mutex
	latest map[domain.SourceKind]domain.Sample

	staleness map[domain.SourceKind]time.Duration
	opts      Options

	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an empty Engine.
func NewEngine(opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		latest: make(map[domain.SourceKind]domain.Sample, len(domain.SourceKinds)),
		staleness: map[domain.SourceKind]time.Duration{
			domain.SourceSolarWind:  3 * opts.SolarWindInterval,
			domain.SourceAlertFeed:  3 * opts.AlertFeedInterval,
			domain.SourceKpForecast: 3 * opts.KpForecastInterval,
		},
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Ingest replaces the latest sample for the sample's source and returns the
// recomputed snapshot. Every update is forwarded; debouncing is the alert
// state machine's job.
func (e *Engine) Ingest(sample domain.Sample) domain.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.latest[sample.Kind] = sample
	e.metrics.SamplesIngested.WithLabelValues(string(sample.Kind)).Inc()

	st := e.computeLocked()
	e.logger.Debug("engine state recomputed",
		"source", sample.Kind,
		"lis", st.LIS,
		"level", st.Level,
		"short_fuse", st.ShortFuse,
	)
	return st
}

// Snapshot recomputes from the current samples without ingesting anything.
// Used for the startup baseline and the daily report.
func (e *Engine) Snapshot() domain.EngineState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.computeLocked()
}

// CheckReadiness reports nil once every telemetry source has delivered at
// least one sample.
func (e *Engine) CheckReadiness(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, kind := range domain.SourceKinds {
		if _, ok := e.latest[kind]; !ok {
			return fmt.Errorf("source %s has not reported yet", kind)
		}
	}
	return nil
}

func (e *Engine) computeLocked() domain.EngineState {
	now := e.clock.Now()
	st := domain.EngineState{
		ComputedAt: now,
		Sources:    make(map[domain.SourceKind]domain.SourceStatus, len(domain.SourceKinds)),
	}

	for _, kind := range domain.SourceKinds {
		sample, ok := e.latest[kind]
		status := domain.SourceStatus{Reported: ok}
		if ok {
			status.ObservedAt = sample.ObservedAt
			status.FetchedAt = sample.FetchedAt
			status.Stale = now.Sub(sample.FetchedAt) > e.staleness[kind]
		}
		st.Sources[kind] = status
	}

	// Each component is 0 (neutral, no signal) when its source is missing
	// or stale. The latitude factor scales kp and wind before weighting.
	if s, ok := e.fresh(domain.SourceKpForecast, now); ok {
		st.Kp = s.Kp.MaxKp
		st.KpComponent = kpComponent(s.Kp.MaxKp) * e.opts.LatitudeFactor
	}
	if s, ok := e.fresh(domain.SourceAlertFeed, now); ok {
		st.Alerts = *s.Alerts
		st.Severity = s.Alerts.Severity()
		st.AlertComponent = alertComponent(st.Severity)
	}
	if s, ok := e.fresh(domain.SourceSolarWind, now); ok {
		st.WindComponent = windComponent(s.SolarWind.Bz, s.SolarWind.Speed) * e.opts.LatitudeFactor
	}

	// The short fuse and the rendered wind inputs come from the latest
	// solar-wind sample even when it is stale: a shock can be locally
	// severe before the slower feeds catch up.
	if wind, ok := e.latest[domain.SourceSolarWind]; ok {
		st.HaveWind = true
		st.Bz = wind.SolarWind.Bz
		st.Speed = wind.SolarWind.Speed
		st.ShortFuse = wind.SolarWind.Bz <= e.opts.ShortFuseBz &&
			wind.SolarWind.Speed >= e.opts.ShortFuseSpeed
	}

	lis := kpWeight*st.KpComponent + alertWeight*st.AlertComponent + windWeight*st.WindComponent
	st.LIS = int(math.Round(lis))
	if st.LIS < 0 {
		st.LIS = 0
	}
	if st.LIS > 100 {
		st.LIS = 100
	}
	st.Level = level(st.LIS)

	e.observe(st)
	return st
}

// fresh returns the latest sample for a kind only when present and within
// its staleness bound.
func (e *Engine) fresh(kind domain.SourceKind, now time.Time) (domain.Sample, bool) {
	s, ok := e.latest[kind]
	if !ok || now.Sub(s.FetchedAt) > e.staleness[kind] {
		return domain.Sample{}, false
	}
	return s, true
}

func (e *Engine) observe(st domain.EngineState) {
	e.metrics.CurrentLIS.Set(float64(st.LIS))
	if st.ShortFuse {
		e.metrics.ShortFuseActive.Set(1)
	} else {
		e.metrics.ShortFuseActive.Set(0)
	}
	for kind, status := range st.Sources {
		v := 0.0
		if status.Reported && status.Stale {
			v = 1
		}
		e.metrics.StaleSource.WithLabelValues(string(kind)).Set(v)
	}
}
