// Package alert decides when a notification is owed. The Machine consumes
// engine snapshots and emits AlertRecords; it performs no I/O and keeps no
// state beyond what dedup and cooldown require, so a restart simply re-arms
// the startup notice and the daily report.
package alert

import (
	"log/slog"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Options configures a Machine.
type Options struct {
	Threshold       int // warning fires at LIS >= Threshold
	WarningCooldown time.Duration
	DailyReportHour int
	Location        *time.Location
}

// Machine is the alert state machine. Not safe for concurrent use; the
// scheduler calls it from a single consumer goroutine.
type Machine struct {
	opts    Options
	clock   clockwork.Clock
	logger  *slog.Logger
	metrics *observability.Metrics

	startupSent bool

	// lastDaily is the local calendar day (truncated to midnight) of the
	// last daily report, zero before the first one.
	lastDaily time.Time

	// Warning cooldown state. lastTrigger distinguishes a short-fuse send
	// from a threshold send so escalation can bypass the window once.
	lastWarningAt time.Time
	lastTrigger   domain.Trigger
}

// NewMachine creates a Machine with nothing sent yet.
func NewMachine(opts Options, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Machine {
	return &Machine{
		opts:    opts,
		clock:   clock,
		logger:  logger,
		metrics: metrics,
	}
}

// Startup returns the one-time startup record, or nil if it was already
// produced this process lifetime.
func (m *Machine) Startup(st domain.EngineState) *domain.AlertRecord {
	if m.startupSent {
		return nil
	}
	m.startupSent = true
	return m.record(domain.AlertStartup, domain.TriggerScheduled, st)
}

// DailyTick produces the daily report if none has gone out this local
// calendar day and the configured hour has been reached. Safe to call on
// every cron wake; extra calls are no-ops.
func (m *Machine) DailyTick(st domain.EngineState) *domain.AlertRecord {
	now := m.clock.Now().In(m.opts.Location)
	if now.Hour() < m.opts.DailyReportHour {
		return nil
	}
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, m.opts.Location)
	if day.Equal(m.lastDaily) {
		return nil
	}
	m.lastDaily = day
	return m.record(domain.AlertDailyReport, domain.TriggerScheduled, st)
}

// EvaluateUpdate inspects a fresh snapshot and returns a warning record when
// one is owed. The cooldown suppresses repeats; a short-fuse snapshot
// escalates past a cooldown that was started by a plain threshold crossing,
// never the other way around.
func (m *Machine) EvaluateUpdate(st domain.EngineState) *domain.AlertRecord {
	if st.LIS < m.opts.Threshold && !st.ShortFuse {
		return nil
	}

	trigger := domain.TriggerThresholdCrossing
	if st.ShortFuse {
		trigger = domain.TriggerShortFuse
	}

	if m.cooling() {
		escalation := trigger == domain.TriggerShortFuse && m.lastTrigger != domain.TriggerShortFuse
		if !escalation {
			m.logger.Debug("warning suppressed by cooldown",
				"lis", st.LIS,
				"trigger", trigger,
				"last_sent", m.lastWarningAt,
			)
			return nil
		}
	}

	m.lastWarningAt = m.clock.Now()
	m.lastTrigger = trigger
	return m.record(domain.AlertWarning, trigger, st)
}

func (m *Machine) cooling() bool {
	if m.lastWarningAt.IsZero() {
		return false
	}
	return m.clock.Now().Sub(m.lastWarningAt) < m.opts.WarningCooldown
}

func (m *Machine) record(kind domain.AlertKind, trigger domain.Trigger, st domain.EngineState) *domain.AlertRecord {
	rec := &domain.AlertRecord{
		Kind:      kind,
		Trigger:   trigger,
		Score:     st.LIS,
		ShortFuse: st.ShortFuse,
		CreatedAt: m.clock.Now(),
	}
	m.metrics.AlertsDecided.WithLabelValues(string(kind), string(trigger)).Inc()
	m.logger.Info("alert decided",
		"kind", kind,
		"trigger", trigger,
		"lis", st.LIS,
		"short_fuse", st.ShortFuse,
	)
	return rec
}
