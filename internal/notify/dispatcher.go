// Package notify delivers decided alerts to the configured channels. A
// delivery failure is logged and counted, never propagated: telemetry and
// scoring must keep running even when every channel is down.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/observability"
	"github.com/jonboulle/clockwork"
)

// Notification is one rendered outbound message.
type Notification struct {
	Subject string
	Body    string
	Record  domain.AlertRecord
	State   domain.EngineState
}

// Channel delivers notifications over one medium.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

const (
	maxAttempts  = 3
	retryBackoff = 2 * time.Second // doubled per attempt
)

// Dispatcher fans one alert out to every channel, retrying each channel
// independently so a dead SMS gateway cannot block email.
type Dispatcher struct {
	channels []Channel
	renderer *Renderer
	clock    clockwork.Clock
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewDispatcher creates a Dispatcher over the given channels.
func NewDispatcher(channels []Channel, renderer *Renderer, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		channels: channels,
		renderer: renderer,
		clock:    clock,
		logger:   logger,
		metrics:  metrics,
	}
}

// Dispatch renders the alert once and attempts delivery on every channel.
// It always returns; per-channel outcomes surface only in logs and metrics.
func (d *Dispatcher) Dispatch(ctx context.Context, rec domain.AlertRecord, st domain.EngineState) {
	n := d.renderer.Render(rec, st)

	for _, ch := range d.channels {
		if err := d.sendWithRetry(ctx, ch, n); err != nil {
			d.metrics.DispatchAttempts.WithLabelValues(ch.Name(), "error").Inc()
			d.logger.Error("notification delivery failed",
				"channel", ch.Name(),
				"kind", rec.Kind,
				"error", err,
			)
			continue
		}
		d.metrics.DispatchAttempts.WithLabelValues(ch.Name(), "success").Inc()
		d.logger.Info("notification delivered",
			"channel", ch.Name(),
			"kind", rec.Kind,
			"subject", n.Subject,
		)
	}
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, ch Channel, n Notification) error {
	var err error
	backoff := retryBackoff
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = ch.Send(ctx, n); err == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		d.logger.Warn("notification attempt failed, retrying",
			"channel", ch.Name(),
			"attempt", attempt,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.clock.After(backoff):
		}
		backoff *= 2
	}
	return err
}
