// Package kafka exports decided alerts to a Kafka topic so downstream
// consumers (dashboards, pagers, archival jobs) can react without being
// wired into the watcher itself.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/notify"
	kafkago "github.com/segmentio/kafka-go"
)

// Publisher is a notify.Channel that writes one JSON event per alert.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{
		writer: &kafkago.Writer{
			Addr:                   kafkago.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafkago.LeastBytes{},
			RequiredAcks:           kafkago.RequireAll,
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func (p *Publisher) Name() string { return "kafka" }

// Send publishes the alert event. Keyed by alert kind so consumers see each
// kind's decisions in order.
func (p *Publisher) Send(ctx context.Context, n notify.Notification) error {
	msg, err := newMessage(n)
	if err != nil {
		return domain.NewDispatchError(domain.DispatchRejected, p.Name(), err)
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		kind := domain.DispatchChannelUnavailable
		if errors.Is(err, context.DeadlineExceeded) {
			kind = domain.DispatchTimeout
		}
		return domain.NewDispatchError(kind, p.Name(), err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error { return p.writer.Close() }

// alertEvent is the wire shape of one exported alert.
type alertEvent struct {
	Subject string             `json:"subject"`
	Record  domain.AlertRecord `json:"record"`
	State   domain.EngineState `json:"state"`
}

func newMessage(n notify.Notification) (kafkago.Message, error) {
	value, err := json.Marshal(alertEvent{
		Subject: n.Subject,
		Record:  n.Record,
		State:   n.State,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("encode alert event: %w", err)
	}

	return kafkago.Message{
		Key:   []byte(n.Record.Kind),
		Value: value,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(n.Record.Kind)},
			{Key: "created_at", Value: []byte(n.Record.CreatedAt.UTC().Format(time.RFC3339))},
		},
	}, nil
}
