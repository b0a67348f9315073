//go:build integration

package integration_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/adapter/kafka"
	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/notify"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"
)

const testAlertTopic = "test-spaceweather-alerts"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka launches a single-node Kafka and returns its broker address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()

	container, err := tckafka.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		_ = container.Terminate(context.Background())
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// TestAlertExportRoundTrip publishes an alert through the Publisher and
// verifies a consumer sees the event with its key, headers, and payload
// intact.
func TestAlertExportRoundTrip(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	broker := startKafka(ctx, t)

	publisher := kafka.NewPublisher([]string{broker}, testAlertTopic, discardLogger())
	t.Cleanup(func() { _ = publisher.Close() })

	created := time.Date(2026, time.March, 2, 17, 30, 0, 0, time.UTC)
	notification := notify.Notification{
		Subject: "Space Weather: High (LIS 65)",
		Record: domain.AlertRecord{
			Kind:      domain.AlertWarning,
			Trigger:   domain.TriggerShortFuse,
			Score:     65,
			ShortFuse: true,
			CreatedAt: created,
		},
		State: domain.EngineState{
			LIS:       65,
			Level:     "High",
			ShortFuse: true,
			Kp:        6.7,
			Bz:        -14.2,
			Speed:     710,
			HaveWind:  true,
		},
	}

	// Retry the first write: topic auto-creation can race the initial
	// metadata fetch on a fresh broker.
	var err error
	for attempt := 0; attempt < 5; attempt++ {
		if err = publisher.Send(ctx, notification); err == nil {
			break
		}
		time.Sleep(2 * time.Second)
	}
	require.NoError(t, err, "publish alert event")

	consumer := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:     []string{broker},
		Topic:       testAlertTopic,
		GroupID:     fmt.Sprintf("test-alerts-%d", time.Now().UnixNano()),
		StartOffset: kafkago.FirstOffset,
	})
	t.Cleanup(func() { _ = consumer.Close() })

	readCtx, readCancel := context.WithTimeout(ctx, 30*time.Second)
	defer readCancel()
	msg, err := consumer.ReadMessage(readCtx)
	require.NoError(t, err, "read from alert topic")

	assert.Equal(t, "warning", string(msg.Key))

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "warning", headers["kind"])
	assert.Equal(t, "2026-03-02T17:30:00Z", headers["created_at"])

	var event struct {
		Subject string             `json:"subject"`
		Record  domain.AlertRecord `json:"record"`
		State   domain.EngineState `json:"state"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, notification.Subject, event.Subject)
	assert.Equal(t, domain.TriggerShortFuse, event.Record.Trigger)
	assert.Equal(t, 65, event.Record.Score)
	assert.True(t, event.State.ShortFuse)
	assert.InDelta(t, -14.2, event.State.Bz, 0.0001)
}
