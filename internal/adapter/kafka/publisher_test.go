package kafka

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessage(t *testing.T) {
	created := time.Date(2026, time.March, 2, 17, 30, 0, 0, time.UTC)
	n := notify.Notification{
		Subject: "Space Weather: High (LIS 65)",
		Record: domain.AlertRecord{
			Kind:      domain.AlertWarning,
			Trigger:   domain.TriggerShortFuse,
			Score:     65,
			ShortFuse: true,
			CreatedAt: created,
		},
		State: domain.EngineState{LIS: 65, Level: "High", ShortFuse: true},
	}

	msg, err := newMessage(n)
	require.NoError(t, err)

	assert.Equal(t, []byte("warning"), msg.Key)

	headers := make(map[string]string, len(msg.Headers))
	for _, h := range msg.Headers {
		headers[h.Key] = string(h.Value)
	}
	assert.Equal(t, "warning", headers["kind"])
	assert.Equal(t, "2026-03-02T17:30:00Z", headers["created_at"])

	var event alertEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.Equal(t, n.Subject, event.Subject)
	assert.Equal(t, domain.TriggerShortFuse, event.Record.Trigger)
	assert.Equal(t, 65, event.State.LIS)
	assert.True(t, event.State.ShortFuse)
}
