package notify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/SoWrongImRight/solarweather-watcher/internal/observability"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubChannel struct {
	name     string
	failures int // fail this many leading attempts
	calls    int
	sent     []Notification
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(_ context.Context, n Notification) error {
	s.calls++
	if s.calls <= s.failures {
		return errors.New("boom")
	}
	s.sent = append(s.sent, n)
	return nil
}

func testRenderer(t *testing.T) *Renderer {
	t.Helper()
	tz, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	return &Renderer{
		Threshold:      40,
		ShortFuseBz:    -10,
		ShortFuseSpeed: 600,
		Location:       tz,
	}
}

func testDispatcher(t *testing.T, channels ...Channel) (*Dispatcher, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	d := NewDispatcher(channels, testRenderer(t), clock, slog.Default(), observability.NewMetricsForTesting())
	return d, clock
}

func warningRecord() (domain.AlertRecord, domain.EngineState) {
	st := domain.EngineState{
		LIS:      55,
		Level:    "Moderate",
		Kp:       6.3,
		Bz:       -8.1,
		Speed:    520,
		HaveWind: true,
		Alerts:   domain.AlertLevels{G: 2},
	}
	rec := domain.AlertRecord{
		Kind:      domain.AlertWarning,
		Trigger:   domain.TriggerThresholdCrossing,
		Score:     st.LIS,
		CreatedAt: time.Date(2026, time.March, 2, 17, 0, 0, 0, time.UTC),
	}
	return rec, st
}

// dispatch runs Dispatch in a goroutine and releases the expected number of
// retry backoff sleeps on the fake clock.
func dispatch(t *testing.T, d *Dispatcher, clock *clockwork.FakeClock, sleeps int) {
	t.Helper()
	rec, st := warningRecord()
	done := make(chan struct{})
	go func() {
		defer close(done)
		d.Dispatch(context.Background(), rec, st)
	}()
	for i := 0; i < sleeps; i++ {
		clock.BlockUntil(1)
		clock.Advance(time.Minute)
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("dispatch did not finish")
	}
}

func TestDispatch_FailingChannelDoesNotBlockOthers(t *testing.T) {
	dead := &stubChannel{name: "email", failures: 99}
	live := &stubChannel{name: "sms"}
	d, clock := testDispatcher(t, dead, live)

	dispatch(t, d, clock, 2) // dead channel sleeps twice between its attempts

	assert.Equal(t, maxAttempts, dead.calls)
	assert.Empty(t, dead.sent)
	require.Len(t, live.sent, 1)
}

func TestDispatch_RetrySucceeds(t *testing.T) {
	flaky := &stubChannel{name: "email", failures: 1}
	d, clock := testDispatcher(t, flaky)

	dispatch(t, d, clock, 1)

	assert.Equal(t, 2, flaky.calls)
	require.Len(t, flaky.sent, 1)
}

func TestDispatch_GivesUpAfterMaxAttempts(t *testing.T) {
	dead := &stubChannel{name: "sms", failures: 99}
	d, clock := testDispatcher(t, dead)

	dispatch(t, d, clock, maxAttempts-1)

	assert.Equal(t, maxAttempts, dead.calls)
	assert.Empty(t, dead.sent)
}

func TestRenderer_WarningContent(t *testing.T) {
	r := testRenderer(t)
	rec, st := warningRecord()

	n := r.Render(rec, st)

	assert.Equal(t, "Space Weather: Moderate (LIS 55)", n.Subject)
	assert.Contains(t, n.Body, "Local Impact Score: 55 (Moderate)")
	assert.Contains(t, n.Body, "Kp (max next 24h): 6.3")
	assert.Contains(t, n.Body, "L1 Bz: -8.1 nT")
	assert.Contains(t, n.Body, "L1 Speed: 520 km/s")
	assert.Contains(t, n.Body, "G:2  R:0  S:0")
	assert.Contains(t, n.Body, "LIS ≥ 40 triggers warnings")
	assert.NotContains(t, n.Body, "Short-fuse trip-wire")
	assert.NotContains(t, n.Body, "Trend:", "first render has no previous score")
}

func TestRenderer_TrendAndShortFuse(t *testing.T) {
	r := testRenderer(t)
	rec, st := warningRecord()
	r.Render(rec, st)

	st.LIS = 70
	st.ShortFuse = true
	n := r.Render(rec, st)

	assert.Contains(t, n.Body, "Trend: rising (was 55)")
	assert.Contains(t, n.Body, "Short-fuse trip-wire: ACTIVE")
}

func TestRenderer_SubjectsPerKind(t *testing.T) {
	r := testRenderer(t)
	_, st := warningRecord()
	created := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	startup := r.Render(domain.AlertRecord{Kind: domain.AlertStartup, CreatedAt: created}, st)
	assert.Equal(t, "Space Weather Startup Baseline: Moderate (LIS 55)", startup.Subject)

	daily := r.Render(domain.AlertRecord{Kind: domain.AlertDailyReport, CreatedAt: created}, st)
	assert.Equal(t, "Daily Space Weather Outlook — 2026-03-02", daily.Subject)
}

func TestRenderer_MissingWindShown(t *testing.T) {
	r := testRenderer(t)
	rec, st := warningRecord()
	st.HaveWind = false

	n := r.Render(rec, st)
	assert.Contains(t, n.Body, "L1 Bz: unavailable")
}

func TestTwilioChannel_Send(t *testing.T) {
	var gotAuthSID, gotAuthToken string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuthSID, gotAuthToken, _ = r.BasicAuth()
		require.NoError(t, r.ParseForm())
		gotForm = map[string]string{
			"From": r.PostFormValue("From"),
			"To":   r.PostFormValue("To"),
			"Body": r.PostFormValue("Body"),
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	ch := NewTwilioChannel("AC123", "tok", "+15550001111", "+15552223333", time.Second)
	ch.baseURL = srv.URL

	err := ch.Send(context.Background(), Notification{Subject: "subj", Body: "body"})
	require.NoError(t, err)

	assert.Equal(t, "AC123", gotAuthSID)
	assert.Equal(t, "tok", gotAuthToken)
	assert.Equal(t, "+15550001111", gotForm["From"])
	assert.Equal(t, "+15552223333", gotForm["To"])
	assert.Equal(t, "subj\nbody", gotForm["Body"])
}

func TestTwilioChannel_ErrorClassification(t *testing.T) {
	tests := []struct {
		status int
		want   domain.DispatchErrorKind
	}{
		{http.StatusBadRequest, domain.DispatchRejected},
		{http.StatusUnauthorized, domain.DispatchRejected},
		{http.StatusTooManyRequests, domain.DispatchChannelUnavailable},
		{http.StatusServiceUnavailable, domain.DispatchChannelUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", tt.status)
		}))

		ch := NewTwilioChannel("AC123", "tok", "+1", "+2", time.Second)
		ch.baseURL = srv.URL

		err := ch.Send(context.Background(), Notification{Subject: "s", Body: "b"})
		var de *domain.DispatchError
		require.ErrorAs(t, err, &de, "status %d", tt.status)
		assert.Equal(t, tt.want, de.Kind, "status %d", tt.status)
		srv.Close()
	}
}
