// Package swpc fetches and normalizes the NOAA Space Weather Prediction
// Center feeds: real-time solar wind (mag + speed), the alert message feed,
// and the planetary K-index forecast.
package swpc

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/config"
	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
	"github.com/jonboulle/clockwork"
)

// Client talks to the SWPC JSON endpoints. All fetch methods return a
// normalized domain.Sample with FetchedAt stamped from the injected clock.
type Client struct {
	httpClient *http.Client

	kpURL     string
	alertsURL string
	magURL    string
	speedURL  string

	clock  clockwork.Clock
	logger *slog.Logger
}

// NewClient builds a Client from config. The fetch timeout bounds every
// request end to end, including body read.
func NewClient(cfg *config.Config, clock clockwork.Clock, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.FetchTimeout},
		kpURL:      cfg.KpURL,
		alertsURL:  cfg.AlertsURL,
		magURL:     cfg.MagURL,
		speedURL:   cfg.SpeedURL,
		clock:      clock,
		logger:     logger,
	}
}

// FetchSolarWind reads the 1-minute mag and speed feeds and combines the
// newest reading of each into a single sample. ObservedAt is the older of
// the two time tags, so staleness is judged by the weaker feed.
func (c *Client) FetchSolarWind(ctx context.Context) (domain.Sample, error) {
	magBody, err := c.getJSON(ctx, domain.SourceSolarWind, c.magURL)
	if err != nil {
		return domain.Sample{}, err
	}
	bz, bzAt, err := parseLatestValue(magBody, "bz_gsm")
	if err != nil {
		return domain.Sample{}, domain.NewFetchError(domain.FetchMalformed, domain.SourceSolarWind, err)
	}

	speedBody, err := c.getJSON(ctx, domain.SourceSolarWind, c.speedURL)
	if err != nil {
		return domain.Sample{}, err
	}
	speed, speedAt, err := parseLatestValue(speedBody, "speed")
	if err != nil {
		return domain.Sample{}, domain.NewFetchError(domain.FetchMalformed, domain.SourceSolarWind, err)
	}

	observed := bzAt
	if speedAt.Before(observed) {
		observed = speedAt
	}

	return domain.Sample{
		Kind:       domain.SourceSolarWind,
		ObservedAt: observed,
		FetchedAt:  c.clock.Now(),
		SolarWind:  &domain.SolarWind{Bz: bz, Speed: speed},
	}, nil
}

// FetchAlerts reads the alert message feed and extracts the maximum active
// G/R/S scale levels.
func (c *Client) FetchAlerts(ctx context.Context) (domain.Sample, error) {
	body, err := c.getJSON(ctx, domain.SourceAlertFeed, c.alertsURL)
	if err != nil {
		return domain.Sample{}, err
	}
	levels, issued, err := parseAlerts(body)
	if err != nil {
		return domain.Sample{}, domain.NewFetchError(domain.FetchMalformed, domain.SourceAlertFeed, err)
	}
	if issued.IsZero() {
		issued = c.clock.Now()
	}

	return domain.Sample{
		Kind:       domain.SourceAlertFeed,
		ObservedAt: issued,
		FetchedAt:  c.clock.Now(),
		Alerts:     &levels,
	}, nil
}

// FetchKpForecast reads the planetary K-index forecast and reduces it to the
// maximum Kp predicted within the next 24 hours.
func (c *Client) FetchKpForecast(ctx context.Context) (domain.Sample, error) {
	body, err := c.getJSON(ctx, domain.SourceKpForecast, c.kpURL)
	if err != nil {
		return domain.Sample{}, err
	}
	now := c.clock.Now()
	maxKp, err := parseKpForecast(body, now)
	if err != nil {
		return domain.Sample{}, domain.NewFetchError(domain.FetchMalformed, domain.SourceKpForecast, err)
	}

	return domain.Sample{
		Kind:       domain.SourceKpForecast,
		ObservedAt: now,
		FetchedAt:  now,
		Kp:         &domain.KpForecast{MaxKp: maxKp},
	}, nil
}

// getJSON performs a GET and returns the raw body, classifying transport
// failures as network errors and unexpected statuses as protocol errors.
func (c *Client) getJSON(ctx context.Context, source domain.SourceKind, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchNetwork, source, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchNetwork, source, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, domain.NewFetchError(domain.FetchProtocol, source,
			fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewFetchError(domain.FetchNetwork, source, err)
	}
	return body, nil
}

// parseTimeTag accepts the timestamp formats the SWPC feeds use, with and
// without fractional seconds. All are UTC.
func parseTimeTag(s string) (time.Time, bool) {
	layouts := []string{
		"2006-01-02 15:04:05.000",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02T15:04:05",
	}
	for _, layout := range layouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
