package domain

import "time"

// SourceKind identifies one of the polled SWPC telemetry sources.
type SourceKind string

const (
	SourceSolarWind  SourceKind = "solar_wind"
	SourceAlertFeed  SourceKind = "alert_feed"
	SourceKpForecast SourceKind = "kp_forecast"
)

// SourceKinds lists every telemetry source in a stable order.
var SourceKinds = []SourceKind{SourceSolarWind, SourceAlertFeed, SourceKpForecast}

// SolarWind holds the latest L1 real-time solar wind reading.
type SolarWind struct {
	Bz    float64 `json:"bz_nt"`     // GSM Bz in nanotesla, negative = southward
	Speed float64 `json:"speed_kms"` // bulk speed in km/s
}

// AlertLevels holds the maximum active NOAA scale level per category as
// extracted from the SWPC alert feed.
type AlertLevels struct {
	G int `json:"g"` // geomagnetic storm, 0-5
	R int `json:"r"` // radio blackout, 0-5
	S int `json:"s"` // solar radiation storm, 0-5
}

// MaxScale returns the highest level across the three scales.
func (a AlertLevels) MaxScale() int {
	m := a.G
	if a.R > m {
		m = a.R
	}
	if a.S > m {
		m = a.S
	}
	return m
}

// Severity ranks the alert feed into the four steps the score engine uses.
type Severity int

const (
	SeverityNone Severity = iota
	SeverityWatch
	SeverityWarning
	SeverityExtreme
)

func (s Severity) String() string {
	switch s {
	case SeverityWatch:
		return "watch"
	case SeverityWarning:
		return "warning"
	case SeverityExtreme:
		return "extreme"
	default:
		return "none"
	}
}

// Severity collapses the per-scale levels into a severity rank.
func (a AlertLevels) Severity() Severity {
	switch m := a.MaxScale(); {
	case m >= 5:
		return SeverityExtreme
	case m >= 3:
		return SeverityWarning
	case m >= 1:
		return SeverityWatch
	default:
		return SeverityNone
	}
}

// KpForecast holds the maximum forecast planetary K-index over the next 24h.
type KpForecast struct {
	MaxKp float64 `json:"max_kp"` // 0-9
}

// Sample is one normalized reading from a telemetry source. Exactly one of
// the payload pointers is set, matching Kind. A Sample is immutable once
// constructed; ownership passes to the score engine until superseded.
type Sample struct {
	Kind       SourceKind `json:"kind"`
	ObservedAt time.Time  `json:"observed_at"` // source-reported
	FetchedAt  time.Time  `json:"fetched_at"`  // local

	SolarWind *SolarWind   `json:"solar_wind,omitempty"`
	Alerts    *AlertLevels `json:"alerts,omitempty"`
	Kp        *KpForecast  `json:"kp,omitempty"`
}
