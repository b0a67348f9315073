package domain

import "time"

// SourceStatus describes the freshness of one source inside a snapshot.
type SourceStatus struct {
	Reported   bool      `json:"reported"`
	Stale      bool      `json:"stale"`
	ObservedAt time.Time `json:"observed_at,omitempty"`
	FetchedAt  time.Time `json:"fetched_at,omitempty"`
}

// EngineState is an immutable snapshot of the score engine after one
// recompute. The engine emits one per ingested sample; the alert state
// machine only ever sees these snapshots, never the engine's internals.
type EngineState struct {
	LIS        int       `json:"lis"` // 0-100
	Level      string    `json:"level"`
	ShortFuse  bool      `json:"short_fuse"`
	ComputedAt time.Time `json:"computed_at"`

	// Weighted-composite components, post latitude factor, each 0-100.
	// Zero when the backing source is missing or stale.
	KpComponent    float64 `json:"kp_component"`
	AlertComponent float64 `json:"alert_component"`
	WindComponent  float64 `json:"wind_component"`

	// Raw inputs for message rendering. HaveWind guards Bz/Speed.
	Kp       float64     `json:"kp"`
	Bz       float64     `json:"bz"`
	Speed    float64     `json:"speed"`
	HaveWind bool        `json:"have_wind"`
	Alerts   AlertLevels `json:"alerts"`
	Severity Severity    `json:"-"`

	Sources map[SourceKind]SourceStatus `json:"sources"`
}

// AlertKind names the three notification kinds the state machine can decide.
type AlertKind string

const (
	AlertStartup     AlertKind = "startup"
	AlertDailyReport AlertKind = "daily_report"
	AlertWarning     AlertKind = "warning"
)

// Trigger records why an alert fired.
type Trigger string

const (
	TriggerScheduled         Trigger = "scheduled"
	TriggerThresholdCrossing Trigger = "threshold_crossing"
	TriggerShortFuse         Trigger = "short_fuse"
)

// AlertRecord is one decision made by the alert state machine. Immutable;
// the machine retains only the most recent record per kind for cooldown and
// dedup comparisons.
type AlertRecord struct {
	Kind      AlertKind `json:"kind"`
	Trigger   Trigger   `json:"trigger"`
	Score     int       `json:"score_at_decision"`
	ShortFuse bool      `json:"short_fuse"`
	CreatedAt time.Time `json:"created_at"`
}
