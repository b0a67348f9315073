package score

import "github.com/SoWrongImRight/solarweather-watcher/internal/domain"

// Composite weights. A missing or stale source contributes 0 through its
// component, so the weights always sum to 1 regardless of data completeness.
const (
	kpWeight    = 0.4
	alertWeight = 0.3
	windWeight  = 0.3
)

// Wind-component ramps: Bz contributes linearly from 0 nT down to -20 nT,
// speed from 300 km/s up to 800 km/s. Both saturate, keeping the component
// monotonic in -Bz and in speed and capped at 100.
const (
	windBzSaturation = -20.0
	windSpeedFloor   = 300.0
	windSpeedCeiling = 800.0
)

// kpComponent maps forecast Kp in [0,9] to [0,100].
func kpComponent(kp float64) float64 {
	return clamp01(kp/9) * 100
}

// alertComponent maps the alert-feed severity rank to its fixed score.
func alertComponent(sev domain.Severity) float64 {
	switch sev {
	case domain.SeverityWatch:
		return 40
	case domain.SeverityWarning:
		return 70
	case domain.SeverityExtreme:
		return 100
	default:
		return 0
	}
}

// windComponent maps solar-wind Bz and speed to [0,100]. More-negative Bz
// and higher speed both push it up.
func windComponent(bz, speed float64) float64 {
	bzPart := clamp01(bz / windBzSaturation) // positive Bz clamps to 0
	speedPart := clamp01((speed - windSpeedFloor) / (windSpeedCeiling - windSpeedFloor))
	return (bzPart + speedPart) / 2 * 100
}

// level buckets a LIS into the human-facing label used in reports.
func level(lis int) string {
	switch {
	case lis >= 80:
		return "Severe"
	case lis >= 60:
		return "High"
	case lis >= 40:
		return "Moderate"
	case lis >= 20:
		return "Elevated"
	default:
		return "Low"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
