package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
)

// Renderer turns an alert record plus its snapshot into a human-readable
// subject and body. It remembers the previously rendered score to show a
// trend line.
type Renderer struct {
	Threshold      int
	ShortFuseBz    float64
	ShortFuseSpeed float64
	Location       *time.Location

	prevLIS  int
	havePrev bool
}

// Render builds the outbound message for a decided alert.
func (r *Renderer) Render(rec domain.AlertRecord, st domain.EngineState) Notification {
	n := Notification{
		Subject: r.subject(rec, st),
		Body:    r.body(rec, st),
		Record:  rec,
		State:   st,
	}
	r.prevLIS = st.LIS
	r.havePrev = true
	return n
}

func (r *Renderer) subject(rec domain.AlertRecord, st domain.EngineState) string {
	switch rec.Kind {
	case domain.AlertStartup:
		return fmt.Sprintf("Space Weather Startup Baseline: %s (LIS %d)", st.Level, st.LIS)
	case domain.AlertDailyReport:
		day := rec.CreatedAt.In(r.Location).Format("2006-01-02")
		return fmt.Sprintf("Daily Space Weather Outlook — %s", day)
	default:
		return fmt.Sprintf("Space Weather: %s (LIS %d)", st.Level, st.LIS)
	}
}

func (r *Renderer) body(rec domain.AlertRecord, st domain.EngineState) string {
	var b strings.Builder

	local := rec.CreatedAt.In(r.Location).Format("2006-01-02 15:04 MST")
	fmt.Fprintf(&b, "Space Weather Status — %s\n\n", local)
	fmt.Fprintf(&b, "Local Impact Score: %d (%s)\n", st.LIS, st.Level)
	if r.havePrev && st.LIS != r.prevLIS {
		fmt.Fprintf(&b, "Trend: %s (was %d)\n", trendWord(st.LIS-r.prevLIS), r.prevLIS)
	}

	b.WriteString("\nInputs:\n")
	fmt.Fprintf(&b, "  • Kp (max next 24h): %.1f\n", st.Kp)
	if st.HaveWind {
		fmt.Fprintf(&b, "  • L1 Bz: %.1f nT\n", st.Bz)
		fmt.Fprintf(&b, "  • L1 Speed: %.0f km/s\n", st.Speed)
	} else {
		b.WriteString("  • L1 Bz: unavailable\n")
		b.WriteString("  • L1 Speed: unavailable\n")
	}
	fmt.Fprintf(&b, "  • Alerts — G:%d  R:%d  S:%d\n", st.Alerts.G, st.Alerts.R, st.Alerts.S)
	if st.ShortFuse {
		b.WriteString("  • Short-fuse trip-wire: ACTIVE\n")
	}
	for _, kind := range domain.SourceKinds {
		status := st.Sources[kind]
		if status.Reported && status.Stale {
			fmt.Fprintf(&b, "  • Note: %s data is stale\n", kind)
		}
	}

	b.WriteString("\nGuidance:\n")
	fmt.Fprintf(&b, "  • LIS ≥ %d triggers warnings (configurable).\n", r.Threshold)
	fmt.Fprintf(&b, "  • Short-fuse trigger: Bz ≤ %.0f nT & Speed ≥ %.0f km/s (≈15–60 min lead).\n",
		r.ShortFuseBz, r.ShortFuseSpeed)

	return b.String()
}

func trendWord(delta int) string {
	if delta > 0 {
		return "rising"
	}
	return "falling"
}
