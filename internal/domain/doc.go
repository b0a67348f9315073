// Package domain models NOAA Space Weather Prediction Center (SWPC) telemetry
// and the alert decisions derived from it.
//
// # Data Sources
//
// Three public SWPC JSON endpoints are polled, each on its own cadence:
//
//	Planetary K-index forecast (30m cadence):
//	  https://services.swpc.noaa.gov/products/noaa-planetary-k-index-forecast.json
//	  A table-of-arrays payload. The first row may be a header row whose first
//	  column is "time_tag". Data rows are [time_tag, observed, kp, ...] with
//	  time_tag formatted "2006-01-02 15:04:05" in UTC and kp as a numeric
//	  string. The sample value is the maximum Kp whose time_tag falls within
//	  the next 24 hours.
//
//	Alert feed (5m cadence):
//	  https://services.swpc.noaa.gov/products/alerts.json
//	  An array of objects whose "message" text embeds NOAA scale codes:
//	  G1-G5 (geomagnetic storm), R1-R5 (radio blackout), S1-S5 (solar
//	  radiation storm). Messages are scanned case-insensitively and the
//	  maximum level per scale is kept.
//
//	Real-time solar wind (60s cadence), two endpoints combined into one sample:
//	  https://services.swpc.noaa.gov/json/rtsw/rtsw_mag_1m.json   ("bz_gsm")
//	  https://services.swpc.noaa.gov/json/rtsw/rtsw_speed_1m.json ("speed")
//	  Arrays of per-minute observations, oldest first. Values may be encoded
//	  as JSON numbers or numeric strings; null entries are common during
//	  instrument gaps, so the newest non-null value wins.
//
// # Severity Ranking
//
// The alert feed's per-scale levels collapse into a four-step severity rank
// used by the score engine: no active scale is None, levels 1-2 map to Watch,
// 3-4 to Warning, and 5 to Extreme.
//
// # Freshness
//
// Samples carry both the source-reported observation time and the local fetch
// time. Clock skew between the two is tolerated, never validated. A sample
// older than three times its source cadence is stale: it stays visible for
// observability but contributes no signal to the composite score. The
// short-fuse trip-wire deliberately ignores the staleness bound.
package domain
