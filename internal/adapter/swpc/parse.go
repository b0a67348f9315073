package swpc

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/SoWrongImRight/solarweather-watcher/internal/domain"
)

// parseLatestValue scans a real-time-solar-wind products array from the end
// and returns the newest usable value under key, with its time tag. The
// feeds publish rows as objects; values arrive as numbers or as strings, and
// trailing rows are sometimes null while the next minute is being written.
func parseLatestValue(body []byte, key string) (float64, time.Time, error) {
	var rows []map[string]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, time.Time{}, fmt.Errorf("decode rows: %w", err)
	}

	for i := len(rows) - 1; i >= 0; i-- {
		raw, ok := rows[i][key]
		if !ok {
			continue
		}
		v, ok := numberOrString(raw)
		if !ok {
			continue
		}

		var observed time.Time
		if tagRaw, ok := rows[i]["time_tag"]; ok {
			var tag string
			if json.Unmarshal(tagRaw, &tag) == nil {
				if t, ok := parseTimeTag(tag); ok {
					observed = t
				}
			}
		}
		return v, observed, nil
	}
	return 0, time.Time{}, fmt.Errorf("no usable %q value in %d rows", key, len(rows))
}

// numberOrString decodes a JSON value that may be 5.1 or "5.1". Decoding
// through pointers keeps the null token out: unmarshalling null into a bare
// float64 silently succeeds as zero, which would read an instrument gap as
// Bz=0 and blind the short-fuse trip-wire.
func numberOrString(raw json.RawMessage) (float64, bool) {
	var n *float64
	if err := json.Unmarshal(raw, &n); err == nil && n != nil {
		return *n, true
	}
	var s *string
	if err := json.Unmarshal(raw, &s); err == nil && s != nil {
		if v, err := strconv.ParseFloat(*s, 64); err == nil {
			return v, true
		}
	}
	return 0, false
}

// scaleRe matches NOAA scale mentions like "G3" in alert message text.
var scaleRe = map[string]*regexp.Regexp{
	"G": regexp.MustCompile(`G([1-5])`),
	"R": regexp.MustCompile(`R([1-5])`),
	"S": regexp.MustCompile(`S([1-5])`),
}

type alertMessage struct {
	IssueDatetime string `json:"issue_datetime"`
	Message       string `json:"message"`
}

// parseAlerts extracts the maximum mentioned level per NOAA scale from the
// alert feed, plus the newest issue time seen. An empty feed is valid and
// means all-quiet.
func parseAlerts(body []byte) (domain.AlertLevels, time.Time, error) {
	var msgs []alertMessage
	if err := json.Unmarshal(body, &msgs); err != nil {
		return domain.AlertLevels{}, time.Time{}, fmt.Errorf("decode alerts: %w", err)
	}

	var levels domain.AlertLevels
	var newest time.Time
	for _, msg := range msgs {
		text := strings.ToUpper(msg.Message)
		levels.G = maxScaleMention(scaleRe["G"], text, levels.G)
		levels.R = maxScaleMention(scaleRe["R"], text, levels.R)
		levels.S = maxScaleMention(scaleRe["S"], text, levels.S)

		if t, ok := parseTimeTag(msg.IssueDatetime); ok && t.After(newest) {
			newest = t
		}
	}
	return levels, newest, nil
}

func maxScaleMention(re *regexp.Regexp, text string, current int) int {
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil && n > current {
			current = n
		}
	}
	return current
}

// parseKpForecast reduces the K-index forecast products table to the maximum
// Kp within [now, now+24h]. The table is an array of string rows with the
// time tag in column 0 and the Kp value in column 2, optionally preceded by
// a header row whose first cell is the literal "time_tag".
func parseKpForecast(body []byte, now time.Time) (float64, error) {
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return 0, fmt.Errorf("decode forecast table: %w", err)
	}

	start := 0
	if len(rows) > 0 && len(rows[0]) > 0 && rows[0][0] == "time_tag" {
		start = 1
	}

	end := now.Add(24 * time.Hour)
	maxKp := 0.0
	usable := 0
	for _, row := range rows[start:] {
		if len(row) < 3 {
			continue
		}
		t, ok := parseTimeTag(row[0])
		if !ok {
			continue
		}
		usable++
		if t.Before(now) || t.After(end) {
			continue
		}
		if kp, err := strconv.ParseFloat(row[2], 64); err == nil && kp > maxKp {
			maxKp = kp
		}
	}
	if usable == 0 {
		return 0, fmt.Errorf("no parseable forecast rows (%d total)", len(rows))
	}
	return maxKp, nil
}
