package pipeline

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	isoDatePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	epochDigits   = regexp.MustCompile(`^\d{9,}(\.\d+)?$`)
)

// postedAtLayouts are tried in order. Numeric day/month layouts come last so
// a purely numeric date never reaches a month-name layout.
var postedAtLayouts = []string{
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC1123Z,
	time.RFC1123,
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
	"1/2/2006",
	"2/1/2006",
}

// NormalizePostedAt turns whatever a source reported as the posting date into
// an ISO-8601 string. It falls back to now when nothing can be parsed.
func NormalizePostedAt(v any, now time.Time) string {
	fallback := now.UTC().Format(time.RFC3339)

	switch t := v.(type) {
	case nil, bool:
		return fallback
	case int:
		return fromEpoch(float64(t), fallback)
	case int32:
		return fromEpoch(float64(t), fallback)
	case int64:
		return fromEpoch(float64(t), fallback)
	case float32:
		return fromEpoch(float64(t), fallback)
	case float64:
		return fromEpoch(t, fallback)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return fallback
		}
		return fromEpoch(f, fallback)
	case time.Time:
		if t.IsZero() {
			return fallback
		}
		return t.UTC().Format(time.RFC3339)
	case string:
		return parseDateString(t, fallback)
	default:
		return fallback
	}
}

func parseDateString(raw, fallback string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fallback
	}
	if isoDatePrefix.MatchString(s) {
		return s
	}
	if epochDigits.MatchString(s) {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fallback
		}
		return fromEpoch(f, fallback)
	}
	for _, layout := range postedAtLayouts {
		if tm, err := time.Parse(layout, s); err == nil {
			return tm.UTC().Format(time.RFC3339)
		}
	}
	return fallback
}

// fromEpoch treats magnitudes below 1e12 as seconds and larger ones as
// milliseconds.
func fromEpoch(ts float64, fallback string) string {
	if ts == 0 || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return fallback
	}
	if math.Abs(ts) >= 1e12 {
		ts /= 1000
	}
	sec, frac := math.Modf(ts)
	return time.Unix(int64(sec), int64(frac*1e9)).UTC().Format(time.RFC3339)
}
