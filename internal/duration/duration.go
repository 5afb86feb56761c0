// Package duration parses human-readable lookback windows such as "1w" or
// "30d", used to filter run history.
package duration

import (
	"fmt"
	"time"
)

const day = 24 * time.Hour

var units = map[string]time.Duration{
	"m": time.Minute, "min": time.Minute, "mins": time.Minute,
	"h": time.Hour, "hr": time.Hour, "hrs": time.Hour, "hour": time.Hour, "hours": time.Hour,
	"d": day, "day": day, "days": day,
	"w": 7 * day, "wk": 7 * day, "wks": 7 * day, "week": 7 * day, "weeks": 7 * day,
	"mo": 30 * day, "month": 30 * day, "months": 30 * day,
	"y": 365 * day, "yr": 365 * day, "yrs": 365 * day, "year": 365 * day, "years": 365 * day,
}

// Lookback parses s into a window length. Months are 30 days and years 365.
func Lookback(s string) (time.Duration, error) {
	var n int
	var unit string
	if _, err := fmt.Sscanf(s, "%d%s", &n, &unit); err != nil {
		return 0, fmt.Errorf("invalid duration format: %s (use e.g., 1w, 30d, 6mo)", s)
	}
	if n < 0 {
		return 0, fmt.Errorf("duration must not be negative: %s", s)
	}
	d, ok := units[unit]
	if !ok {
		return 0, fmt.Errorf("unknown duration unit: %s", unit)
	}
	return time.Duration(n) * d, nil
}

// Since returns the instant s before now.
func Since(s string, now time.Time) (time.Time, error) {
	d, err := Lookback(s)
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(-d), nil
}

// Parse is Since relative to the current time.
func Parse(s string) (time.Time, error) {
	return Since(s, time.Now())
}
