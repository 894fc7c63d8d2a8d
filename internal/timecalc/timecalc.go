package timecalc

import (
	"fmt"
	"strconv"
	"time"
)

// DateStampLayout is the fixed-width YYYYMMDD layout used by dated headings.
const DateStampLayout = "20060102"

// DayLayout is the YYYY-MM-DD layout used by REST query parameters.
const DayLayout = "2006-01-02"

// DateStamp formats t as YYYYMMDD.
func DateStamp(t time.Time) string {
	return t.Format(DateStampLayout)
}

// ParseDateStamp parses a YYYYMMDD string as midnight in loc. Strings that
// are 8 digits but not a real calendar date (e.g. 20240231) are rejected.
func ParseDateStamp(s string, loc *time.Location) (time.Time, error) {
	t, err := time.ParseInLocation(DateStampLayout, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date stamp %q: %w", s, err)
	}
	return t, nil
}

// StartOfDay returns 00:00:00 of the same day.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysAgo returns midnight of the day n calendar days before t.
func DaysAgo(t time.Time, n int) time.Time {
	return StartOfDay(t).AddDate(0, 0, -n)
}

// LookbackRange returns [midnight n days ago, midnight tomorrow), the range
// covering the last n days plus today.
func LookbackRange(t time.Time, days int) (time.Time, time.Time) {
	return DaysAgo(t, days), StartOfDay(t).AddDate(0, 0, 1)
}

// RoundHours converts seconds to hours rounded to two decimals. The exact
// binary value is rounded half to even, so 450s (0.125h) gives 0.12.
func RoundHours(seconds int64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(float64(seconds)/3600, 'f', 2, 64), 64)
	return v
}

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}
