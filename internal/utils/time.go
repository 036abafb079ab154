package utils

import (
	"regexp"
	"strings"
	"time"
)

const (
	layoutDate = "2006-01-02"
	layoutHM   = "15:04"
)

var hhmmPattern = regexp.MustCompile(`^(\d{2}):(\d{2})(:\d{2})?$`)

// ParseDate parses YYYY-MM-DD in local timezone.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(layoutDate, strings.TrimSpace(s), time.Local)
}

// FormatDate formats time to YYYY-MM-DD in local timezone.
func FormatDate(t time.Time) string {
	return t.In(time.Local).Format(layoutDate)
}

// NormalizeTimeHM accepts HH:MM or HH:MM:SS (as MySQL returns TIME columns) and returns HH:MM.
func NormalizeTimeHM(s string) (string, bool) {
	s = strings.TrimSpace(s)
	m := hhmmPattern.FindStringSubmatch(s)
	if m == nil {
		return "", false
	}
	hm := m[1] + ":" + m[2]
	if _, err := time.Parse(layoutHM, hm); err != nil {
		return "", false
	}
	return hm, true
}

// WholeDaysUntil counts full days from now until the local midnight of date,
// truncated toward zero. Negative when the date has passed.
func WholeDaysUntil(now, date time.Time) int {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.Local)
	return int(start.Sub(now).Hours() / 24)
}
