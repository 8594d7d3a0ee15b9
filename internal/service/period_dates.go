package service

import (
	"fmt"
	"strings"
	"time"
)

// canonicalDateLayout is the ISO-8601 form the backend stores: UTC with millisecond precision.
const canonicalDateLayout = "2006-01-02T15:04:05.000Z07:00"

var acceptedDateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// parsePeriodDate accepts ISO-8601 timestamps with or without offset as well as plain dates.
// Values without an offset are read as UTC so a plain date keeps its calendar day.
func parsePeriodDate(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range acceptedDateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", raw)
}

// NormalizePeriodDate converts an accepted date representation to the canonical string.
func NormalizePeriodDate(raw string) (string, error) {
	t, err := parsePeriodDate(raw)
	if err != nil {
		return "", err
	}
	return t.Format(canonicalDateLayout), nil
}
