package modlog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	Week = 7 * 24 * time.Hour
	Day  = 24 * time.Hour

	// durations this long or longer are treated as permanent
	maxDuration = 5 * 365 * Day
)

// ErrInvalidDuration is returned by ParseDuration for unparseable input
var ErrInvalidDuration = errors.New("invalid duration")

var durationPattern = regexp.MustCompile(`^(?:(\d+)w)?(?:(\d+)d)?(?:(\d+)h)?(?:(\d+)m)?(?:(\d+)s)?`)

var durationUnits = []time.Duration{Week, Day, time.Hour, time.Minute, time.Second}

// ParseDuration parses strings like "1w2d", "3h" or "90s". "perm" and
// "permanent" return nil, as does anything of five years or more.
func ParseDuration(s string) (*time.Duration, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "perm", "permanent":
		return nil, nil
	}

	match := durationPattern.FindStringSubmatch(s)
	if match == nil || match[0] == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
	}

	var total time.Duration
	for i, unit := range durationUnits {
		if match[i+1] == "" {
			continue
		}
		n, err := strconv.ParseInt(match[i+1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", ErrInvalidDuration, s)
		}
		if n > int64(maxDuration/unit) {
			return nil, nil
		}
		total += time.Duration(n) * unit
		if total >= maxDuration {
			return nil, nil
		}
	}
	return &total, nil
}

// ExactDuration renders every non-zero unit, e.g. "1 week, 2 days, 3 hours"
func ExactDuration(d time.Duration) string {
	parts := make([]string, 0, len(durationUnits))
	for _, unit := range durationUnits {
		if d < unit {
			continue
		}
		n := int64(d / unit)
		d -= time.Duration(n) * unit
		name := unitName(unit)
		if n > 1 {
			name += "s"
		}
		parts = append(parts, fmt.Sprintf("%d %s", n, name))
	}
	return strings.Join(parts, ", ")
}

// ApproximateDuration renders only the largest unit, e.g. "3 days"
func ApproximateDuration(d time.Duration) string {
	unit := time.Second
	for _, u := range durationUnits {
		if d >= u {
			unit = u
			break
		}
	}
	n := int64(d / unit)
	name := unitName(unit)
	if n != 1 {
		name += "s"
	}
	return fmt.Sprintf("%d %s", n, name)
}

// DurationText renders d for a modlog line, "permanent" when nil
func DurationText(d *time.Duration) string {
	if d == nil || *d <= 0 {
		return "permanent"
	}
	return ExactDuration(*d)
}

func unitName(unit time.Duration) string {
	switch unit {
	case Week:
		return "week"
	case Day:
		return "day"
	case time.Hour:
		return "hour"
	case time.Minute:
		return "minute"
	}
	return "second"
}
