// Package duration parses and formats the compact lifetime strings used in
// configuration ("500ms", "90s", "2h", "1.5d").
package duration

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var pattern = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)(ms|s|m|h|d)?$`)

var unitMillis = map[string]float64{
	"ms": 1,
	"s":  1000,
	"m":  60_000,
	"h":  3_600_000,
	"d":  86_400_000,
}

// Parse returns the number of whole milliseconds described by value.
// A missing unit means milliseconds. ok is false for anything that does
// not match the grammar, including the empty string.
func Parse(value string) (millis int64, ok bool) {
	match := pattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return 0, false
	}

	num, err := strconv.ParseFloat(match[1], 64)
	if err != nil {
		return 0, false
	}

	unit := strings.ToLower(match[2])
	if unit == "" {
		unit = "ms"
	}

	return int64(math.Floor(num * unitMillis[unit])), true
}

// ParseOr is Parse with a fallback for unparseable input.
func ParseOr(value string, fallback time.Duration) time.Duration {
	millis, ok := Parse(value)
	if !ok {
		return fallback
	}
	return time.Duration(millis) * time.Millisecond
}

// Format renders d in the largest sensible unit. Days are only used when
// d is a whole number of days.
func Format(d time.Duration) string {
	ms := d.Milliseconds()
	switch {
	case ms >= 86_400_000 && ms%86_400_000 == 0:
		return fmt.Sprintf("%dd", ms/86_400_000)
	case ms >= 3_600_000:
		return fmt.Sprintf("%dh", roundDiv(ms, 3_600_000))
	case ms >= 60_000:
		return fmt.Sprintf("%dm", roundDiv(ms, 60_000))
	case ms >= 1000:
		return fmt.Sprintf("%ds", roundDiv(ms, 1000))
	default:
		return fmt.Sprintf("%dms", ms)
	}
}

func roundDiv(n, unit int64) int64 {
	return int64(math.Round(float64(n) / float64(unit)))
}
