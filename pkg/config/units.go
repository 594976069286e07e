package config

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support extended units (d, w) in YAML.
type Duration time.Duration

// Common durations.
const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	dur, err := ParseDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(dur)
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

var segmentRe = regexp.MustCompile(`(\d+(?:\.\d+)?)([a-zµ]+)`)

// ParseDuration parses a duration string, supporting d (day) and w (week)
// on top of the standard time.ParseDuration units.
func ParseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	if !strings.ContainsAny(s, "dw") {
		return time.ParseDuration(s)
	}

	var total time.Duration
	matched := 0
	for _, seg := range segmentRe.FindAllStringSubmatch(s, -1) {
		matched += len(seg[0])
		val, err := strconv.ParseFloat(seg[1], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		switch seg[2] {
		case "d":
			total += time.Duration(val * float64(Day))
		case "w":
			total += time.Duration(val * float64(Week))
		default:
			part, err := time.ParseDuration(seg[0])
			if err != nil {
				return 0, fmt.Errorf("invalid duration %q: %w", s, err)
			}
			total += part
		}
	}
	if matched != len(s) {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return total, nil
}
