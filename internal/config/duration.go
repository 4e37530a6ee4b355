package config

import (
	"fmt"
	"strings"
	"time"
)

// ParseDurationField parses a duration-string config field such as
// store.busy_timeout. An empty value means unset and parses to zero;
// negative durations are rejected outright.
func ParseDurationField(field, value string) (time.Duration, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	switch {
	case err != nil:
		return 0, fmt.Errorf("%s: cannot parse %q as a duration: %w", field, value, err)
	case d < 0:
		return 0, fmt.Errorf("%s: negative duration %q", field, value)
	}
	return d, nil
}

// ParseDurationOrDefault substitutes def when the field is unset or zero.
func ParseDurationOrDefault(field, value string, def time.Duration) (time.Duration, error) {
	d, err := ParseDurationField(field, value)
	if err != nil {
		return 0, err
	}
	if d == 0 {
		return def, nil
	}
	return d, nil
}
