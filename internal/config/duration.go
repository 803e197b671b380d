package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration so YAML/env-sourced lifetime fields can be
// written as "15m", "7d", "1h" — the design's §6 duration-string grammar
// (Ns/Nm/Nh/Nd) extends time.ParseDuration with a day suffix it doesn't
// natively support.
type Duration time.Duration

// ParseExtendedDuration parses a duration string, additionally accepting
// a bare "Nd" (days) suffix on top of everything time.ParseDuration
// already understands.
func ParseExtendedDuration(s string) (time.Duration, error) {
	if strings.HasSuffix(s, "d") && !strings.HasSuffix(s, "ms") {
		numPart := strings.TrimSuffix(s, "d")
		days, err := strconv.ParseFloat(numPart, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid duration %q: %w", s, err)
		}
		return time.Duration(days * 24 * float64(time.Hour)), nil
	}
	return time.ParseDuration(s)
}

// UnmarshalYAML implements yaml.Unmarshaler so Duration fields accept the
// same string grammar directly out of the config file.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseExtendedDuration(s)
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// Value returns the underlying time.Duration.
func (d Duration) Value() time.Duration { return time.Duration(d) }
