package config

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/sosodev/duration"
	"gopkg.in/yaml.v3"
)

// Duration decodes from an ISO-8601 duration ("PT15M", "P1DT2H"), a Go
// duration string ("15m") or a bare number of seconds.
type Duration time.Duration

var errDurationRange = errors.New("duration out of range")

// Std returns the value as a time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// String formats the duration in ISO-8601 form using hours, minutes and
// seconds, e.g. "PT1H30M" or "PT0.5S".
func (d Duration) String() string {
	v := int64(d)
	if v == 0 {
		return "PT0S"
	}

	var b strings.Builder
	var u uint64
	if v < 0 {
		b.WriteByte('-')
		u = uint64(-(v + 1)) + 1
	} else {
		u = uint64(v)
	}
	b.WriteString("PT")

	hours := u / uint64(time.Hour)
	u %= uint64(time.Hour)
	minutes := u / uint64(time.Minute)
	u %= uint64(time.Minute)
	seconds := u / uint64(time.Second)
	nanos := u % uint64(time.Second)

	if hours > 0 {
		fmt.Fprintf(&b, "%dH", hours)
	}
	if minutes > 0 {
		fmt.Fprintf(&b, "%dM", minutes)
	}
	if nanos > 0 {
		frac := strings.TrimRight(fmt.Sprintf("%09d", nanos), "0")
		fmt.Fprintf(&b, "%d.%sS", seconds, frac)
	} else if seconds > 0 {
		fmt.Fprintf(&b, "%dS", seconds)
	}
	return b.String()
}

// ParseDuration parses an ISO-8601 or Go duration string.
func ParseDuration(s string) (Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty duration")
	}
	if trimmed := strings.TrimLeft(s, "+-"); trimmed != "" && (trimmed[0] == 'P' || trimmed[0] == 'p') {
		return parseISODuration(s)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: expected ISO-8601 (PT15M) or Go duration (15m)", s)
	}
	return Duration(d), nil
}

func parseISODuration(s string) (Duration, error) {
	invalid := fmt.Errorf("invalid ISO-8601 duration %q", s)

	norm := strings.ReplaceAll(strings.ToUpper(s), ",", ".")
	negative := false
	switch norm[0] {
	case '-':
		negative = true
		norm = norm[1:]
	case '+':
		norm = norm[1:]
	}
	if !timeBasedISO(norm) {
		return 0, invalid
	}

	iso, err := duration.Parse(norm)
	if err != nil {
		return 0, invalid
	}

	secs := iso.Days*86400 + iso.Hours*3600 + iso.Minutes*60 + iso.Seconds
	if math.IsNaN(secs) || secs >= float64(math.MaxInt64)/float64(time.Second) {
		return 0, fmt.Errorf("invalid ISO-8601 duration %q: %w", s, errDurationRange)
	}
	total := time.Duration(math.Round(secs * float64(time.Second)))
	if negative != iso.Negative {
		total = -total
	}
	return Duration(total), nil
}

// timeBasedISO reports whether s (upper case, unsigned) uses only the day,
// hour, minute and second designators, so calendar units never reach the
// parser. Component signs are not accepted.
func timeBasedISO(s string) bool {
	if len(s) < 2 || s[0] != 'P' {
		return false
	}
	date, clock, hasT := strings.Cut(s[1:], "T")
	if hasT && clock == "" {
		return false
	}
	return designators(date, "D") && designators(clock, "HMS") && (date != "" || clock != "")
}

// designators reports whether part is a run of number+designator pairs
// drawn from allowed.
func designators(part, allowed string) bool {
	digits := false
	for i := 0; i < len(part); i++ {
		c := part[i]
		switch {
		case c >= '0' && c <= '9', c == '.':
			digits = true
		case strings.IndexByte(allowed, c) >= 0 && digits:
			digits = false
		default:
			return false
		}
	}
	return !digits
}

// addScaled returns total + n*unit, failing on int64 overflow.
func addScaled(total, n, unit int64) (int64, error) {
	if n > math.MaxInt64/unit || n < math.MinInt64/unit {
		return 0, errDurationRange
	}
	p := n * unit
	if (p > 0 && total > math.MaxInt64-p) || (p < 0 && total < math.MinInt64-p) {
		return 0, errDurationRange
	}
	return total + p, nil
}

// UnmarshalYAML implements yaml.Unmarshaler. Integer and float scalars are
// read as seconds.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: duration must be a scalar value", node.Line)
	}

	switch node.ShortTag() {
	case "!!int":
		secs, err := strconv.ParseInt(node.Value, 0, 64)
		if err != nil {
			return fmt.Errorf("line %d: invalid duration %q", node.Line, node.Value)
		}
		v, err := addScaled(0, secs, int64(time.Second))
		if err != nil {
			return fmt.Errorf("line %d: %w", node.Line, err)
		}
		*d = Duration(v)
		return nil
	case "!!float":
		var secs float64
		if err := node.Decode(&secs); err != nil {
			return err
		}
		if math.IsNaN(secs) || math.Abs(secs) >= float64(math.MaxInt64)/float64(time.Second) {
			return fmt.Errorf("line %d: %w", node.Line, errDurationRange)
		}
		*d = Duration(secs * float64(time.Second))
		return nil
	}

	parsed, err := ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = parsed
	return nil
}

// MarshalYAML implements yaml.Marshaler.
func (d Duration) MarshalYAML() (any, error) {
	return d.String(), nil
}
