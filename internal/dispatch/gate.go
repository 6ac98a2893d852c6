package dispatch

import (
	"errors"
	"strings"
	"time"
)

// Diagnostic reasons reported alongside a due decision.
const (
	ReasonNeverDispatched = "never_dispatched"
	ReasonBadTimestamp    = "bad last_dispatch_at"
)

// TimestampLayout is the format written by MarkDispatched.
const TimestampLayout = "2006-01-02T15:04:05Z"

// timestampLayouts are tried in order when reading last_dispatch_at.
// Zone-less layouts are interpreted as UTC, a bare date as its midnight.
// Offsets may be written +hh:mm or +hhmm. Fractional seconds are accepted
// by every layout with a seconds field.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05Z0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Decision is the result of evaluating the dispatch gate.
type Decision struct {
	Due bool `json:"due"`
	// HoursSince is the time since the last dispatch, present only when
	// last_dispatch_at parsed.
	HoursSince *float64 `json:"hours_since,omitempty"`
	Reason     string   `json:"reason,omitempty"`
}

// Evaluate reports whether a dispatch is due at now. A missing or
// unparseable last dispatch time always counts as due.
func Evaluate(now time.Time, s Settings) Decision {
	if s.LastDispatchAt == "" {
		return Decision{Due: true, Reason: ReasonNeverDispatched}
	}

	last, err := ParseTimestamp(s.LastDispatchAt)
	if err != nil {
		return Decision{Due: true, Reason: ReasonBadTimestamp}
	}

	interval := s.IntervalHours
	if interval <= 0 {
		interval = DefaultIntervalHours
	}

	hours := now.Sub(last).Hours()
	return Decision{Due: hours >= interval, HoursSince: &hours}
}

// ParseTimestamp parses an ISO-8601 timestamp as stored in last_dispatch_at.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	var firstErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, raw, time.UTC)
		if err == nil {
			return t.UTC(), nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return time.Time{}, firstErr
}

// FormatTimestamp renders t the way MarkDispatched stores it.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}
