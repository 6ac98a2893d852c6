package dispatch

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/nate007-quant/mission-control/internal/domain"
)

// DefaultIntervalHours applies when the stored interval is missing or invalid.
const DefaultIntervalHours = 12.0

// ErrInvalidInterval is returned when an interval is not a finite number
// greater than zero.
var ErrInvalidInterval = fmt.Errorf("%w: dispatch interval must be a number greater than zero", domain.ErrValidation)

// SettingsSource reads raw setting values. found is false when the key does
// not exist, which is distinct from an existing empty value.
type SettingsSource interface {
	Lookup(ctx context.Context, key string) (value string, found bool, err error)
}

// Settings is the dispatch configuration resolved from the settings table.
type Settings struct {
	IntervalHours float64
	// IntervalDefaulted is true when the stored interval was missing or
	// invalid and DefaultIntervalHours was used instead.
	IntervalDefaulted bool
	LastDispatchAt    string
}

// LoadSettings reads the dispatch settings from src.
func LoadSettings(ctx context.Context, src SettingsSource) (Settings, error) {
	if src == nil {
		return Settings{}, errors.New("dispatch: nil settings source")
	}

	raw, found, err := src.Lookup(ctx, domain.SettingDispatchIntervalHours)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read %s: %w", domain.SettingDispatchIntervalHours, err)
	}

	s := Settings{IntervalHours: DefaultIntervalHours, IntervalDefaulted: true}
	if found {
		if v, perr := ParseInterval(raw); perr == nil {
			s.IntervalHours = v
			s.IntervalDefaulted = false
		}
	}

	last, _, err := src.Lookup(ctx, domain.SettingLastDispatchAt)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read %s: %w", domain.SettingLastDispatchAt, err)
	}
	s.LastDispatchAt = strings.TrimSpace(last)

	return s, nil
}

// ParseInterval parses an interval in hours. The value must be a finite
// number strictly greater than zero.
func ParseInterval(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, ErrInvalidInterval
	}
	return v, nil
}

// FormatInterval renders an interval in its canonical stored form.
func FormatInterval(hours float64) string {
	return strconv.FormatFloat(hours, 'f', -1, 64)
}
