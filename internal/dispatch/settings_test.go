package dispatch_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapSource struct {
	values map[string]string
	err    error
}

func (m mapSource) Lookup(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func TestLoadSettings(t *testing.T) {
	tests := []struct {
		name          string
		values        map[string]string
		wantInterval  float64
		wantDefaulted bool
		wantLast      string
	}{
		{name: "missing keys", values: map[string]string{}, wantInterval: 12, wantDefaulted: true},
		{name: "empty interval", values: map[string]string{domain.SettingDispatchIntervalHours: ""}, wantInterval: 12, wantDefaulted: true},
		{name: "negative interval", values: map[string]string{domain.SettingDispatchIntervalHours: "-3"}, wantInterval: 12, wantDefaulted: true},
		{name: "garbage interval", values: map[string]string{domain.SettingDispatchIntervalHours: "soon"}, wantInterval: 12, wantDefaulted: true},
		{
			name: "stored values",
			values: map[string]string{
				domain.SettingDispatchIntervalHours: "1.5",
				domain.SettingLastDispatchAt:        " 2024-05-01T00:00:00Z ",
			},
			wantInterval: 1.5,
			wantLast:     "2024-05-01T00:00:00Z",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s, err := dispatch.LoadSettings(context.Background(), mapSource{values: tc.values})
			require.NoError(t, err)
			assert.Equal(t, tc.wantInterval, s.IntervalHours)
			assert.Equal(t, tc.wantDefaulted, s.IntervalDefaulted)
			assert.Equal(t, tc.wantLast, s.LastDispatchAt)
		})
	}
}

func TestLoadSettingsSourceError(t *testing.T) {
	boom := errors.New("boom")
	_, err := dispatch.LoadSettings(context.Background(), mapSource{err: boom})
	assert.ErrorIs(t, err, boom)

	_, err = dispatch.LoadSettings(context.Background(), nil)
	assert.Error(t, err)
}

func TestParseInterval(t *testing.T) {
	valid := map[string]float64{"12": 12, "0.25": 0.25, " 6 ": 6, "1e1": 10}
	for raw, want := range valid {
		got, err := dispatch.ParseInterval(raw)
		require.NoError(t, err, raw)
		assert.Equal(t, want, got, raw)
	}

	for _, raw := range []string{"", "0", "-1", "abc", "NaN", "Inf", "-0"} {
		_, err := dispatch.ParseInterval(raw)
		assert.ErrorIs(t, err, dispatch.ErrInvalidInterval, raw)
		assert.ErrorIs(t, err, domain.ErrValidation, raw)
	}
}

func TestFormatInterval(t *testing.T) {
	assert.Equal(t, "12", dispatch.FormatInterval(12))
	assert.Equal(t, "0.5", dispatch.FormatInterval(0.5))
}
