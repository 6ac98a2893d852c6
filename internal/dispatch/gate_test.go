package dispatch_test

import (
	"testing"
	"time"

	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluate(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		settings   dispatch.Settings
		wantDue    bool
		wantReason string
		wantHours  *float64
	}{
		{
			name:       "never dispatched is due regardless of interval",
			settings:   dispatch.Settings{IntervalHours: 1000},
			wantDue:    true,
			wantReason: dispatch.ReasonNeverDispatched,
		},
		{
			name:      "13 hours ago with 12 hour interval",
			settings:  dispatch.Settings{IntervalHours: 12, LastDispatchAt: dispatch.FormatTimestamp(now.Add(-13 * time.Hour))},
			wantDue:   true,
			wantHours: ptr(13.0),
		},
		{
			name:      "1 hour ago with 12 hour interval",
			settings:  dispatch.Settings{IntervalHours: 12, LastDispatchAt: dispatch.FormatTimestamp(now.Add(-time.Hour))},
			wantDue:   false,
			wantHours: ptr(1.0),
		},
		{
			name:      "exactly the interval is due",
			settings:  dispatch.Settings{IntervalHours: 12, LastDispatchAt: "2024-05-01T00:00:00Z"},
			wantDue:   true,
			wantHours: ptr(12.0),
		},
		{
			name:      "fractional interval",
			settings:  dispatch.Settings{IntervalHours: 0.5, LastDispatchAt: "2024-05-01T11:15:00+00:00"},
			wantDue:   true,
			wantHours: ptr(0.75),
		},
		{
			name:      "offset timestamps are honored",
			settings:  dispatch.Settings{IntervalHours: 12, LastDispatchAt: "2024-05-01T08:00:00-02:00"},
			wantDue:   false,
			wantHours: ptr(2.0),
		},
		{
			name:      "zone-less timestamp read as UTC",
			settings:  dispatch.Settings{IntervalHours: 12, LastDispatchAt: "2024-05-01 06:00:00"},
			wantDue:   false,
			wantHours: ptr(6.0),
		},
		{
			name:       "garbage timestamp is due with a reason",
			settings:   dispatch.Settings{IntervalHours: 12, LastDispatchAt: "yesterday-ish"},
			wantDue:    true,
			wantReason: dispatch.ReasonBadTimestamp,
		},
		{
			name:      "non-positive interval falls back to the default",
			settings:  dispatch.Settings{IntervalHours: 0, LastDispatchAt: "2024-05-01T01:00:00Z"},
			wantDue:   false,
			wantHours: ptr(11.0),
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := dispatch.Evaluate(now, tc.settings)
			assert.Equal(t, tc.wantDue, d.Due)
			assert.Equal(t, tc.wantReason, d.Reason)
			if tc.wantHours == nil {
				assert.Nil(t, d.HoursSince)
				return
			}
			require.NotNil(t, d.HoursSince)
			assert.InDelta(t, *tc.wantHours, *d.HoursSince, 1e-9)
		})
	}
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for _, raw := range []string{
		"2024-05-01T12:00:00Z",
		"2024-05-01T12:00:00.000Z",
		"2024-05-01T12:00:00+00:00",
		"2024-05-01T14:00:00+02:00",
		"2024-05-01T12:00:00",
		"2024-05-01 12:00:00",
		"2024-05-01T12:00:00+0000",
		"2024-05-01T14:00:00+0200",
		"2024-05-01 12:00:00+00:00",
		"2024-05-01 12:00:00-0000",
		"  2024-05-01T12:00:00Z ",
	} {
		got, err := dispatch.ParseTimestamp(raw)
		require.NoError(t, err, raw)
		assert.True(t, want.Equal(got), raw)
	}

	midnight, err := dispatch.ParseTimestamp("2024-05-01")
	require.NoError(t, err)
	assert.True(t, time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Equal(midnight), "bare date is midnight UTC")

	for _, raw := range []string{"", "2024-05", "2024-13-01", "12:00", "not a time"} {
		_, err := dispatch.ParseTimestamp(raw)
		assert.Error(t, err, raw)
	}
}

func TestEvaluateDateOnlyLastDispatch(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	d := dispatch.Evaluate(now, dispatch.Settings{IntervalHours: 12, LastDispatchAt: "2024-05-01"})
	assert.True(t, d.Due)
	assert.Empty(t, d.Reason)
	require.NotNil(t, d.HoursSince)
	assert.InDelta(t, 12.0, *d.HoursSince, 1e-9)

	d = dispatch.Evaluate(now, dispatch.Settings{IntervalHours: 12, LastDispatchAt: "2024-05-01T06:00:00+0000"})
	assert.False(t, d.Due)
	assert.Empty(t, d.Reason)
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 5, 1, 14, 30, 15, 123456789, time.FixedZone("X", 2*3600))
	assert.Equal(t, "2024-05-01T12:30:15Z", dispatch.FormatTimestamp(ts))
}

func ptr(v float64) *float64 { return &v }
