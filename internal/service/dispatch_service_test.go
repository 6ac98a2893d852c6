package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/mocks"
	"github.com/nate007-quant/mission-control/internal/service"
	"github.com/nate007-quant/mission-control/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchDue(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		values     map[string]string
		wantDue    bool
		wantReason string
	}{
		{name: "13h since with 12h interval", values: map[string]string{"dispatch_interval_hours": "12", "last_dispatch_at": "2024-04-30T23:00:00Z"}, wantDue: true},
		{name: "1h since with 12h interval", values: map[string]string{"dispatch_interval_hours": "12", "last_dispatch_at": "2024-05-01T11:00:00Z"}, wantDue: false},
		{name: "never dispatched", values: map[string]string{"dispatch_interval_hours": "9999", "last_dispatch_at": ""}, wantDue: true, wantReason: dispatch.ReasonNeverDispatched},
		{name: "garbage timestamp", values: map[string]string{"last_dispatch_at": "garbage"}, wantDue: true, wantReason: dispatch.ReasonBadTimestamp},
		{name: "invalid interval falls back to 12", values: map[string]string{"dispatch_interval_hours": "-4", "last_dispatch_at": "2024-05-01T01:00:00Z"}, wantDue: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, err := service.NewDispatchService(mocks.NewMockSettingsStore(tc.values), nil,
				service.WithClock(func() time.Time { return now }))
			require.NoError(t, err)

			d, err := svc.Due(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.wantDue, d.Due)
			assert.Equal(t, tc.wantReason, d.Reason)
		})
	}
}

func TestMarkDispatched(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 45, 999, time.UTC)
	st := mocks.NewMockSettingsStore(nil)
	svc, err := service.NewDispatchService(st, nil, service.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	ts, err := svc.MarkDispatched(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "2024-05-01T12:30:45Z", ts)
	assert.Equal(t, ts, st.Values()[domain.SettingLastDispatchAt])

	d, err := svc.Due(context.Background())
	require.NoError(t, err)
	assert.False(t, d.Due, "just dispatched")
	require.NotNil(t, d.HoursSince)
	assert.InDelta(t, 0, *d.HoursSince, 1e-6)
}

func TestDispatchServiceErrors(t *testing.T) {
	_, err := service.NewDispatchService(nil, nil)
	assert.Error(t, err)

	st := mocks.NewMockSettingsStore(nil)
	st.LookupFn = func(context.Context, string) (string, bool, error) { return "", false, store.ErrUnavailable }
	st.SetFn = func(context.Context, string, string) error { return store.ErrUnavailable }
	svc, err := service.NewDispatchService(st, nil)
	require.NoError(t, err)

	_, err = svc.Due(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)

	_, err = svc.MarkDispatched(context.Background())
	assert.ErrorIs(t, err, store.ErrUnavailable)
}
