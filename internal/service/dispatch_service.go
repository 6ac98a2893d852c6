package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/store"
)

// DispatchService evaluates the dispatch gate against the stored settings.
type DispatchService interface {
	dispatch.Gate

	// Settings returns the resolved dispatch settings.
	Settings(ctx context.Context) (dispatch.Settings, error)
}

// dispatchServiceImpl implements the DispatchService interface
type dispatchServiceImpl struct {
	settings store.SettingsStore
	logger   *slog.Logger
	now      func() time.Time
}

// Ensure dispatchServiceImpl implements dispatch.Gate interface
var _ dispatch.Gate = (*dispatchServiceImpl)(nil)

// NewDispatchService creates a new DispatchService.
func NewDispatchService(settings store.SettingsStore, logger *slog.Logger, opts ...Option) (DispatchService, error) {
	if settings == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "settings store cannot be nil"}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &dispatchServiceImpl{
		settings: settings,
		logger:   logger.With("component", "dispatch_service"),
		now:      applyOptions(opts).now,
	}, nil
}

// Settings implements DispatchService.Settings
func (s *dispatchServiceImpl) Settings(ctx context.Context) (dispatch.Settings, error) {
	settings, err := dispatch.LoadSettings(ctx, s.settings)
	if err != nil {
		return dispatch.Settings{}, NewServiceError("load_dispatch_settings", "failed to read dispatch settings", err)
	}
	return settings, nil
}

// Due implements dispatch.Gate.Due
func (s *dispatchServiceImpl) Due(ctx context.Context) (dispatch.Decision, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return dispatch.Decision{}, err
	}

	if settings.IntervalDefaulted {
		logger.FromContextOrDefault(ctx, s.logger).Debug("dispatch interval missing or invalid, using default",
			"default_hours", dispatch.DefaultIntervalHours)
	}
	return dispatch.Evaluate(s.now(), settings), nil
}

// MarkDispatched implements dispatch.Gate.MarkDispatched
// It records the current time as the last dispatch and returns the stored value.
func (s *dispatchServiceImpl) MarkDispatched(ctx context.Context) (string, error) {
	ts := dispatch.FormatTimestamp(s.now())
	if err := s.settings.Set(ctx, domain.SettingLastDispatchAt, ts); err != nil {
		return "", NewServiceError("mark_dispatched", "failed to record dispatch", err)
	}

	logger.FromContextOrDefault(ctx, s.logger).Info("dispatch recorded", "last_dispatch_at", ts)
	return ts, nil
}
