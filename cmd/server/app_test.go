package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nate007-quant/mission-control/internal/config"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/events"
	"github.com/nate007-quant/mission-control/internal/mocks"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{
			Port:               0,
			LogLevel:           "debug",
			EventsPollInterval: time.Second,
		},
		Dispatch: config.DispatchConfig{
			CheckSchedule:  "@every 1m",
			CommandTimeout: time.Second,
		},
	}
}

func newTestApp(t *testing.T, cfg *config.Config) *application {
	t.Helper()
	log, _ := logger.NewTestLogger(t)
	settings := mocks.NewMockSettingsStore(map[string]string{
		domain.SettingDispatchIntervalHours: "12",
		domain.SettingLastDispatchAt:        "",
	})

	app, err := assemble(cfg, log, mocks.NewMockTaskStore(), settings, nil)
	require.NoError(t, err)
	return app
}

func newTestServer(t *testing.T, app *application) *httptest.Server {
	t.Helper()
	router, err := app.setupRouter()
	require.NoError(t, err)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func TestAssemble(t *testing.T) {
	t.Run("no command means no watcher", func(t *testing.T) {
		app := newTestApp(t, testConfig())
		assert.Nil(t, app.watcher)
		assert.NotNil(t, app.tasks)
		assert.NotNil(t, app.broker)
	})

	t.Run("command starts a watcher", func(t *testing.T) {
		cfg := testConfig()
		cfg.Dispatch.Command = "true"
		app := newTestApp(t, cfg)
		assert.NotNil(t, app.watcher)
	})

	t.Run("bad schedule", func(t *testing.T) {
		cfg := testConfig()
		cfg.Dispatch.Command = "true"
		cfg.Dispatch.CheckSchedule = "whenever"

		log, _ := logger.NewTestLogger(t)
		_, err := assemble(cfg, log, mocks.NewMockTaskStore(), mocks.NewMockSettingsStore(nil), nil)
		assert.Error(t, err)
	})
}

func TestHealth(t *testing.T) {
	t.Run("healthy", func(t *testing.T) {
		app := newTestApp(t, testConfig())
		app.health = func(context.Context) (int64, error) { return 1, nil }
		srv := newTestServer(t, app)

		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusOK, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "ok", body["status"])
		assert.Equal(t, float64(1), body["schema_version"])
	})

	t.Run("database down", func(t *testing.T) {
		app := newTestApp(t, testConfig())
		app.health = func(context.Context) (int64, error) {
			return 0, errors.New("dial tcp 127.0.0.1:5432: connection refused")
		}
		srv := newTestServer(t, app)

		resp, err := http.Get(srv.URL + "/health")
		require.NoError(t, err)
		defer func() { _ = resp.Body.Close() }()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "storage_unavailable", body["kind"])
	})
}

func TestRouterServesAPIAndDashboard(t *testing.T) {
	app := newTestApp(t, testConfig())
	srv := newTestServer(t, app)

	updates, unsubscribe := app.broker.Subscribe()
	defer unsubscribe()

	resp, err := http.Post(srv.URL+"/api/tasks", "application/json", strings.NewReader(`{"title":"Ship it"}`))
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Trace-ID"))

	select {
	case event := <-updates:
		assert.Equal(t, events.TypeTaskCreated, event.Type)
		assert.Equal(t, "Ship it", event.Task.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("task creation did not reach the broker")
	}

	resp, err = http.Get(srv.URL + "/")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")

	resp, err = http.Get(srv.URL + "/api/tasks/999")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStartHTTPServerStopsOnCancel(t *testing.T) {
	cfg := testConfig()
	cfg.Dispatch.Command = "true"
	app := newTestApp(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- app.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

