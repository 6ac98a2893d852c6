package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGate struct {
	mu       sync.Mutex
	decision Decision
	dueErr   error
	markErr  error
	checks   int
	marks    int
}

func (g *fakeGate) Due(context.Context) (Decision, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.checks++
	return g.decision, g.dueErr
}

func (g *fakeGate) MarkDispatched(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.markErr != nil {
		return "", g.markErr
	}
	g.marks++
	return "2024-05-01T12:00:00Z", nil
}

func (g *fakeGate) counts() (int, int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checks, g.marks
}

type fakeRunner struct {
	output string
	err    error
	calls  atomic.Int32
}

func (r *fakeRunner) Run(context.Context, string) (string, error) {
	r.calls.Add(1)
	return r.output, r.err
}

// everySchedule fires at a fixed short interval.
type everySchedule time.Duration

func (e everySchedule) Next(t time.Time) time.Time { return t.Add(time.Duration(e)) }

func TestNewWatcher(t *testing.T) {
	_, err := NewWatcher(WatcherConfig{Schedule: "@every 5m"})
	assert.Error(t, err, "gate is required")

	_, err = NewWatcher(WatcherConfig{Gate: &fakeGate{}, Schedule: "every now and then"})
	assert.Error(t, err)

	for _, spec := range []string{"@every 5m", "*/10 * * * *", "@hourly"} {
		w, err := NewWatcher(WatcherConfig{Gate: &fakeGate{}, Schedule: spec})
		require.NoError(t, err, spec)
		assert.NotNil(t, w.schedule)
	}
}

func TestWatcherCheck(t *testing.T) {
	tests := []struct {
		name           string
		decision       Decision
		command        string
		runErr         error
		markErr        error
		wantErr        bool
		wantRuns       int32
		wantMarks      int
		wantDispatched bool
	}{
		{name: "not due", decision: Decision{Due: false}, command: "true"},
		{name: "due without command", decision: Decision{Due: true}},
		{name: "due with command", decision: Decision{Due: true}, command: "true", wantRuns: 1, wantMarks: 1, wantDispatched: true},
		{name: "command failure does not mark", decision: Decision{Due: true}, command: "false", runErr: errors.New("exit 1"), wantErr: true, wantRuns: 1},
		{name: "mark failure reported", decision: Decision{Due: true}, command: "true", markErr: errors.New("db down"), wantErr: true, wantRuns: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gate := &fakeGate{decision: tc.decision, markErr: tc.markErr}
			runner := &fakeRunner{output: "ok", err: tc.runErr}
			w, err := NewWatcher(WatcherConfig{Gate: gate, Runner: runner, Schedule: "@every 1h", Command: tc.command})
			require.NoError(t, err)

			result, err := w.Check(context.Background())
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.wantRuns, runner.calls.Load())
			_, marks := gate.counts()
			assert.Equal(t, tc.wantMarks, marks)
			assert.Equal(t, tc.wantDispatched, result.Dispatched)
			if tc.wantDispatched {
				assert.Equal(t, "2024-05-01T12:00:00Z", result.LastDispatchAt)
			}
		})
	}
}

func TestWatcherCheckGateError(t *testing.T) {
	gate := &fakeGate{dueErr: errors.New("unavailable")}
	w, err := NewWatcher(WatcherConfig{Gate: gate, Schedule: "@every 1h"})
	require.NoError(t, err)

	_, err = w.Check(context.Background())
	assert.ErrorIs(t, err, gate.dueErr)
}

func TestWatcherStartStop(t *testing.T) {
	gate := &fakeGate{decision: Decision{Due: false}}
	w, err := NewWatcher(WatcherConfig{Gate: gate, Schedule: "@every 1h"})
	require.NoError(t, err)
	w.schedule = everySchedule(10 * time.Millisecond)

	w.Start(context.Background())
	require.Eventually(t, func() bool {
		checks, _ := gate.counts()
		return checks >= 3
	}, 2*time.Second, 5*time.Millisecond)
	w.Stop()

	checks, _ := gate.counts()
	time.Sleep(30 * time.Millisecond)
	after, _ := gate.counts()
	assert.Equal(t, checks, after, "no checks after stop")
}

func TestShellRunner(t *testing.T) {
	out, err := ShellRunner{Timeout: 5 * time.Second}.Run(context.Background(), "echo dispatched")
	require.NoError(t, err)
	assert.Equal(t, "dispatched\n", out)

	_, err = ShellRunner{Timeout: 5 * time.Second}.Run(context.Background(), "exit 3")
	assert.Error(t, err)

	_, err = ShellRunner{Timeout: 50 * time.Millisecond}.Run(context.Background(), "sleep 5")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timed out")
}
