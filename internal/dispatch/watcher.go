package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	cronlib "github.com/robfig/cron/v3"
)

// Gate is the stateful side of the dispatch decision: evaluating against the
// stored settings and recording a completed dispatch.
type Gate interface {
	Due(ctx context.Context) (Decision, error)
	MarkDispatched(ctx context.Context) (string, error)
}

// WatcherConfig holds the dependencies for the Watcher.
type WatcherConfig struct {
	Gate   Gate
	Runner Runner
	Logger *slog.Logger
	// Schedule is a standard 5-field cron expression or a descriptor such
	// as "@every 5m".
	Schedule string
	// Command is run when a dispatch is due. Empty means report only.
	Command string
}

// CheckResult describes one evaluation of the gate by the watcher.
type CheckResult struct {
	Decision       Decision `json:"decision"`
	Dispatched     bool     `json:"dispatched"`
	LastDispatchAt string   `json:"last_dispatch_at,omitempty"`
	Output         string   `json:"output,omitempty"`
}

// Watcher evaluates the dispatch gate on a cron schedule and runs the
// dispatch command when it is due. last_dispatch_at is only advanced after
// the command succeeds.
type Watcher struct {
	gate     Gate
	runner   Runner
	logger   *slog.Logger
	schedule cronlib.Schedule
	command  string
	now      func() time.Time

	// serializes checks so a slow command never overlaps the next tick
	checkMu sync.Mutex

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a Watcher. It fails when the schedule does not parse.
func NewWatcher(cfg WatcherConfig) (*Watcher, error) {
	if cfg.Gate == nil {
		return nil, errors.New("dispatch: watcher requires a gate")
	}

	schedule, err := cronlib.ParseStandard(strings.TrimSpace(cfg.Schedule))
	if err != nil {
		return nil, fmt.Errorf("invalid check schedule %q: %w", cfg.Schedule, err)
	}

	runner := cfg.Runner
	if runner == nil {
		runner = ShellRunner{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Watcher{
		gate:     cfg.Gate,
		runner:   runner,
		logger:   logger.With(slog.String("component", "dispatch_watcher")),
		schedule: schedule,
		command:  strings.TrimSpace(cfg.Command),
		now:      time.Now,
	}, nil
}

// Start begins the watcher loop in a background goroutine. The gate is
// checked immediately and then at every scheduled time.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	w.wg.Add(1)
	go w.loop(ctx)
	w.logger.Info("dispatch watcher started", "command_configured", w.command != "")
}

// Stop cancels the watcher loop and waits for it to exit.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
	w.logger.Info("dispatch watcher stopped")
}

func (w *Watcher) loop(ctx context.Context) {
	defer w.wg.Done()

	w.tick(ctx)

	for {
		next := w.schedule.Next(w.now())
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
			w.tick(ctx)
		}
	}
}

func (w *Watcher) tick(ctx context.Context) {
	if _, err := w.Check(ctx); err != nil && ctx.Err() == nil {
		w.logger.Error("dispatch check failed", "error", err)
	}
}

// Check evaluates the gate once. When due and a command is configured the
// command runs, and last_dispatch_at is marked only if it succeeds.
func (w *Watcher) Check(ctx context.Context) (CheckResult, error) {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	decision, err := w.gate.Due(ctx)
	if err != nil {
		return CheckResult{}, fmt.Errorf("failed to evaluate dispatch gate: %w", err)
	}

	result := CheckResult{Decision: decision}
	log := w.logger.With("due", decision.Due)
	if decision.HoursSince != nil {
		log = log.With("hours_since", *decision.HoursSince)
	}
	if decision.Reason != "" {
		log = log.With("reason", decision.Reason)
	}

	if !decision.Due {
		log.Debug("dispatch not due")
		return result, nil
	}
	if w.command == "" {
		log.Info("dispatch due; no command configured")
		return result, nil
	}

	log.Info("dispatch due; running command")
	output, err := w.runner.Run(ctx, w.command)
	result.Output = output
	if err != nil {
		return result, err
	}

	marked, err := w.gate.MarkDispatched(ctx)
	if err != nil {
		return result, fmt.Errorf("dispatch command succeeded but marking failed: %w", err)
	}
	result.Dispatched = true
	result.LastDispatchAt = marked

	log.Info("dispatch completed", "last_dispatch_at", marked)
	return result, nil
}
