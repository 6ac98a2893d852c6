package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/service"
	"github.com/spf13/pflag"
)

// action runs a command against an opened app. args are the positional
// arguments left after flag parsing.
type action func(ctx context.Context, a *app, args []string) (result, error)

type command struct {
	summary string
	// setup declares the command's flags and returns its action.
	setup func(fs *pflag.FlagSet) action
}

var commands = map[string]command{
	"init":            {"create the schema and default settings", setupInit},
	"add":             {"queue a task", setupAdd},
	"list":            {"list tasks, newest first", setupList},
	"get":             {"show one task: get <id>", setupGet},
	"claim":           {"claim the oldest queued task", setupClaim},
	"update":          {"update a task: update <id>", setupUpdate},
	"settings-get":    {"show dispatch settings", setupSettingsGet},
	"settings-set":    {"change dispatch settings", setupSettingsSet},
	"due":             {"report whether a dispatch is due", setupDue},
	"mark-dispatched": {"record a dispatch now", setupMarkDispatched},
	"watch":           {"run the dispatch watcher", setupWatch},
}

func usage(w io.Writer) {
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w, "usage: mc <command> [flags]")
	fmt.Fprintln(w)
	for _, name := range names {
		fmt.Fprintf(w, "  %-16s %s\n", name, commands[name].summary)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer, open opener) int {
	out := newPrinter(stdout)

	if len(args) == 0 {
		usage(stderr)
		return out.fail(&usageError{msg: "missing command"})
	}
	name := args[0]
	if name == "help" || name == "-h" || name == "--help" {
		usage(stderr)
		return 0
	}

	cmd, ok := commands[name]
	if !ok {
		return out.fail(&usageError{msg: fmt.Sprintf("unknown command %q", name)})
	}

	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	act := cmd.setup(fs)
	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			fmt.Fprintf(stderr, "usage: mc %s [flags]\n%s", name, fs.FlagUsages())
			return 0
		}
		return out.fail(&usageError{msg: err.Error()})
	}

	a, err := open(ctx, stderr, name == "init")
	if err != nil {
		return out.fail(err)
	}
	defer func() {
		if err := a.close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}()

	res, err := act(ctx, a, fs.Args())
	if err != nil {
		a.logger.Debug("command failed", "command", name, "error", err)
		return out.fail(err)
	}
	return out.ok(res)
}

// parseID reads the single positional task ID.
func parseID(args []string) (int64, error) {
	if len(args) != 1 {
		return 0, &usageError{msg: "exactly one task id required"}
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, domain.NewValidationError("id", "must be a positive integer", domain.ErrInvalidID)
	}
	return id, nil
}

func noArgs(args []string) error {
	if len(args) > 0 {
		return &usageError{msg: fmt.Sprintf("unexpected argument %q", args[0])}
	}
	return nil
}

func setupInit(fs *pflag.FlagSet) action {
	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		// Opening for init already migrated and wrote the defaults.
		return result{}, nil
	}
}

func setupAdd(fs *pflag.FlagSet) action {
	title := fs.String("title", "", "task title (required)")
	description := fs.String("description", "", "task description")
	agentID := fs.String("agent-id", "", "agent the task is for (default \""+domain.DefaultAgentID+"\")")

	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		task, err := a.tasks.AddTask(ctx, service.AddTaskInput{
			Title:       *title,
			Description: *description,
			AgentID:     *agentID,
		})
		if err != nil {
			return nil, err
		}
		return result{"id": task.ID}, nil
	}
}

func setupList(fs *pflag.FlagSet) action {
	status := fs.String("status", "", "only tasks with this status")
	limit := fs.Int("limit", service.DefaultListLimit, "maximum number of tasks")

	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		tasks, err := a.tasks.ListTasks(ctx, service.ListTasksInput{
			Status: strings.TrimSpace(*status),
			Limit:  *limit,
		})
		if err != nil {
			return nil, err
		}
		return result{"tasks": tasks}, nil
	}
}

func setupGet(fs *pflag.FlagSet) action {
	return func(ctx context.Context, a *app, args []string) (result, error) {
		id, err := parseID(args)
		if err != nil {
			return nil, err
		}
		task, err := a.tasks.GetTask(ctx, id)
		if err != nil {
			return nil, err
		}
		return result{"task": task}, nil
	}
}

func setupClaim(fs *pflag.FlagSet) action {
	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		task, err := a.tasks.ClaimNext(ctx)
		if err != nil {
			return nil, err
		}
		return result{"task": task}, nil
	}
}

func setupUpdate(fs *pflag.FlagSet) action {
	status := fs.String("status", "", "new status: queued, running, done or failed")
	sessionKey := fs.String("session-key", "", "session key of the worker")
	lastError := fs.String("last-error", "", "last error message")
	appendLog := fs.String("append-log", "", "line to append to the task log")

	return func(ctx context.Context, a *app, args []string) (result, error) {
		id, err := parseID(args)
		if err != nil {
			return nil, err
		}

		var input service.UpdateTaskInput
		if fs.Changed("status") {
			input.Status = status
		}
		if fs.Changed("session-key") {
			input.SessionKey = sessionKey
		}
		if fs.Changed("last-error") {
			input.LastError = lastError
		}
		if *appendLog != "" {
			input.AppendLog = appendLog
		}

		if _, err := a.tasks.UpdateTask(ctx, id, input); err != nil {
			return nil, err
		}
		return result{}, nil
	}
}

func setupSettingsGet(fs *pflag.FlagSet) action {
	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		snapshot, err := a.settings.Snapshot(ctx)
		if err != nil {
			return nil, err
		}
		return result{
			"dispatch_interval_hours": snapshot.DispatchIntervalHours,
			"last_dispatch_at":        snapshot.LastDispatchAt,
		}, nil
	}
}

func setupSettingsSet(fs *pflag.FlagSet) action {
	interval := fs.String("dispatch-interval-hours", "", "hours between dispatches (> 0)")
	lastDispatch := fs.String("last-dispatch-at", "", "override the last dispatch time (ISO-8601, empty clears)")

	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		var update service.SettingsUpdate
		if fs.Changed("dispatch-interval-hours") {
			update.DispatchIntervalHours = interval
		}
		if fs.Changed("last-dispatch-at") {
			update.LastDispatchAt = lastDispatch
		}
		if _, err := a.settings.Update(ctx, update); err != nil {
			return nil, err
		}
		return result{}, nil
	}
}

func decisionResult(d dispatch.Decision) result {
	res := result{"due": d.Due}
	if d.HoursSince != nil {
		res["hours_since"] = *d.HoursSince
	}
	if d.Reason != "" {
		res["reason"] = d.Reason
	}
	return res
}

func setupDue(fs *pflag.FlagSet) action {
	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		decision, err := a.dispatch.Due(ctx)
		if err != nil {
			return nil, err
		}
		return decisionResult(decision), nil
	}
}

func setupMarkDispatched(fs *pflag.FlagSet) action {
	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		stamp, err := a.dispatch.MarkDispatched(ctx)
		if err != nil {
			return nil, err
		}
		return result{"last_dispatch_at": stamp}, nil
	}
}

func setupWatch(fs *pflag.FlagSet) action {
	schedule := fs.String("schedule", "", "cron schedule (default dispatch.check_schedule)")
	cmdLine := fs.String("command", "", "command to run when due (default dispatch.command)")
	once := fs.Bool("once", false, "check once and exit")

	return func(ctx context.Context, a *app, args []string) (result, error) {
		if err := noArgs(args); err != nil {
			return nil, err
		}
		if !fs.Changed("schedule") {
			*schedule = a.cfg.Dispatch.CheckSchedule
		}
		if !fs.Changed("command") {
			*cmdLine = a.cfg.Dispatch.Command
		}

		w, err := dispatch.NewWatcher(dispatch.WatcherConfig{
			Gate:     a.dispatch,
			Runner:   dispatch.ShellRunner{Timeout: a.cfg.Dispatch.CommandTimeout},
			Logger:   a.logger,
			Schedule: *schedule,
			Command:  *cmdLine,
		})
		if err != nil {
			return nil, &usageError{msg: err.Error()}
		}

		if *once {
			check, err := w.Check(ctx)
			if err != nil {
				return nil, err
			}
			res := decisionResult(check.Decision)
			res["dispatched"] = check.Dispatched
			if check.LastDispatchAt != "" {
				res["last_dispatch_at"] = check.LastDispatchAt
			}
			if check.Output != "" {
				res["output"] = check.Output
			}
			return res, nil
		}

		a.logger.Info("dispatch watcher running", "schedule", *schedule)
		w.Start(ctx)
		<-ctx.Done()
		w.Stop()
		return result{}, nil
	}
}
