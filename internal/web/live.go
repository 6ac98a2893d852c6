package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/nate007-quant/mission-control/internal/dispatch"
	"github.com/nate007-quant/mission-control/internal/domain"
	"github.com/nate007-quant/mission-control/internal/events"
	"github.com/nate007-quant/mission-control/internal/platform/logger"
	"github.com/nate007-quant/mission-control/internal/redact"
	"github.com/nate007-quant/mission-control/internal/service"
)

// SSE event names consumed by static/live.js.
const (
	eventTasks = "tasks"
	eventTask  = "task"
)

// liveTask is a task list row without the log, which can be large.
type liveTask struct {
	ID        int64             `json:"id"`
	Title     string            `json:"title"`
	AgentID   string            `json:"agent_id"`
	Status    domain.TaskStatus `json:"status"`
	CreatedAt string            `json:"created_at"`
}

type tasksPayload struct {
	Tasks []liveTask `json:"tasks"`
}

type taskPayload struct {
	Task *domain.Task `json:"task"`
}

// liveState remembers what one client has already been sent.
type liveState struct {
	lastList []byte
	seen     map[int64]time.Time
}

func writeEvent(w io.Writer, name string, payload []byte) error {
	_, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, payload)
	return err
}

// sync re-reads the task list, sends a tasks event when the list changed
// and a task event for every task whose updated_at moved. The first call
// only records state for per-task changes.
func (h *Handler) sync(ctx context.Context, w io.Writer, state *liveState, first bool) error {
	tasks, err := h.tasks.ListTasks(ctx, service.ListTasksInput{Limit: TaskListLimit})
	if err != nil {
		logger.FromContextOrDefault(ctx, h.logger).Warn("live feed failed to list tasks",
			slog.String("error", redact.Error(err)))
		return nil
	}

	rows := make([]liveTask, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, liveTask{
			ID:        t.ID,
			Title:     t.Title,
			AgentID:   t.AgentID,
			Status:    t.Status,
			CreatedAt: dispatch.FormatTimestamp(t.CreatedAt),
		})
	}
	list, err := json.Marshal(tasksPayload{Tasks: rows})
	if err != nil {
		return err
	}
	if !bytes.Equal(list, state.lastList) {
		if err := writeEvent(w, eventTasks, list); err != nil {
			return err
		}
		state.lastList = list
	}

	for _, t := range tasks {
		prev, known := state.seen[t.ID]
		state.seen[t.ID] = t.UpdatedAt
		if first || (known && prev.Equal(t.UpdatedAt)) {
			continue
		}
		if err := h.sendTask(w, t); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) sendTask(w io.Writer, t *domain.Task) error {
	payload, err := json.Marshal(taskPayload{Task: t})
	if err != nil {
		return err
	}
	return writeEvent(w, eventTask, payload)
}

// handleEvents streams task changes as server-sent events. Changes made in
// this process arrive through the broker; the periodic sync picks up
// everything else.
func (h *Handler) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var updates <-chan *events.TaskEvent
	if h.broker != nil {
		ch, cancel := h.broker.Subscribe()
		defer cancel()
		updates = ch
	}

	ctx := r.Context()
	state := &liveState{seen: make(map[int64]time.Time)}
	if err := h.sync(ctx, w, state, true); err != nil {
		log.Debug("sse: initial write failed", slog.String("error", err.Error()))
		return
	}
	flusher.Flush()

	ticker := time.NewTicker(h.pollInterval)
	defer ticker.Stop()

	for {
		var err error
		select {
		case <-ctx.Done():
			log.Debug("sse: client disconnected")
			return

		case event, ok := <-updates:
			if !ok {
				updates = nil
				continue
			}
			if event.Task == nil {
				continue
			}
			state.seen[event.Task.ID] = event.Task.UpdatedAt
			if err = h.sendTask(w, event.Task); err == nil {
				err = h.sync(ctx, w, state, false)
			}

		case <-ticker.C:
			if err = h.sync(ctx, w, state, false); err == nil {
				_, err = io.WriteString(w, ": keep-alive\n\n")
			}
		}

		if err != nil {
			log.Debug("sse: write failed", slog.String("error", err.Error()))
			return
		}
		flusher.Flush()
	}
}
