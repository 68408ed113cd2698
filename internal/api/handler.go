package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nudge-sh/nudge/internal/app"
	"github.com/nudge-sh/nudge/internal/notes"
)

// Deps holds what the control API needs from the rest of the daemon.
type Deps struct {
	Coordinator *app.Coordinator
	Token       string
	// Quit requests a daemon shutdown; called after the response is
	// written.
	Quit func()
}

// NewHandler builds the localhost control API consumed by the CLI and
// the menu-bar UI.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/status", handleStatus(deps))
		r.Get("/tasks", handleTasks(deps))
		r.Post("/refresh", handleRefresh(deps))
		r.Post("/trigger", handleTrigger(deps))
		r.Post("/test-notification", handleTestNotification(deps))
		r.Post("/quit", handleQuit(deps))
	})

	return r
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, deps.Coordinator.Status())
	}
}

func handleTasks(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tasks := deps.Coordinator.Tasks()
		if tasks == nil {
			tasks = []app.TaskView{}
		}
		writeJSON(w, http.StatusOK, tasks)
	}
}

func handleRefresh(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		count, err := deps.Coordinator.Refresh(r.Context())
		if err != nil {
			if errors.Is(err, notes.ErrStoreUnavailable) {
				httpError(w, http.StatusServiceUnavailable, "store_unavailable", "note store unavailable, keeping previous task set: %v", err)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "refresh failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]int{"task_count": count})
	}
}

type triggerRequest struct {
	Force bool `json:"force"`
}

type triggerResponse struct {
	Fired  bool   `json:"fired"`
	TaskID string `json:"task_id,omitempty"`
	Text   string `json:"text,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func handleTrigger(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req triggerRequest
		if r.Body != nil && r.ContentLength != 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
				return
			}
		}

		task, err := deps.Coordinator.TriggerNow(r.Context(), req.Force)
		if errors.Is(err, app.ErrNoEligibleTasks) {
			writeJSON(w, http.StatusOK, triggerResponse{Fired: false, Reason: "no eligible tasks"})
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "trigger failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, triggerResponse{Fired: true, TaskID: task.ID, Text: task.Text})
	}
}

func handleTestNotification(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := deps.Coordinator.TestNotification(r.Context()); err != nil {
			httpError(w, http.StatusBadGateway, "delivery_error", "test notification failed: %v", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
	}
}

func handleQuit(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopping"})
		if deps.Quit != nil {
			deps.Quit()
		}
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
