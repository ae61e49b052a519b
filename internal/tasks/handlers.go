package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"todo-copilot-backend/internal/analytics"
	"todo-copilot-backend/internal/auth"
)

// TaskStore is what the handlers need from storage; tests plug in a fake.
type TaskStore interface {
	List(ctx context.Context, owner string) ([]Task, error)
	Create(ctx context.Context, owner, title string) (Task, error)
	SetCompleted(ctx context.Context, owner, id string, completed bool) error
	SetTitle(ctx context.Context, owner, id, title string) error
	SetDescription(ctx context.Context, owner, id, description string) error
	Delete(ctx context.Context, owner, id string) error
}

// Notifier triggers the external AI title-refinement process. Delivery is
// best-effort and must never block or fail the create path.
type Notifier interface {
	TaskCreated(id, title, userID string)
}

func taskID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.PathValue("id")
	if _, err := uuid.Parse(id); err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return "", false
	}
	return id, true
}

func GetTasksHandler(store TaskStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		result, err := store.List(r.Context(), uid)
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if result == nil {
			result = []Task{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func CreateTaskHandler(store TaskStore, notifier Notifier, dbx *sqlx.DB, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Title string `json:"title"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		t, err := store.Create(r.Context(), uid, body.Title)
		if errors.Is(err, ErrEmptyTitle) {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		// analytics: task_created
		{
			env := analytics.FromRequest(r)
			env.UserID = uid

			props := map[string]any{
				"task_id":   t.ID,
				"title_len": len(t.Title),
			}
			_ = analytics.Log(r.Context(), dbx, env, "task_created", props, analytics.SourceEventKeyFromRequest(r))
		}

		// AI title refinement, decoupled from this request: the external
		// process writes back through the tasks table, clients observe
		// the result on the change stream
		if notifier != nil {
			notifier.TaskCreated(t.ID, t.Title, uid)
		}

		log.Debug("task created", zap.String("task_id", t.ID))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(t)
	}
}

func SetCompletedHandler(store TaskStore, dbx *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := taskID(w, r)
		if !ok {
			return
		}

		var body struct {
			Completed bool `json:"completed"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := store.SetCompleted(r.Context(), uid, id, body.Completed); err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		if body.Completed {
			env := analytics.FromRequest(r)
			env.UserID = uid
			_ = analytics.Log(r.Context(), dbx, env, "task_completed",
				map[string]any{"task_id": id}, analytics.SourceEventKeyFromRequest(r))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func SetTitleHandler(store TaskStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := taskID(w, r)
		if !ok {
			return
		}

		var body struct {
			Title string `json:"title"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		err := store.SetTitle(r.Context(), uid, id, body.Title)
		if errors.Is(err, ErrEmptyTitle) {
			http.Error(w, "title is required", http.StatusBadRequest)
			return
		}
		if err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func SetDescriptionHandler(store TaskStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := taskID(w, r)
		if !ok {
			return
		}

		var body struct {
			Description string `json:"description"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		if err := store.SetDescription(r.Context(), uid, id, body.Description); err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}

func DeleteTaskHandler(store TaskStore, dbx *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		id, ok := taskID(w, r)
		if !ok {
			return
		}

		if err := store.Delete(r.Context(), uid, id); err != nil {
			http.Error(w, "db error: "+err.Error(), http.StatusInternalServerError)
			return
		}

		env := analytics.FromRequest(r)
		env.UserID = uid
		_ = analytics.Log(r.Context(), dbx, env, "task_deleted",
			map[string]any{"task_id": id}, analytics.SourceEventKeyFromRequest(r))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
