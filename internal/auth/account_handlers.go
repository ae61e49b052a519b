package auth

import (
	"encoding/json"
	"net/http"

	"github.com/jmoiron/sqlx"
)

func LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// JWT is stateless, the client just discards the token
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
		})
	}
}

func DeleteAccountHandler(dbx *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		tx, err := dbx.BeginTxx(r.Context(), nil)
		if err != nil {
			http.Error(w, "db begin failed", http.StatusInternalServerError)
			return
		}
		defer tx.Rollback()

		if _, err := tx.Exec(`DELETE FROM tasks WHERE user_id = $1`, uid); err != nil {
			http.Error(w, "delete tasks failed", http.StatusInternalServerError)
			return
		}

		if _, err := tx.Exec(`DELETE FROM analytics_events WHERE user_id = $1`, uid); err != nil {
			http.Error(w, "delete analytics_events failed", http.StatusInternalServerError)
			return
		}

		if _, err := tx.Exec(`DELETE FROM users WHERE id = $1`, uid); err != nil {
			http.Error(w, "delete user failed", http.StatusInternalServerError)
			return
		}

		if err := tx.Commit(); err != nil {
			http.Error(w, "db commit failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok": true,
		})
	}
}
