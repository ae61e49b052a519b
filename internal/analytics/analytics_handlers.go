package analytics

import (
	"encoding/json"
	"net/http"

	"github.com/jmoiron/sqlx"
)

// app_opened — baseline "user opened the app" metric
func AppOpenedHandler(dbx *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			ColdStart bool   `json:"cold_start"`
			From      string `json:"from"` // push/deeplink/icon/unknown
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		env := FromRequest(r)
		env.UserID = uid

		props := map[string]any{
			"cold_start": body.ColdStart,
			"from":       body.From,
		}

		_ = Log(r.Context(), dbx, env, "app_opened", props, SourceEventKeyFromRequest(r))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
