package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"todo-copilot-backend/internal/analytics"
	"todo-copilot-backend/internal/auth"
	"todo-copilot-backend/internal/classifier"
	"todo-copilot-backend/internal/webhook"
)

// ChatService is the slice of the webhook notifier the chat handlers use.
type ChatService interface {
	ChatEnabled() bool
	Chat(ctx context.Context, message, userID string) (string, error)
	ChatRaw(ctx context.Context, message, userID string) (json.RawMessage, error)
}

const (
	timeoutReply = "Sorry, the chat service took too long to respond. Please try again."
	failureReply = "Sorry, I'm having trouble connecting to the chat service."
)

func writeReply(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(classifier.Result{
		Action: classifier.ActionReply,
		Text:   text,
	})
}

// AgentHandler classifies the message. Task creations are returned to the
// caller directly (the client then creates the task through the tasks API);
// everything else goes to the chat webhook for an AI reply.
func AgentHandler(svc ChatService, dbx *sqlx.DB, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if strings.TrimSpace(body.Message) == "" {
			http.Error(w, "message is required", http.StatusBadRequest)
			return
		}

		result := classifier.Classify(body.Message)

		// analytics: chat_message (no raw text, only shape)
		{
			env := analytics.FromRequest(r)
			env.UserID = uid

			props := map[string]any{
				"action":      result.Action,
				"message_len": len(body.Message),
			}
			_ = analytics.Log(r.Context(), dbx, env, "chat_message", props, analytics.SourceEventKeyFromRequest(r))
		}

		if result.Action == classifier.ActionCreate {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(result)
			return
		}

		if !svc.ChatEnabled() {
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(result)
			return
		}

		reply, err := svc.Chat(r.Context(), body.Message, uid)
		if errors.Is(err, webhook.ErrTimeout) {
			log.Warn("chat webhook timed out", zap.String("user_id", uid))
			writeReply(w, http.StatusGatewayTimeout, timeoutReply)
			return
		}
		if err != nil {
			log.Warn("chat webhook call failed", zap.Error(err))
			writeReply(w, http.StatusInternalServerError, failureReply)
			return
		}

		if reply == "" {
			reply = result.Text
		}
		writeReply(w, http.StatusOK, reply)
	}
}

// ProxyHandler forwards a chat message straight to the webhook and passes the
// JSON response through untouched.
func ProxyHandler(svc ChatService, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		var body struct {
			Message string `json:"message"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)

		if strings.TrimSpace(body.Message) == "" {
			http.Error(w, "message is required", http.StatusBadRequest)
			return
		}

		if !svc.ChatEnabled() {
			http.Error(w, "chat service not configured", http.StatusInternalServerError)
			return
		}

		raw, err := svc.ChatRaw(r.Context(), body.Message, uid)
		if err != nil {
			log.Warn("chat proxy call failed", zap.Error(err))
			http.Error(w, "failed to communicate with AI", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(raw)
	}
}
