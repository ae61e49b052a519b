// Package webhook talks to the n8n automation endpoints. The task webhook is
// fire-and-forget; the chat webhook is a synchronous request/reply call with
// a hard timeout.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrTimeout marks a chat webhook call that exceeded the deadline so callers
// can answer with the "took too long" reply instead of a generic failure.
var ErrTimeout = errors.New("chat webhook timed out")

const (
	defaultChatTimeout = 30 * time.Second
	taskTriggerTimeout = 10 * time.Second
)

type Notifier struct {
	taskURL string
	chatURL string

	// ChatTimeout bounds a single chat webhook round trip.
	ChatTimeout time.Duration

	client *http.Client
	log    *zap.Logger
}

func NewNotifier(taskURL, chatURL string, log *zap.Logger) *Notifier {
	return &Notifier{
		taskURL:     taskURL,
		chatURL:     chatURL,
		ChatTimeout: defaultChatTimeout,
		client:      &http.Client{},
		log:         log,
	}
}

// ChatEnabled reports whether a chat webhook is configured.
func (n *Notifier) ChatEnabled() bool {
	return n.chatURL != ""
}

// TaskCreated triggers AI title refinement for a freshly stored task.
// At-most-once, never retried: a delivery failure is logged and the task
// stays as the user typed it.
func (n *Notifier) TaskCreated(id, title, userID string) {
	if n.taskURL == "" {
		return
	}

	payload, _ := json.Marshal(map[string]string{
		"id":      id,
		"title":   title,
		"user_id": userID,
		"action":  "improve_title",
	})

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), taskTriggerTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.taskURL, bytes.NewReader(payload))
		if err != nil {
			n.log.Warn("task webhook request build failed", zap.Error(err))
			return
		}
		req.Header.Set("Content-Type", "application/json")

		res, err := n.client.Do(req)
		if err != nil {
			n.log.Warn("task webhook delivery failed",
				zap.String("task_id", id), zap.Error(err))
			return
		}
		defer res.Body.Close()
		_, _ = io.Copy(io.Discard, res.Body)

		if res.StatusCode < 200 || res.StatusCode > 299 {
			n.log.Warn("task webhook returned error status",
				zap.String("task_id", id), zap.Int("status", res.StatusCode))
		}
	}()
}

// ChatRaw forwards a chat message and returns the webhook's JSON response
// body as-is. Non-JSON bodies are wrapped into {"reply": <text>}.
func (n *Notifier) ChatRaw(ctx context.Context, message, userID string) (json.RawMessage, error) {
	if n.chatURL == "" {
		return nil, errors.New("chat webhook not configured")
	}

	payload, _ := json.Marshal(map[string]string{
		"message": message,
		"user_id": userID,
	})

	ctx, cancel := context.WithTimeout(ctx, n.ChatTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.chatURL, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := n.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, err
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		if isTimeout(err) {
			return nil, ErrTimeout
		}
		return nil, err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return nil, fmt.Errorf("chat webhook returned %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	if json.Valid(body) && len(bytes.TrimSpace(body)) > 0 {
		return json.RawMessage(body), nil
	}

	wrapped, _ := json.Marshal(map[string]string{"reply": strings.TrimSpace(string(body))})
	return json.RawMessage(wrapped), nil
}

// Chat forwards a chat message and extracts the reply text, accepting the
// {reply} and {message} response shapes the automation tool produces.
func (n *Notifier) Chat(ctx context.Context, message, userID string) (string, error) {
	raw, err := n.ChatRaw(ctx, message, userID)
	if err != nil {
		return "", err
	}

	var data struct {
		Reply   string `json:"reply"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		return "", nil
	}
	if data.Reply != "" {
		return data.Reply, nil
	}
	return data.Message, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ue *url.Error
	return errors.As(err, &ue) && ue.Timeout()
}
