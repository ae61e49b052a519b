package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
)

type CtxKey string

const (
	ctxUserIDKey CtxKey = "analytics_user_id"
)

// Envelope is what we store with every event.
type Envelope struct {
	UserID       string
	SessionID    string
	Platform     string
	AppVersion   string
	DeviceLocale string
	IPCountry    string
}

// FromRequest extracts event envelope fields from request.
// Backend-trustable fields only.
func FromRequest(r *http.Request) Envelope {
	platform := strings.TrimSpace(r.Header.Get("X-Platform"))
	if platform == "" {
		platform = "unknown"
	} else {
		platform = strings.ToLower(platform)
		if platform != "ios" && platform != "android" && platform != "web" {
			platform = "unknown"
		}
	}

	appVer := strings.TrimSpace(r.Header.Get("X-App-Version"))
	locale := strings.TrimSpace(r.Header.Get("Accept-Language"))
	if locale == "" {
		locale = strings.TrimSpace(r.Header.Get("X-Device-Locale"))
	}

	sessionID := strings.TrimSpace(r.Header.Get("X-Session-Id"))

	return Envelope{
		SessionID:    sessionID,
		Platform:     platform,
		AppVersion:   appVer,
		DeviceLocale: locale,
		IPCountry:    "",
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ctxUserIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	v := ctx.Value(ctxUserIDKey)
	if v == nil {
		return "", false
	}
	uid, ok := v.(string)
	return uid, ok
}

// Client-provided idempotency key (optional).
// If present and duplicates, insert is ignored.
func SourceEventKeyFromRequest(r *http.Request) string {
	k := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if k != "" {
		return k
	}
	return strings.TrimSpace(r.Header.Get("X-Source-Event-Key"))
}

// Log inserts one analytics event.
// Never logs sensitive raw text; caller passes sanitized props.
func Log(ctx context.Context, dbx *sqlx.DB, env Envelope, eventName string, props any, sourceEventKey string) error {
	if eventName == "" || dbx == nil {
		return nil
	}

	var userID string
	if env.UserID != "" {
		userID = env.UserID
	} else if uid, ok := UserIDFromContext(ctx); ok {
		userID = uid
	} else {
		// no user => skip
		return nil
	}

	b, err := json.Marshal(props)
	if err != nil {
		// if props can't marshal, don't break core flow
		return nil
	}

	// If source_event_key duplicates -> do nothing
	if sourceEventKey != "" {
		_, _ = dbx.ExecContext(ctx, `
			INSERT INTO analytics_events (
				event_name, event_time,
				user_id, session_id,
				platform, app_version, device_locale, ip_country,
				source_event_key,
				properties
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb)
			ON CONFLICT (source_event_key) DO NOTHING
		`, eventName, time.Now().UTC(),
			userID, nullIfEmpty(env.SessionID),
			env.Platform, env.AppVersion, nullIfEmpty(env.DeviceLocale), nullIfEmpty(env.IPCountry),
			sourceEventKey,
			string(b),
		)
		return nil
	}

	_, _ = dbx.ExecContext(ctx, `
		INSERT INTO analytics_events (
			event_name, event_time,
			user_id, session_id,
			platform, app_version, device_locale, ip_country,
			properties
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
	`, eventName, time.Now().UTC(),
		userID, nullIfEmpty(env.SessionID),
		env.Platform, env.AppVersion, nullIfEmpty(env.DeviceLocale), nullIfEmpty(env.IPCountry),
		string(b),
	)

	return nil
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
