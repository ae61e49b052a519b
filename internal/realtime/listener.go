package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

const channel = "tasks_changed"

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

// Listener consumes pg_notify events from the tasks trigger and feeds the
// hub. It reconnects on its own through pq.Listener.
type Listener struct {
	pl  *pq.Listener
	hub *Hub
	log *zap.Logger
}

func NewListener(connString string, hub *Hub, log *zap.Logger) *Listener {
	pl := pq.NewListener(connString, minReconnect, maxReconnect,
		func(ev pq.ListenerEventType, err error) {
			if err != nil {
				log.Warn("postgres listener event", zap.Int("event", int(ev)), zap.Error(err))
			}
		})

	return &Listener{pl: pl, hub: hub, log: log}
}

// Run blocks until ctx is canceled.
func (l *Listener) Run(ctx context.Context) error {
	if err := l.pl.Listen(channel); err != nil {
		return err
	}
	defer l.pl.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case n := <-l.pl.Notify:
			if n == nil {
				// connection was re-established; clients missed
				// anything sent in between and will refetch
				continue
			}

			var ev Event
			if err := json.Unmarshal([]byte(n.Extra), &ev); err != nil {
				l.log.Warn("bad task change payload", zap.Error(err))
				continue
			}
			l.hub.Publish(ev)

		case <-time.After(pingInterval):
			go func() {
				if err := l.pl.Ping(); err != nil {
					l.log.Warn("postgres listener ping failed", zap.Error(err))
				}
			}()
		}
	}
}
