package realtime

import (
	"io"
	"net/http"

	"golang.org/x/net/websocket"

	"todo-copilot-backend/internal/auth"
)

// StreamHandler upgrades to a WebSocket and relays the caller's task change
// events until the client disconnects.
func StreamHandler(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		uid, ok := auth.UserIDFromContext(r.Context())
		if !ok {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		srv := websocket.Server{Handler: func(ws *websocket.Conn) {
			defer ws.Close()

			ch, cancel := hub.Subscribe(uid)
			defer cancel()

			// the client never sends anything meaningful; reading
			// until EOF is how we notice it went away
			done := make(chan struct{})
			go func() {
				_, _ = io.Copy(io.Discard, ws)
				close(done)
			}()

			for {
				select {
				case ev, ok := <-ch:
					if !ok {
						return
					}
					if err := websocket.JSON.Send(ws, ev); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}}
		srv.ServeHTTP(w, r)
	}
}
