package handler

import (
	"net/http"

	"helmetweb/internal/logger"

	"github.com/gorilla/websocket"
)

// Upgrader upgrades HTTP connections to WebSocket; CheckOrigin allows all origins.
var Upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ViewerRegistry tracks the connections that receive progress events.
type ViewerRegistry interface {
	Register(conn *websocket.Conn, token string)
	Unregister(conn *websocket.Conn)
}

// ProgressWebsocketHandler upgrades the connection and keeps it subscribed to
// the progress events of the "token" query parameter until the page goes away.
func ProgressWebsocketHandler(viewers ViewerRegistry, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Missing progress token", http.StatusBadRequest)
			return
		}

		connection, err := Upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Error("WebSocket upgrade error: %v", err)
			return
		}

		viewers.Register(connection, token)
		defer viewers.Unregister(connection)

		for {
			_, _, err := connection.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					logger.Warning("Progress viewer disconnected with error: %v", err)
				}
				break
			}
		}
	}
}
