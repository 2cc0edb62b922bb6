package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // the push channel is public, same as the REST surface
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	id, err := s.relay.Connect(conn)
	if err != nil {
		slog.Warn("Failed to register subscriber", "error", err)
		return nil
	}

	// Read pump, blocks until the connection closes. Subscribers never send
	// payloads; reading drives pong handling and close detection.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.relay.Disconnect(id)

	return nil //nolint:nilerr // ReadMessage err is block-scoped; outer err is nil
}
