package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Chat CRUD
	s.echo.POST("/chat", s.handleSendMessage)
	s.echo.GET("/chat", s.handleListPrompts)
	s.echo.GET("/chat/conversation/:id", s.handleGetConversation)
	s.echo.DELETE("/chat/:id", s.handleDeletePrompt)

	// Relay control endpoints (write notifications from external writers)
	s.echo.POST("/broadcast", s.handleBroadcast)
	s.echo.POST("/broadcast-delete", s.handleBroadcastDelete)

	// Push channel
	s.echo.GET("/ws", s.handleWebSocket)
}
