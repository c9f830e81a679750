package router

import (
	"github.com/labstack/echo/v4"

	"tradeboard/internal/adapter/api/handler"
	"tradeboard/internal/adapter/api/middleware"
)

func SetupWebSocketRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	wsHandler := handler.GetWebSocketHandler()
	e.GET("/ws", wsHandler.HandleWebSocket, authMiddleware.Authenticate)
}
