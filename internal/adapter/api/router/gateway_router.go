package router

import (
	"github.com/labstack/echo/v4"

	"tradeboard/internal/adapter/api/handler"
	"tradeboard/internal/adapter/api/middleware"
	"tradeboard/internal/infrastructure/ratelimit"
)

func SetupGatewayRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter, tradeEnabled func() bool) {
	gatewayHandler := handler.GetGatewayHandler()

	gateway := e.Group("/v1")
	gateway.Use(authMiddleware.Authenticate)
	gateway.Use(middleware.RateLimit(limiter, rateActionRequest))

	gateway.GET("/board", gatewayHandler.GetBoard)
	gateway.GET("/inbox", gatewayHandler.GetInbox)
	gateway.PUT("/me/direct-messages", gatewayHandler.SetDirectMessages)
	gateway.POST("/board/messages", gatewayHandler.PostBoardMessage, middleware.RequireEnabled(tradeEnabled))
}
