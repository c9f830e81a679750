package router

import (
	"github.com/labstack/echo/v4"

	"tradeboard/internal/adapter/api/middleware"
	"tradeboard/internal/infrastructure/ratelimit"
)

const rateActionRequest = "request"

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter, tradeEnabled func() bool) {
	SetupHealthRouter(e)
	SetupTradeRouter(e, authMiddleware, limiter, tradeEnabled)
	SetupGatewayRouter(e, authMiddleware, limiter, tradeEnabled)
	SetupWebSocketRouter(e, authMiddleware)
}
