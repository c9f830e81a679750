package router

import (
	"github.com/labstack/echo/v4"

	"tradeboard/internal/adapter/api/handler"
	"tradeboard/internal/adapter/api/middleware"
	"tradeboard/internal/infrastructure/ratelimit"
)

func SetupTradeRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, limiter *ratelimit.RateLimiter, tradeEnabled func() bool) {
	tradeHandler := handler.GetTradeHandler()

	e.GET("/v1/commands", tradeHandler.ListCommands)

	trade := e.Group("/v1")
	trade.Use(authMiddleware.Authenticate)
	trade.Use(middleware.RateLimit(limiter, rateActionRequest))
	trade.Use(middleware.RequireEnabled(tradeEnabled))

	trade.POST("/commands/trade", tradeHandler.StartTrade)
	trade.POST("/commands/autotrading", tradeHandler.SetAutoTrading)
	trade.POST("/listings", tradeHandler.CreateListing)
	trade.POST("/interactions/buttons", tradeHandler.PressButton)
	trade.POST("/interactions/forms", tradeHandler.SubmitForm)
}
