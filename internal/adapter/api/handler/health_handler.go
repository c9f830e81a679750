package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tradeboard/internal/infrastructure/websocket"
	"tradeboard/internal/usecase"
)

// HealthCheck probes one backing service.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type HealthHandler struct {
	tradeUseCase *usecase.TradeUseCase
	wsManager    *websocket.Manager
	checks       []HealthCheck
}

func NewHealthHandler(tradeUseCase *usecase.TradeUseCase, wsManager *websocket.Manager, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{
		tradeUseCase: tradeUseCase,
		wsManager:    wsManager,
		checks:       checks,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	status := http.StatusOK
	services := make(map[string]string, len(h.checks))
	for _, check := range h.checks {
		if err := check.Check(ctx); err != nil {
			services[check.Name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		services[check.Name] = "ok"
	}

	body := map[string]interface{}{
		"status":               "Server is running",
		"time":                 time.Now().Format(time.RFC3339),
		"trade_enabled":        h.tradeUseCase.Enabled(),
		"auto_trading_enabled": h.tradeUseCase.AutoTradingEnabled(),
		"services":             services,
	}
	if h.wsManager != nil {
		body["connected_users"] = h.wsManager.ConnectedUsers()
	}
	if status != http.StatusOK {
		body["status"] = "Degraded"
	}
	return c.JSON(status, body)
}
