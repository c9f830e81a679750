package handler

import (
	"tradeboard/internal/infrastructure/websocket"
	"tradeboard/internal/usecase"
)

var (
	tradeHandler     *TradeHandler
	gatewayHandler   *GatewayHandler
	healthHandler    *HealthHandler
	webSocketHandler *WebSocketHandler
)

func Setup(tradeUseCase *usecase.TradeUseCase, gateway *websocket.Gateway, wsManager *websocket.Manager, checks ...HealthCheck) {
	tradeHandler = NewTradeHandler(tradeUseCase)
	gatewayHandler = NewGatewayHandler(gateway, tradeUseCase)
	healthHandler = NewHealthHandler(tradeUseCase, wsManager, checks...)
	webSocketHandler = NewWebSocketHandler(wsManager)
}

func GetTradeHandler() *TradeHandler {
	return tradeHandler
}

func GetGatewayHandler() *GatewayHandler {
	return gatewayHandler
}

func GetHealthHandler() *HealthHandler {
	return healthHandler
}

func GetWebSocketHandler() *WebSocketHandler {
	return webSocketHandler
}
