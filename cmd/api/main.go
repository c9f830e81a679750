package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"

	"tradeboard/internal/adapter/api"
	"tradeboard/internal/adapter/api/handler"
	apimiddleware "tradeboard/internal/adapter/api/middleware"
	"tradeboard/internal/adapter/api/router"
	"tradeboard/internal/infrastructure/ratelimit"
	"tradeboard/internal/infrastructure/websocket"
	"tradeboard/internal/usecase"
	"tradeboard/pkg/clock"
	"tradeboard/pkg/config"
	"tradeboard/pkg/logger"
)

const (
	botUserID       = "tradeboard"
	shutdownTimeout = 10 * time.Second
)

func main() {
	configFile := pflag.String("config", "", "YAML config file overriding environment values")
	envFile := pflag.String("env-file", ".env", "dotenv file loaded before the environment")
	pflag.Parse()

	cfg, err := config.Load(*envFile, *configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger.Configure(cfg.Environment)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := openStores(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to open storage: %v", err)
	}
	defer stores.Close()

	cache := newMediaCache(ctx, cfg)
	defer cache.Close()

	wsManager := websocket.NewManager()
	wsManager.Start(ctx)

	var sharedChannels []string
	if cfg.Trade.ChannelID != "" {
		sharedChannels = append(sharedChannels, cfg.Trade.ChannelID)
	}
	gateway := websocket.NewGateway(botUserID, wsManager, sharedChannels...)

	rateLimiter := ratelimit.NewRateLimiter(nil)
	rateLimiter.StartCleanupRoutine(ctx)

	defaultLifetime, extendedLifetime := cfg.Trade.Lifetimes()
	tradeUseCase := usecase.NewTradeUseCase(
		stores.listings,
		stores.settings,
		gateway,
		cache.mediaCache(),
		rateLimiter,
		clock.Real(),
		usecase.TradeConfig{
			ChannelID:        cfg.Trade.ChannelID,
			GuildID:          cfg.Trade.GuildID,
			ExtendedRoleID:   cfg.Trade.ExtendedRoleID,
			DefaultLifetime:  defaultLifetime,
			ExtendedLifetime: extendedLifetime,
			LinkBase:         cfg.Trade.LinkBase,
		},
	)
	if err := tradeUseCase.Init(ctx); err != nil {
		logger.Warn("Trading disabled, listings could not be restored: %v", err)
	}
	defer tradeUseCase.Shutdown()

	handler.Setup(tradeUseCase, gateway, wsManager, append(stores.checks, cache.checks...)...)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(cfg.BridgeSecret)
	if cfg.BridgeSecret == "" {
		logger.Warn("BRIDGE_SECRET is not set; identity headers are trusted without a shared secret")
	}
	router.Setup(e, authMiddleware, rateLimiter, tradeUseCase.Enabled)

	go func() {
		logger.Info("Starting server on port %s...", cfg.ServerPort)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server stopped: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed: %v", err)
	}
}
