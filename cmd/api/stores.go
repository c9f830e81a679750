package main

import (
	"context"
	"database/sql"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/redis/go-redis/v9"
	"google.golang.org/api/option"

	"tradeboard/internal/adapter/api/handler"
	"tradeboard/internal/adapter/repository"
	domainrepo "tradeboard/internal/domain/repository"
	"tradeboard/internal/infrastructure/database"
	"tradeboard/pkg/config"
	"tradeboard/pkg/logger"
)

type stores struct {
	listings domainrepo.ListingRepository
	settings domainrepo.SettingsRepository
	checks   []handler.HealthCheck
	closers  []func() error
}

func (s *stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			logger.Warn("Failed to close store: %v", err)
		}
	}
}

// openStores picks the listing backend from TRADE_DB_DRIVER and the
// settings backend from SETTINGS_DRIVER.
func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	s := &stores{}

	switch cfg.Database.Driver {
	case "firestore":
		var opts []option.ClientOption
		if cfg.GoogleCredentials != "" {
			opts = append(opts, option.WithCredentialsFile(cfg.GoogleCredentials))
		}
		client, err := firestore.NewClient(ctx, cfg.Database.FirestoreProject, opts...)
		if err != nil {
			return nil, fmt.Errorf("create firestore client: %w", err)
		}
		s.closers = append(s.closers, client.Close)
		s.listings = repository.NewFirestoreListingRepository(client)
		s.settings = repository.NewFirestoreSettingsRepository(client)
		logger.Info("Listings stored in Firestore %s", logger.Fields("project", cfg.Database.FirestoreProject))

	default:
		db, err := database.Open(cfg.Database.Driver, cfg.Database.Path, cfg.Database.URL)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, db.Close)
		if err := database.Migrate(ctx, db); err != nil {
			s.Close()
			return nil, err
		}
		s.listings = repository.NewSQLListingRepository(db)
		s.settings = repository.NewSQLSettingsRepository(db)
		s.checks = append(s.checks, handler.HealthCheck{Name: "database", Check: pingDB(db)})
		logger.Info("Listings stored in SQL database %s", logger.Fields("driver", cfg.Database.Driver))
	}

	if cfg.Database.SettingsDriver == "redis" {
		if cfg.Database.RedisURL == "" {
			s.Close()
			return nil, fmt.Errorf("SETTINGS_DRIVER=redis requires REDIS_URL")
		}
		opts, err := redis.ParseURL(cfg.Database.RedisURL)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		client := redis.NewClient(opts)
		s.closers = append(s.closers, client.Close)
		s.settings = repository.NewRedisSettingsRepository(client)
		s.checks = append(s.checks, handler.HealthCheck{
			Name:  "redis",
			Check: func(ctx context.Context) error { return client.Ping(ctx).Err() },
		})
	}

	return s, nil
}

func pingDB(db *sql.DB) func(context.Context) error {
	return func(ctx context.Context) error {
		return db.PingContext(ctx)
	}
}
