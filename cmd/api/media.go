package main

import (
	"context"
	"fmt"

	"tradeboard/internal/adapter/api/handler"
	"tradeboard/internal/domain/service"
	"tradeboard/internal/infrastructure/mediacache"
	"tradeboard/internal/infrastructure/storage"
	"tradeboard/pkg/config"
	"tradeboard/pkg/logger"
)

type mediaStack struct {
	cache  *mediacache.Cache
	checks []handler.HealthCheck
	close  func() error
}

func (m *mediaStack) mediaCache() service.MediaCache {
	if m.cache == nil {
		return nil
	}
	return m.cache
}

func (m *mediaStack) Close() {
	if m.close == nil {
		return
	}
	if err := m.close(); err != nil {
		logger.Warn("Failed to close object store: %v", err)
	}
}

// newMediaCache builds the re-hosting cache when it is configured. It
// never fails: a store that cannot be built leaves the cache off, and one
// that cannot be reached is kept. Either way attachments fall back to their
// original URLs.
func newMediaCache(ctx context.Context, cfg *config.Config) *mediaStack {
	stack := &mediaStack{}
	if !cfg.ImageCache.Active() {
		logger.Info("Image cache disabled; attachments keep their original URLs")
		return stack
	}

	store, publicURL, closeStore, err := newObjectStore(ctx, cfg)
	if err != nil {
		logger.Warn("Image cache disabled, object store not usable %s", logger.Fields("store", cfg.ImageCache.Store, "error", err))
		return stack
	}
	stack.close = closeStore

	baseURL := cfg.ImageCache.BaseURL
	if baseURL == "" {
		baseURL = publicURL
	}

	cache := mediacache.New(store, mediacache.Options{
		BaseURL: baseURL,
		Prefix:  cfg.ImageCache.S3Prefix,
		Timeout: cfg.ImageCache.Timeout(),
	})
	if err := cache.CheckConnection(ctx); err != nil {
		logger.Warn("Image cache store unreachable, continuing %s", logger.Fields("store", store.Name(), "error", err))
	} else {
		logger.Info("Image cache ready %s", logger.Fields("store", store.Name(), "base", baseURL))
	}

	stack.cache = cache
	stack.checks = append(stack.checks, handler.HealthCheck{Name: "image_cache", Check: cache.CheckConnection})
	return stack
}

func newObjectStore(ctx context.Context, cfg *config.Config) (service.ObjectStore, string, func() error, error) {
	switch cfg.ImageCache.Store {
	case "gcs":
		client, err := storage.NewCloudStorageClient(ctx, cfg.ImageCache.GCSBucket, cfg.GoogleCredentials)
		if err != nil {
			return nil, "", nil, err
		}
		return client, client.PublicURL(), client.Close, nil
	case "s3", "":
		client, err := storage.NewS3Client(storage.S3Options{
			Endpoint:  cfg.ImageCache.S3Endpoint,
			Bucket:    cfg.ImageCache.S3Bucket,
			Region:    cfg.ImageCache.S3Region,
			AccessKey: cfg.ImageCache.S3AccessKey,
			SecretKey: cfg.ImageCache.S3SecretKey,
			UseSSL:    cfg.ImageCache.S3UseSSL,
		})
		if err != nil {
			return nil, "", nil, err
		}
		return client, client.PublicURL(), nil, nil
	}
	return nil, "", nil, fmt.Errorf("unsupported image store: %s", cfg.ImageCache.Store)
}
