package service

import "context"

// ObjectStore is a remote bucket that serves its objects publicly.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	// Put uploads body under key with public-read visibility.
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Ping(ctx context.Context) error
	Name() string
}
