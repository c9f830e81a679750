package storage

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

type CloudStorageClient struct {
	client     *storage.Client
	bucketName string
}

func NewCloudStorageClient(ctx context.Context, bucketName string, credentialsPath string) (*CloudStorageClient, error) {
	var opts []option.ClientOption
	if credentialsPath != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %v", err)
	}

	return &CloudStorageClient{
		client:     client,
		bucketName: bucketName,
	}, nil
}

func (c *CloudStorageClient) Name() string {
	return "gcs:" + c.bucketName
}

func (c *CloudStorageClient) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.Bucket(c.bucketName).Object(key).Attrs(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat object: %v", err)
	}
	return true, nil
}

func (c *CloudStorageClient) Put(ctx context.Context, key string, body []byte, contentType string) error {
	wc := c.client.Bucket(c.bucketName).Object(key).NewWriter(ctx)
	wc.ContentType = contentType
	wc.CacheControl = "public, max-age=86400"
	wc.PredefinedACL = "publicRead"

	if _, err := wc.Write(body); err != nil {
		wc.Close()
		return fmt.Errorf("failed to write object to GCS: %v", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close writer: %v", err)
	}

	return nil
}

func (c *CloudStorageClient) Ping(ctx context.Context) error {
	if _, err := c.client.Bucket(c.bucketName).Attrs(ctx); err != nil {
		return fmt.Errorf("failed to get bucket attributes: %v", err)
	}
	return nil
}

// PublicURL is the default base for objects in this bucket when no CDN
// base is configured.
func (c *CloudStorageClient) PublicURL() string {
	return fmt.Sprintf("https://storage.googleapis.com/%s", c.bucketName)
}

func (c *CloudStorageClient) Close() error {
	return c.client.Close()
}
