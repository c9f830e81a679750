package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Options configures any S3-compatible endpoint (AWS, R2, MinIO).
type S3Options struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

type S3Client struct {
	client     *minio.Client
	bucketName string
	endpoint   string
	secure     bool
}

func NewS3Client(opts S3Options) (*S3Client, error) {
	if opts.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	host, secure, err := splitEndpoint(opts.Endpoint, opts.UseSSL)
	if err != nil {
		return nil, err
	}

	region := opts.Region
	if region == "auto" {
		region = ""
	}

	client, err := minio.New(host, &minio.Options{
		Creds:        credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure:       secure,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %v", err)
	}

	return &S3Client{
		client:     client,
		bucketName: opts.Bucket,
		endpoint:   host,
		secure:     secure,
	}, nil
}

// splitEndpoint accepts "host:port" or a full URL; a scheme in the URL
// overrides useSSL.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return "", false, fmt.Errorf("s3 endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), useSSL, nil
	}

	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, fmt.Errorf("invalid s3 endpoint %q: %v", endpoint, err)
	}
	if u.Host == "" {
		return "", false, fmt.Errorf("invalid s3 endpoint %q", endpoint)
	}
	return u.Host, u.Scheme == "https", nil
}

func (c *S3Client) Name() string {
	return "s3:" + c.bucketName
}

func (c *S3Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.client.StatObject(ctx, c.bucketName, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	switch minio.ToErrorResponse(err).Code {
	case "NoSuchKey", "NotFound":
		return false, nil
	}
	return false, fmt.Errorf("failed to stat object: %v", err)
}

func (c *S3Client) Put(ctx context.Context, key string, body []byte, contentType string) error {
	_, err := c.client.PutObject(ctx, c.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: "public, max-age=86400",
		UserMetadata: map[string]string{"x-amz-acl": "public-read"},
	})
	if err != nil {
		return fmt.Errorf("failed to upload object: %v", err)
	}
	return nil
}

func (c *S3Client) Ping(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucketName)
	if err != nil {
		return fmt.Errorf("failed to reach bucket: %v", err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", c.bucketName)
	}
	return nil
}

// PublicURL is the path-style base URL of the bucket.
func (c *S3Client) PublicURL() string {
	scheme := "http"
	if c.secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, c.endpoint, c.bucketName)
}
