package mediacache

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/zeebo/blake3"
	"golang.org/x/sync/errgroup"

	"tradeboard/internal/domain/entity"
	"tradeboard/internal/domain/service"
	"tradeboard/pkg/logger"
)

const (
	defaultPrefix  = "trade-images"
	maxObjectBytes = 25 << 20
	uploadWorkers  = 4
)

// Placeholder fragments from the sample configuration. A base URL that
// still contains one of them was never filled in.
var placeholderFragments = []string{"<", "optional-prefix", "public-url-to-bucket"}

type Options struct {
	BaseURL    string
	Prefix     string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Cache copies attachments into an object store so that their URLs stay
// valid after the source message is gone.
type Cache struct {
	store      service.ObjectStore
	baseURL    string
	prefix     string
	timeout    time.Duration
	httpClient *http.Client
}

// New returns a cache backed by store. A nil store gives a cache that
// returns every attachment unchanged.
func New(store service.ObjectStore, opts Options) *Cache {
	prefix := defaultPrefix
	if opts.Prefix != "" {
		prefix = strings.Trim(opts.Prefix, "/")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	return &Cache{
		store:      store,
		baseURL:    strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/"),
		prefix:     prefix,
		timeout:    timeout,
		httpClient: client,
	}
}

func (c *Cache) validBase() bool {
	if !strings.HasPrefix(c.baseURL, "http") {
		return false
	}
	for _, fragment := range placeholderFragments {
		if strings.Contains(c.baseURL, fragment) {
			return false
		}
	}
	return true
}

// CheckConnection probes the backing store once. It is informational:
// a failing store only means attachments keep their original URLs.
func (c *Cache) CheckConnection(ctx context.Context) error {
	if c.store == nil {
		logger.Info("media cache: object store not configured")
		return nil
	}
	if err := c.store.Ping(ctx); err != nil {
		logger.Warn("media cache: connectivity check failed %s", logger.Fields("store", c.store.Name(), "error", err))
		return err
	}
	logger.Info("media cache: connectivity ok %s", logger.Fields("store", c.store.Name()))
	return nil
}

// Cache returns a copy of attachments with CachedURL set on every entry
// that was re-hosted. Order and length are preserved.
func (c *Cache) Cache(ctx context.Context, attachments []entity.Attachment, contextKey string) []entity.Attachment {
	if len(attachments) == 0 {
		return attachments
	}

	results := make([]entity.Attachment, len(attachments))
	copy(results, attachments)

	if c.store == nil {
		return results
	}
	if !c.validBase() {
		logger.Warn("media cache: invalid public base URL, using original %s", logger.Fields("base_url", c.baseURL))
		return results
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadWorkers)
	for i := range results {
		if results[i].URL == "" {
			continue
		}
		i := i
		g.Go(func() error {
			attachment := results[i]
			fileName := BuildFileName(attachment, contextKey, i)
			key := fileName
			if c.prefix != "" {
				key = c.prefix + "/" + fileName
			}

			if !c.upload(gctx, attachment.URL, key) {
				logger.Warn("media cache: upload failed, using original %s", logger.Fields("index", i, "source", attachment.URL))
				return nil
			}

			publicURL := c.baseURL + "/"
			if c.prefix != "" {
				publicURL += c.prefix + "/"
			}
			publicURL += url.PathEscape(fileName)
			results[i].CachedURL = publicURL
			logger.Debug("media cache: cached %s", logger.Fields("index", i, "key", key, "url", publicURL))
			return nil
		})
	}
	g.Wait()

	return results
}

// upload copies sourceURL into key unless the object already exists.
func (c *Cache) upload(ctx context.Context, sourceURL, key string) bool {
	exists, err := c.store.Exists(ctx, key)
	if err != nil {
		logger.Warn("media cache: exists check failed %s", logger.Fields("key", key, "error", err))
		return false
	}
	if exists {
		return true
	}

	body, contentType, err := c.fetch(ctx, sourceURL)
	if err != nil {
		logger.Warn("media cache: download failed %s", logger.Fields("source", sourceURL, "error", err))
		return false
	}

	if err := c.store.Put(ctx, key, body, contentType); err != nil {
		logger.Warn("media cache: put failed %s", logger.Fields("key", key, "error", err))
		return false
	}
	return true
}

func (c *Cache) fetch(ctx context.Context, sourceURL string) ([]byte, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if resp.ContentLength > maxObjectBytes {
		return nil, "", fmt.Errorf("source is %d bytes, over the %d byte limit", resp.ContentLength, maxObjectBytes)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxObjectBytes+1))
	if err != nil {
		return nil, "", err
	}
	if len(body) > maxObjectBytes {
		return nil, "", fmt.Errorf("source exceeds the %d byte limit", maxObjectBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" || strings.HasPrefix(contentType, "application/octet-stream") {
		contentType = mimetype.Detect(body).String()
	}
	return body, contentType, nil
}

// BuildFileName derives a stable object name so that re-caching the same
// attachment under the same context key reuses the stored copy.
func BuildFileName(attachment entity.Attachment, contextKey string, index int) string {
	suffix := extensionFromName(attachment.Name)
	if suffix == "" {
		suffix = extensionFromType(attachment.ContentType)
	}
	if suffix == "" {
		suffix = ".bin"
	}

	source := attachment.ID
	if source == "" {
		source = attachment.URL
	}
	if source == "" {
		source = "att"
	}

	sum := blake3.Sum256([]byte(fmt.Sprintf("%s-%s-%d", source, contextKey, index)))
	return fmt.Sprintf("%s-%s%s", contextKey, hex.EncodeToString(sum[:])[:12], suffix)
}

func extensionFromName(name string) string {
	ext := path.Ext(name)
	if len(ext) > 5 {
		return ""
	}
	return ext
}

func extensionFromType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	subtype, ok := strings.CutPrefix(strings.TrimSpace(mediaType), "image/")
	if !ok || subtype == "" {
		return ""
	}
	subtype = strings.Replace(subtype, "+xml", "", 1)
	subtype = strings.Replace(subtype, "+json", "", 1)
	return "." + subtype
}
