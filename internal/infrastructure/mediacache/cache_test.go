package mediacache

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"tradeboard/internal/domain/entity"
)

type mockObjectStore struct {
	mock.Mock
}

func (m *mockObjectStore) Exists(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *mockObjectStore) Put(ctx context.Context, key string, body []byte, contentType string) error {
	args := m.Called(ctx, key, body, contentType)
	return args.Error(0)
}

func (m *mockObjectStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *mockObjectStore) Name() string {
	return "mock"
}

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

func imageServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/missing.png") {
			http.NotFound(w, r)
			return
		}
		w.Write(pngHeader)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestBuildFileName(t *testing.T) {
	att := entity.Attachment{ID: "123", Name: "photo.jpeg", ContentType: "image/jpeg"}

	name := BuildFileName(att, "trade-42", 0)
	assert.True(t, strings.HasPrefix(name, "trade-42-"))
	assert.True(t, strings.HasSuffix(name, ".jpeg"))
	assert.Len(t, name, len("trade-42-")+12+len(".jpeg"))
	assert.Equal(t, name, BuildFileName(att, "trade-42", 0))
	assert.NotEqual(t, name, BuildFileName(att, "trade-42", 1))

	assert.True(t, strings.HasSuffix(BuildFileName(entity.Attachment{Name: "archive.tar.backup", ContentType: "image/svg+xml"}, "k", 0), ".svg"))
	assert.True(t, strings.HasSuffix(BuildFileName(entity.Attachment{URL: "https://x/y"}, "k", 0), ".bin"))
}

func TestCache_ReHostsAttachments(t *testing.T) {
	server := imageServer(t)
	store := new(mockObjectStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(false, nil)
	store.On("Put", mock.Anything, mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "trade-images/ctx-")
	}), pngHeader, "image/png").Return(nil)

	cache := New(store, Options{BaseURL: "https://cdn.example.com/", Timeout: time.Second})
	in := []entity.Attachment{
		{ID: "1", URL: server.URL + "/a.png", Name: "a.png", ContentType: "image/png"},
		{ID: "2", URL: server.URL + "/b.png", Name: "b.png"},
	}

	out := cache.Cache(context.Background(), in, "ctx")
	require.Len(t, out, 2)
	for i, att := range out {
		assert.Equal(t, in[i].URL, att.URL)
		assert.True(t, strings.HasPrefix(att.CachedURL, "https://cdn.example.com/trade-images/ctx-"), att.CachedURL)
		assert.Equal(t, att.CachedURL, att.DisplayURL())
	}
	assert.Empty(t, in[0].CachedURL)
	store.AssertNumberOfCalls(t, "Put", 2)
}

func TestCache_SkipsUploadWhenObjectExists(t *testing.T) {
	store := new(mockObjectStore)
	store.On("Exists", mock.Anything, mock.Anything).Return(true, nil)

	cache := New(store, Options{BaseURL: "https://cdn.example.com", Prefix: "/media/"})
	out := cache.Cache(context.Background(), []entity.Attachment{{ID: "1", URL: "https://unreachable.invalid/a.png", Name: "a.png"}}, "ctx")

	require.Len(t, out, 1)
	assert.True(t, strings.HasPrefix(out[0].CachedURL, "https://cdn.example.com/media/ctx-"))
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCache_OversizedSourceKeepsOriginal(t *testing.T) {
	oversized := make([]byte, maxObjectBytes+1024)
	copy(oversized, pngHeader)

	tests := []struct {
		name          string
		contentLength bool
	}{
		{"declared length", true},
		{"streamed", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "image/png")
				if tt.contentLength {
					w.Header().Set("Content-Length", strconv.Itoa(len(oversized)))
					w.Write(oversized)
					return
				}
				for offset := 0; offset < len(oversized); offset += 1 << 20 {
					end := min(offset+1<<20, len(oversized))
					if _, err := w.Write(oversized[offset:end]); err != nil {
						return
					}
					w.(http.Flusher).Flush()
				}
			}))
			defer server.Close()

			store := new(mockObjectStore)
			store.On("Exists", mock.Anything, mock.Anything).Return(false, nil)

			cache := New(store, Options{BaseURL: "https://cdn.example.com", Timeout: 10 * time.Second})
			in := []entity.Attachment{{ID: "1", URL: server.URL + "/big.png", Name: "big.png", ContentType: "image/png"}}
			out := cache.Cache(context.Background(), in, "ctx")

			require.Len(t, out, 1)
			assert.Empty(t, out[0].CachedURL)
			assert.Equal(t, in[0].URL, out[0].DisplayURL())
			store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestCache_FallsBackToOriginal(t *testing.T) {
	server := imageServer(t)

	t.Run("unreachable store", func(t *testing.T) {
		store := new(mockObjectStore)
		store.On("Exists", mock.Anything, mock.Anything).Return(false, errors.New("connection refused"))

		cache := New(store, Options{BaseURL: "https://cdn.example.com"})
		out := cache.Cache(context.Background(), []entity.Attachment{{ID: "1", URL: server.URL + "/a.png"}}, "ctx")
		require.Len(t, out, 1)
		assert.Empty(t, out[0].CachedURL)
		assert.Equal(t, server.URL+"/a.png", out[0].DisplayURL())
	})

	t.Run("download fails", func(t *testing.T) {
		store := new(mockObjectStore)
		store.On("Exists", mock.Anything, mock.Anything).Return(false, nil)

		cache := New(store, Options{BaseURL: "https://cdn.example.com"})
		out := cache.Cache(context.Background(), []entity.Attachment{{ID: "1", URL: server.URL + "/missing.png"}}, "ctx")
		assert.Empty(t, out[0].CachedURL)
		store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("placeholder base url", func(t *testing.T) {
		store := new(mockObjectStore)
		cache := New(store, Options{BaseURL: "https://<public-url-to-bucket>"})
		out := cache.Cache(context.Background(), []entity.Attachment{{ID: "1", URL: server.URL + "/a.png"}}, "ctx")
		assert.Empty(t, out[0].CachedURL)
		store.AssertNotCalled(t, "Exists", mock.Anything, mock.Anything)
	})

	t.Run("no store", func(t *testing.T) {
		cache := New(nil, Options{BaseURL: "https://cdn.example.com"})
		out := cache.Cache(context.Background(), []entity.Attachment{{ID: "1", URL: server.URL + "/a.png"}}, "ctx")
		assert.Empty(t, out[0].CachedURL)
		assert.NoError(t, cache.CheckConnection(context.Background()))
	})
}

func TestCache_CheckConnection(t *testing.T) {
	store := new(mockObjectStore)
	store.On("Ping", mock.Anything).Return(errors.New("bucket missing")).Once()
	store.On("Ping", mock.Anything).Return(nil).Once()

	cache := New(store, Options{BaseURL: "https://cdn.example.com"})
	assert.Error(t, cache.CheckConnection(context.Background()))
	assert.NoError(t, cache.CheckConnection(context.Background()))
}
