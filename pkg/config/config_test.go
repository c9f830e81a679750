package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TRADE_CHANNEL_ID", "board-1")
	t.Setenv("TRADE_CONFIG_FILE", "")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), "")
	require.NoError(t, err)

	assert.Equal(t, "board-1", cfg.Trade.ChannelID)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "trade-images", cfg.ImageCache.S3Prefix)
	assert.Equal(t, 15*time.Second, cfg.ImageCache.Timeout())
}

func TestLoadYAMLOverlay(t *testing.T) {
	t.Setenv("TRADE_CHANNEL_ID", "from-env")
	t.Setenv("TRADE_DB_DRIVER", "sqlite")

	path := filepath.Join(t.TempDir(), "tradeboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
trade:
  channel_id: from-file
  duration_default: 2h
database:
  driver: postgres
  url: postgres://localhost/trades
`), 0o600))

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"), path)
	require.NoError(t, err)

	assert.Equal(t, "from-file", cfg.Trade.ChannelID)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, "postgres://localhost/trades", cfg.Database.URL)
	assert.Equal(t, "2h", cfg.Trade.DefaultDuration)
}

func TestLifetimes(t *testing.T) {
	t.Run("defaults without extended role", func(t *testing.T) {
		def, ext := TradeConfig{}.Lifetimes()
		assert.Equal(t, time.Minute, def)
		assert.Equal(t, time.Minute, ext)
	})

	t.Run("extended role falls back to two minutes", func(t *testing.T) {
		def, ext := TradeConfig{ExtendedRoleID: "vip"}.Lifetimes()
		assert.Equal(t, time.Minute, def)
		assert.Equal(t, 2*time.Minute, ext)
	})

	t.Run("explicit durations", func(t *testing.T) {
		def, ext := TradeConfig{DefaultDuration: "1h", ExtendedDuration: "1d"}.Lifetimes()
		assert.Equal(t, time.Hour, def)
		assert.Equal(t, 24*time.Hour, ext)
	})

	t.Run("garbage falls back", func(t *testing.T) {
		def, _ := TradeConfig{DefaultDuration: "soon"}.Lifetimes()
		assert.Equal(t, time.Minute, def)
	})
}

func TestImageCacheActive(t *testing.T) {
	assert.False(t, ImageCacheConfig{}.Active())
	assert.True(t, ImageCacheConfig{BaseURL: "https://cdn.example.com"}.Active())
	assert.True(t, ImageCacheConfig{S3Endpoint: "https://s3.example.com"}.Active())
}
