package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"tradeboard/pkg/duration"
)

const (
	fallbackDefaultLifetime  = 60 * time.Second
	fallbackExtendedLifetime = 120 * time.Second
	fallbackFetchTimeout     = 15 * time.Second
)

type Config struct {
	ServerPort   string `yaml:"server_port"`
	Environment  string `yaml:"environment"`
	BridgeSecret string `yaml:"bridge_secret"`
	// Service account file shared by the Firestore and Cloud Storage
	// clients. Empty means application default credentials.
	GoogleCredentials string `yaml:"google_credentials"`

	Trade      TradeConfig      `yaml:"trade"`
	Database   DatabaseConfig   `yaml:"database"`
	ImageCache ImageCacheConfig `yaml:"image_cache"`
}

type TradeConfig struct {
	ChannelID        string `yaml:"channel_id"`
	GuildID          string `yaml:"guild_id"`
	ExtendedRoleID   string `yaml:"extended_role_id"`
	DefaultDuration  string `yaml:"duration_default"`
	ExtendedDuration string `yaml:"duration_extended"`
	LinkBase         string `yaml:"link_base"`
}

type DatabaseConfig struct {
	Driver           string `yaml:"driver"` // "sqlite" | "postgres" | "firestore"
	Path             string `yaml:"path"`
	URL              string `yaml:"url"`
	FirestoreProject string `yaml:"firestore_project"`
	SettingsDriver   string `yaml:"settings_driver"` // "db" | "redis"
	RedisURL         string `yaml:"redis_url"`
}

type ImageCacheConfig struct {
	Enabled      bool   `yaml:"enabled"`
	BaseURL      string `yaml:"base_url"`
	Store        string `yaml:"store"` // "s3" | "gcs"
	S3Endpoint   string `yaml:"s3_endpoint"`
	S3Bucket     string `yaml:"s3_bucket"`
	S3Prefix     string `yaml:"s3_prefix"`
	S3Region     string `yaml:"s3_region"`
	S3AccessKey  string `yaml:"s3_access_key"`
	S3SecretKey  string `yaml:"s3_secret_key"`
	S3UseSSL     bool   `yaml:"s3_use_ssl"`
	GCSBucket    string `yaml:"gcs_bucket"`
	FetchTimeout string `yaml:"fetch_timeout"`
}

// Load reads envFile (when present), the process environment and finally
// the YAML file named by configFile or TRADE_CONFIG_FILE. Keys set in the
// YAML file win.
func Load(envFile, configFile string) (*Config, error) {
	if envFile == "" {
		envFile = ".env"
	}
	godotenv.Load(envFile)

	config := &Config{
		ServerPort:        getEnv("SERVER_PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		BridgeSecret:      getEnv("BRIDGE_SECRET", ""),
		GoogleCredentials: getEnv("GOOGLE_SERVICE_ACCOUNT_PATH", ""),
		Trade: TradeConfig{
			ChannelID:        getEnv("TRADE_CHANNEL_ID", ""),
			GuildID:          getEnv("TRADE_GUILD_ID", ""),
			ExtendedRoleID:   getEnv("TRADE_EXTENDED_ROLE_ID", ""),
			DefaultDuration:  getEnv("TRADE_DURATION_DEFAULT", ""),
			ExtendedDuration: getEnv("TRADE_DURATION_EXTENDED", ""),
			LinkBase:         getEnv("TRADE_LINK_BASE", "https://discord.com/channels"),
		},
		Database: DatabaseConfig{
			Driver:           getEnv("TRADE_DB_DRIVER", "sqlite"),
			Path:             getEnv("TRADE_DB_PATH", "./data/trades.sqlite"),
			URL:              getEnv("TRADE_DATABASE_URL", ""),
			FirestoreProject: getEnv("FIRESTORE_PROJECT_ID", ""),
			SettingsDriver:   getEnv("SETTINGS_DRIVER", "db"),
			RedisURL:         getEnv("REDIS_URL", ""),
		},
		ImageCache: ImageCacheConfig{
			Enabled:      getEnvAsBool("TRADE_IMAGE_CACHE", false),
			BaseURL:      getEnv("TRADE_IMAGE_BASE_URL", ""),
			Store:        getEnv("TRADE_IMAGE_STORE", "s3"),
			S3Endpoint:   getEnv("TRADE_IMAGE_S3_ENDPOINT", ""),
			S3Bucket:     getEnv("TRADE_IMAGE_S3_BUCKET", ""),
			S3Prefix:     getEnv("TRADE_IMAGE_S3_PREFIX", "trade-images"),
			S3Region:     getEnv("TRADE_IMAGE_S3_REGION", "auto"),
			S3AccessKey:  getEnv("TRADE_IMAGE_S3_ACCESS_KEY", ""),
			S3SecretKey:  getEnv("TRADE_IMAGE_S3_SECRET_KEY", ""),
			S3UseSSL:     getEnvAsBool("TRADE_IMAGE_S3_USE_SSL", true),
			GCSBucket:    getEnv("TRADE_IMAGE_GCS_BUCKET", ""),
			FetchTimeout: getEnv("TRADE_IMAGE_FETCH_TIMEOUT", ""),
		},
	}

	if configFile == "" {
		configFile = getEnv("TRADE_CONFIG_FILE", "")
	}
	if configFile != "" {
		raw, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, config); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", configFile, err)
		}
	}

	return config, nil
}

// Lifetimes resolves the default and extended listing lifetimes. Without
// an explicit extended duration, holders of the extended role get two
// minutes when the role is configured and the default otherwise.
func (t TradeConfig) Lifetimes() (defaultLifetime, extendedLifetime time.Duration) {
	defaultLifetime = duration.ParseOr(t.DefaultDuration, fallbackDefaultLifetime)

	extendedFallback := defaultLifetime
	if t.ExtendedRoleID != "" {
		extendedFallback = fallbackExtendedLifetime
	}
	extendedLifetime = duration.ParseOr(t.ExtendedDuration, extendedFallback)
	return defaultLifetime, extendedLifetime
}

// Active reports whether any part of the image cache was configured.
func (c ImageCacheConfig) Active() bool {
	return c.Enabled || c.BaseURL != "" || c.S3Endpoint != "" || c.GCSBucket != ""
}

func (c ImageCacheConfig) Timeout() time.Duration {
	return duration.ParseOr(c.FetchTimeout, fallbackFetchTimeout)
}

func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "production")
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		boolValue, err := strconv.ParseBool(value)
		if err == nil {
			return boolValue
		}
	}
	return defaultValue
}
