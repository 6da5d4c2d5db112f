// Package config loads service configuration from an optional TOML file
// with environment-variable overrides. API credentials are read from the
// environment only and never from the file.
package config

import (
	"os"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/matzehuels/diagramflow/pkg/confidence"
	"github.com/matzehuels/diagramflow/pkg/errors"
	"github.com/matzehuels/diagramflow/pkg/extract"
)

// Config holds every tunable of the service.
type Config struct {
	// ListenAddr is the HTTP bind address. DIAGRAMFLOW_LISTEN overrides.
	ListenAddr string `toml:"listen"`

	// Storage selects the persistence backend: "file" (default),
	// "memory", "redis", or "mongo". DIAGRAMFLOW_STORAGE overrides.
	Storage string `toml:"storage"`

	// DataDir is the root directory of the file backend.
	// DIAGRAMFLOW_DATA_DIR overrides.
	DataDir string `toml:"data_dir"`

	Redis RedisConfig `toml:"redis"`
	Mongo MongoConfig `toml:"mongo"`

	// Provider is the default extraction provider, "openai" or "gemini".
	// DIAGRAMFLOW_PROVIDER overrides.
	Provider string `toml:"provider"`

	// Threshold flags nodes below this confidence for review.
	Threshold float64 `toml:"threshold"`

	// UpstreamTimeout bounds a single extraction call, e.g. "30s".
	UpstreamTimeout duration `toml:"upstream_timeout"`

	// OpenAIKey and GeminiKey come from OPENAI_API_KEY and
	// GEMINI_API_KEY only.
	OpenAIKey string `toml:"-"`
	GeminiKey string `toml:"-"`
}

// RedisConfig configures the redis backend.
type RedisConfig struct {
	Addr     string `toml:"addr"`     // DIAGRAMFLOW_REDIS_ADDR
	Password string `toml:"password"` // DIAGRAMFLOW_REDIS_PASSWORD
	DB       int    `toml:"db"`
}

// MongoConfig configures the mongo backend.
type MongoConfig struct {
	URI      string `toml:"uri"`      // DIAGRAMFLOW_MONGO_URI
	Database string `toml:"database"` // DIAGRAMFLOW_MONGO_DB
}

// duration lets TOML carry values like "30s".
type duration struct {
	time.Duration
}

func (d *duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		ListenAddr:      ":8000",
		Storage:         "file",
		DataDir:         "data",
		Redis:           RedisConfig{Addr: "localhost:6379"},
		Mongo:           MongoConfig{URI: "mongodb://localhost:27017", Database: "diagramflow"},
		Provider:        string(extract.ProviderOpenAI),
		Threshold:       confidence.DefaultThreshold,
		UpstreamTimeout: duration{extract.DefaultTimeout},
	}
}

// Load reads path when non-empty, then applies environment overrides. A
// missing explicit path is INVALID_INPUT; an empty path skips the file.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "read config %s", path)
		}
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "parse config %s", path)
		}
	}

	cfg.ListenAddr = envOrDefault("DIAGRAMFLOW_LISTEN", cfg.ListenAddr)
	cfg.Storage = envOrDefault("DIAGRAMFLOW_STORAGE", cfg.Storage)
	cfg.DataDir = envOrDefault("DIAGRAMFLOW_DATA_DIR", cfg.DataDir)
	cfg.Redis.Addr = envOrDefault("DIAGRAMFLOW_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envOrDefault("DIAGRAMFLOW_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Mongo.URI = envOrDefault("DIAGRAMFLOW_MONGO_URI", cfg.Mongo.URI)
	cfg.Mongo.Database = envOrDefault("DIAGRAMFLOW_MONGO_DB", cfg.Mongo.Database)
	cfg.Provider = envOrDefault("DIAGRAMFLOW_PROVIDER", cfg.Provider)
	cfg.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	cfg.GeminiKey = os.Getenv("GEMINI_API_KEY")

	switch cfg.Storage {
	case "file", "memory", "redis", "mongo":
	default:
		return Config{}, errors.New(errors.ErrCodeInvalidInput, "unknown storage backend %q", cfg.Storage)
	}

	return cfg, nil
}

// Timeout returns the configured upstream timeout, falling back to the
// extraction default when unset.
func (c Config) Timeout() time.Duration {
	if c.UpstreamTimeout.Duration <= 0 {
		return extract.DefaultTimeout
	}
	return c.UpstreamTimeout.Duration
}

// ExtractConfig assembles the extraction client configuration.
func (c Config) ExtractConfig() extract.Config {
	return extract.Config{
		OpenAIKey: c.OpenAIKey,
		GeminiKey: c.GeminiKey,
		Timeout:   c.Timeout(),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
