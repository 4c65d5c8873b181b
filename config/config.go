// Package config loads server and CLI configuration from an optional YAML
// file and the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"clausewise-backend/apperr"
	"clausewise-backend/storage"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// PathEnv names the variable holding the YAML config path.
const PathEnv = "CLAUSEWISE_CONFIG"

const (
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
)

// Config holds all configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Google   GoogleConfig   `yaml:"google"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Storage  storage.Config `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
	Location LocationConfig `yaml:"location"`
}

type ServerConfig struct {
	Port string `yaml:"port"`
}

// LLMConfig configures the completion backend.
type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	APIKey      string  `yaml:"-"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	Timeout     string  `yaml:"timeout"`
}

// GoogleConfig configures the location APIs. Keys come only from the
// environment.
type GoogleConfig struct {
	PlacesAPIKey      string `yaml:"-"`
	GeolocationAPIKey string `yaml:"-"`

	// BaseURL replaces the Google API hosts, for proxies and local fakes.
	BaseURL      string `yaml:"base_url"`
	RadiusMeters int    `yaml:"radius_meters"`
	Timeout      string `yaml:"timeout"`
}

// DatabaseConfig enables the document registry when URL is set.
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig enables Redis-backed sessions when Addr is set.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"-"`
	DB         int    `yaml:"db"`
	SessionTTL string `yaml:"session_ttl"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type LocationConfig struct {
	MaxPositionAge string `yaml:"max_position_age"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{Port: "8080"},
		LLM: LLMConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.5-flash",
			Temperature: 0.2,
			Timeout:     "60s",
		},
		Google: GoogleConfig{
			RadiusMeters: 5000,
			Timeout:      "10s",
		},
		Redis: RedisConfig{SessionTTL: "24h"},
		Storage: storage.Config{
			Type:      storage.TypeLocal,
			LocalPath: "./storage/files",
			S3Region:  "us-east-1",
		},
		Log:      LogConfig{Level: "info"},
		Location: LocationConfig{MaxPositionAge: "60s"},
	}
}

// LoadDotEnv loads .env from the working directory or the project root.
// A missing file is not an error.
func LoadDotEnv() bool {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../../.env"); err != nil {
			return false
		}
	}
	return true
}

// Load reads the YAML file at path, when present, then applies environment
// overrides. An empty path uses CLAUSEWISE_CONFIG.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		path = os.Getenv(PathEnv)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.applyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	setString := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				*dst = v
				return
			}
		}
	}

	setString(&c.Server.Port, "PORT")

	setString(&c.LLM.Provider, "LLM_PROVIDER")
	setString(&c.LLM.APIKey, "GEMINI_API_KEY", "GOOGLE_API_KEY")
	setString(&c.LLM.Model, "GEMINI_MODEL")
	setString(&c.LLM.Timeout, "LLM_TIMEOUT")
	if v := os.Getenv("LLM_TEMPERATURE"); v != "" {
		if t, err := strconv.ParseFloat(v, 32); err == nil {
			c.LLM.Temperature = float32(t)
		}
	}

	setString(&c.Google.PlacesAPIKey, "GOOGLE_PLACES_API_KEY")
	setString(&c.Google.GeolocationAPIKey, "GOOGLE_GEOLOCATION_API_KEY")
	setString(&c.Google.BaseURL, "GOOGLE_MAPS_BASE_URL")

	setString(&c.Database.URL, "DATABASE_URL")

	setString(&c.Redis.Addr, "REDIS_ADDR")
	setString(&c.Redis.Password, "REDIS_PASSWORD")
	setString(&c.Redis.SessionTTL, "SESSION_TTL")
	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.Redis.DB = db
		}
	}

	if v := os.Getenv("STORAGE_TYPE"); v != "" {
		c.Storage.Type = storage.Type(v)
	}
	setString(&c.Storage.LocalPath, "STORAGE_LOCAL_PATH")
	setString(&c.Storage.S3Bucket, "AWS_S3_BUCKET")
	setString(&c.Storage.S3Region, "AWS_REGION")
	setString(&c.Storage.S3Endpoint, "AWS_S3_ENDPOINT")
	setString(&c.Storage.AWSAccessKey, "AWS_ACCESS_KEY_ID")
	setString(&c.Storage.AWSSecretKey, "AWS_SECRET_ACCESS_KEY")

	setString(&c.Log.Level, "LOG_LEVEL")
	if v := os.Getenv("LOG_DEVELOPMENT"); v != "" {
		c.Log.Development, _ = strconv.ParseBool(v)
	}
}

// Validate checks values that cannot be fixed by defaults.
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case ProviderGemini, ProviderOffline:
	default:
		return fmt.Errorf("unknown llm provider %q", c.LLM.Provider)
	}
	for name, v := range map[string]string{
		"llm.timeout":               c.LLM.Timeout,
		"google.timeout":            c.Google.Timeout,
		"redis.session_ttl":         c.Redis.SessionTTL,
		"location.max_position_age": c.Location.MaxPositionAge,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, v, err)
		}
	}
	return nil
}

// GeminiAPIKey returns the key or ConfigurationMissing.
func (c *Config) GeminiAPIKey() (string, error) {
	if strings.TrimSpace(c.LLM.APIKey) == "" {
		return "", apperr.ConfigurationMissing("config", "GEMINI_API_KEY")
	}
	return c.LLM.APIKey, nil
}

// GeolocationKey falls back to the places key.
func (c *Config) GeolocationKey() string {
	if c.Google.GeolocationAPIKey != "" {
		return c.Google.GeolocationAPIKey
	}
	return c.Google.PlacesAPIKey
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}

// LLMTimeout returns the per-call completion timeout.
func (c *Config) LLMTimeout() time.Duration { return duration(c.LLM.Timeout) }

// GoogleTimeout returns the per-call location API timeout.
func (c *Config) GoogleTimeout() time.Duration { return duration(c.Google.Timeout) }

// SessionTTL returns how long idle sessions are kept in Redis.
func (c *Config) SessionTTL() time.Duration { return duration(c.Redis.SessionTTL) }

// MaxPositionAge returns how old a client position may be.
func (c *Config) MaxPositionAge() time.Duration { return duration(c.Location.MaxPositionAge) }
