// Package config loads BriefBot settings from a YAML file layered with
// environment variables.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Credentials holds provider API keys and model policy. An absent key
// disables the corresponding channel; that is never an error.
type Credentials struct {
	OpenAIKey string `yaml:"openai_key"`
	XAIKey    string `yaml:"xai_key"`

	OpenAIModelPolicy string `yaml:"openai_model_policy"` // pinned|auto
	OpenAIModelPin    string `yaml:"openai_model_pin"`
	XAIModelPolicy    string `yaml:"xai_model_policy"` // pinned|latest
	XAIModelPin       string `yaml:"xai_model_pin"`
}

// HasAny reports whether at least one provider credential is present.
func (c Credentials) HasAny() bool {
	return c.OpenAIKey != "" || c.XAIKey != ""
}

// Config is the full settings surface.
type Config struct {
	Credentials Credentials `yaml:"credentials"`

	CacheDir     string `yaml:"cache_dir"`
	CacheBackend string `yaml:"cache_backend"` // file|redis
	RedisAddr    string `yaml:"redis_addr"`

	FixturesDir string `yaml:"fixtures_dir"`
	DatabaseURL string `yaml:"database_url"`

	Debug bool `yaml:"debug"`
}

// Load reads path (optional) and then overlays environment variables.
func Load(path string) (*Config, error) {
	cfg := &Config{
		CacheBackend: "file",
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	overlayEnv(cfg)
	applyDefaults(cfg)
	return cfg, nil
}

func overlayEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.Credentials.OpenAIKey, "OPENAI_API_KEY")
	set(&cfg.Credentials.XAIKey, "XAI_API_KEY")
	set(&cfg.Credentials.OpenAIModelPin, "BRIEFBOT_OPENAI_MODEL")
	set(&cfg.Credentials.XAIModelPin, "BRIEFBOT_XAI_MODEL")
	set(&cfg.CacheDir, "BRIEFBOT_CACHE_DIR")
	set(&cfg.CacheBackend, "BRIEFBOT_CACHE_BACKEND")
	set(&cfg.RedisAddr, "BRIEFBOT_REDIS_ADDR")
	set(&cfg.FixturesDir, "BRIEFBOT_FIXTURES_DIR")
	set(&cfg.DatabaseURL, "BRIEFBOT_DATABASE_URL")
	if os.Getenv("BRIEFBOT_DEBUG") == "1" {
		cfg.Debug = true
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Credentials.OpenAIModelPolicy == "" {
		if cfg.Credentials.OpenAIModelPin != "" {
			cfg.Credentials.OpenAIModelPolicy = "pinned"
		} else {
			cfg.Credentials.OpenAIModelPolicy = "auto"
		}
	}
	if cfg.Credentials.XAIModelPolicy == "" {
		if cfg.Credentials.XAIModelPin != "" {
			cfg.Credentials.XAIModelPolicy = "pinned"
		} else {
			cfg.Credentials.XAIModelPolicy = "latest"
		}
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "file"
	}
}
