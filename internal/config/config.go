// Package config loads DocStudio settings from a YAML file with environment
// overrides, and writes the settings form back to disk.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	kyaml "github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"gopkg.in/yaml.v3"
)

const (
	envPrefix    = "DOCSTUDIO_"
	configDirEnv = "DOCSTUDIO_CONFIG_DIR"

	defaultBaseURL  = "http://localhost:8000"
	defaultLanguage = "en-US"
	defaultTimeout  = 10 * time.Second
)

// Config is the full settings surface. The third-party keys are captured for
// the backend's benefit only; the client never validates or uses them.
type Config struct {
	API  APIConfig  `koanf:"api" yaml:"api"`
	ASR  ASRConfig  `koanf:"asr" yaml:"asr"`
	Keys KeysConfig `koanf:"keys" yaml:"keys"`
}

// APIConfig points the client at the backend.
type APIConfig struct {
	BaseURL string        `koanf:"base_url" yaml:"base_url"`
	Timeout time.Duration `koanf:"timeout" yaml:"timeout"`
}

// ASRConfig holds speech-to-text preferences.
type ASRConfig struct {
	Language string `koanf:"language" yaml:"language"`
}

// KeysConfig holds the third-party service credentials from the settings form.
type KeysConfig struct {
	GraniteAPIKey  string `koanf:"granite_api_key" yaml:"granite_api_key"`
	PineconeAPIKey string `koanf:"pinecone_api_key" yaml:"pinecone_api_key"`
}

// DefaultPath resolves the config file location, honoring DOCSTUDIO_CONFIG_DIR.
func DefaultPath() (string, error) {
	if dir := os.Getenv(configDirEnv); dir != "" {
		return filepath.Join(dir, "config.yaml"), nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve config dir: %w", err)
	}
	return filepath.Join(base, "docstudio", "config.yaml"), nil
}

// Load reads configuration with precedence env > file > defaults. A missing
// file is not an error; an empty path uses DefaultPath.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		resolved, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	if content, err := os.ReadFile(path); err == nil {
		if err := k.Load(rawbytes.Provider(content), kyaml.Parser()); err != nil {
			return nil, fmt.Errorf("parse config file %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	// DOCSTUDIO_API_BASE_URL -> api.base_url, DOCSTUDIO_ASR_LANGUAGE ->
	// asr.language, DOCSTUDIO_KEYS_GRANITE_API_KEY -> keys.granite_api_key.
	if err := k.Load(env.Provider(envPrefix, ".", func(s string) string {
		trimmed := strings.ToLower(strings.TrimPrefix(s, envPrefix))
		parts := strings.SplitN(trimmed, "_", 2)
		if len(parts) == 1 {
			return trimmed
		}
		return parts[0] + "." + parts[1]
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment overrides: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

// Save writes the settings form back to path, creating parent directories.
// Credentials go in, so the file is not group or world readable.
func Save(path string, cfg *Config) error {
	if path == "" {
		resolved, err := DefaultPath()
		if err != nil {
			return err
		}
		path = resolved
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = defaultBaseURL
	}
	if cfg.API.Timeout <= 0 {
		cfg.API.Timeout = defaultTimeout
	}
	if cfg.ASR.Language == "" {
		cfg.ASR.Language = defaultLanguage
	}
}
