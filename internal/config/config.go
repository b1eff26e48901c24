// Package config provides configuration management for the analyst application.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	API         APIConfig   `mapstructure:"api"`
	Cache       CacheConfig `mapstructure:"cache"`
	Chat        ChatConfig  `mapstructure:"chat"`
	UI          UIConfig    `mapstructure:"ui"`
	Credentials Credentials `mapstructure:"-"` // Loaded separately
}

// APIConfig holds market API configuration.
type APIConfig struct {
	BaseURL       string `mapstructure:"base_url"`
	RedirectURI   string `mapstructure:"redirect_uri"`
	InstrumentURL string `mapstructure:"instrument_url"`
	TimeoutSecs   int    `mapstructure:"timeout_secs"`
}

// CacheConfig holds data cache configuration.
type CacheConfig struct {
	TTLSecs    int `mapstructure:"ttl_secs"`
	MaxEntries int `mapstructure:"max_entries"`
}

// ChatConfig holds conversational surface configuration.
type ChatConfig struct {
	InsightsEnabled bool   `mapstructure:"insights_enabled"`
	Model           string `mapstructure:"model"`
	MaxTokens       int    `mapstructure:"max_tokens"`
}

// UIConfig holds UI-related configuration.
type UIConfig struct {
	ColorEnabled bool   `mapstructure:"color_enabled"`
	DateFormat   string `mapstructure:"date_format"`
	TimeFormat   string `mapstructure:"time_format"`
}

// Credentials holds API credentials.
type Credentials struct {
	Upstox UpstoxCredentials `mapstructure:"upstox"`
	XAI    XAICredentials    `mapstructure:"xai"`
}

// UpstoxCredentials holds Upstox API credentials.
type UpstoxCredentials struct {
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

// XAICredentials holds x.ai (Grok) API credentials.
type XAICredentials struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
}

// DefaultConfigDir returns the default configuration directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/upstox-analyst"
	}
	return filepath.Join(home, ".config", "upstox-analyst")
}

// Load loads configuration from the specified directory.
// If configDir is empty, uses the default config directory.
func Load(configDir string) (*Config, error) {
	if configDir == "" {
		configDir = DefaultConfigDir()
	}

	cfg := &Config{}

	// Load main config
	if err := loadConfigFile(configDir, "config", cfg); err != nil {
		return nil, fmt.Errorf("loading config.toml: %w", err)
	}

	// Load credentials
	if err := loadCredentials(configDir, &cfg.Credentials); err != nil {
		return nil, fmt.Errorf("loading credentials.toml: %w", err)
	}

	// Apply environment variable overrides
	applyEnvOverrides(cfg)

	applyDefaults(cfg)

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func loadConfigFile(configDir, name string, target interface{}) error {
	v := viper.New()
	v.SetConfigName(name)
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found, create template
			return createTemplateConfig(configDir, name)
		}
		return err
	}

	return v.Unmarshal(target)
}

func loadCredentials(configDir string, creds *Credentials) error {
	v := viper.New()
	v.SetConfigName("credentials")
	v.SetConfigType("toml")
	v.AddConfigPath(configDir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return createTemplateCredentials(configDir)
		}
		return err
	}

	return v.Unmarshal(creds)
}

func applyEnvOverrides(cfg *Config) {
	// Upstox credentials
	if v := os.Getenv("UPSTOX_CLIENT_ID"); v != "" {
		cfg.Credentials.Upstox.ClientID = v
	}
	if v := os.Getenv("UPSTOX_CLIENT_SECRET"); v != "" {
		cfg.Credentials.Upstox.ClientSecret = v
	}
	if v := os.Getenv("UPSTOX_REDIRECT_URI"); v != "" {
		cfg.API.RedirectURI = v
	}

	// Grok credentials
	if v := os.Getenv("XAI_API_KEY"); v != "" {
		cfg.Credentials.XAI.APIKey = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.API.BaseURL == "" {
		cfg.API.BaseURL = "https://api-v2.upstox.com"
	}
	if cfg.API.InstrumentURL == "" {
		cfg.API.InstrumentURL = "https://assets.upstox.com/market-quote/instruments/exchange/complete.json.gz"
	}
	if cfg.API.RedirectURI == "" {
		cfg.API.RedirectURI = "http://localhost:8100/callback"
	}
	if cfg.API.TimeoutSecs <= 0 {
		cfg.API.TimeoutSecs = 30
	}
	if cfg.Cache.TTLSecs <= 0 {
		cfg.Cache.TTLSecs = 300
	}
	if cfg.Cache.MaxEntries <= 0 {
		cfg.Cache.MaxEntries = 256
	}
	if cfg.Chat.Model == "" {
		cfg.Chat.Model = "grok-2-latest"
	}
	if cfg.Chat.MaxTokens <= 0 {
		cfg.Chat.MaxTokens = 1024
	}
	if cfg.Credentials.XAI.BaseURL == "" {
		cfg.Credentials.XAI.BaseURL = "https://api.x.ai/v1"
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Cache.TTLSecs < 0 {
		return fmt.Errorf("cache ttl_secs must be non-negative")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("cache max_entries must be non-negative")
	}
	if c.Chat.InsightsEnabled && c.Credentials.XAI.APIKey == "" {
		return fmt.Errorf("insights enabled but no xai api_key configured")
	}
	return nil
}

// HasUpstoxCredentials reports whether the Upstox app keys are present.
func (c *Config) HasUpstoxCredentials() bool {
	return c.Credentials.Upstox.ClientID != "" && c.Credentials.Upstox.ClientSecret != ""
}
