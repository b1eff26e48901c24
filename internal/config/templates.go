package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Upstox Analyst Configuration

[api]
# Upstox REST API base URL
base_url = "https://api-v2.upstox.com"
# OAuth redirect URI registered with the Upstox app
redirect_uri = "http://localhost:8100/callback"
# Instrument master download URL (gzip JSON)
instrument_url = "https://assets.upstox.com/market-quote/instruments/exchange/complete.json.gz"
# HTTP timeout in seconds
timeout_secs = 30

[cache]
# Candle/quote cache TTL in seconds
ttl_secs = 300
# Maximum cached entries
max_entries = 256

[chat]
# Enable Grok-generated narrative insights
insights_enabled = false
# Model for insights
model = "grok-2-latest"
# Maximum completion tokens
max_tokens = 1024

[ui]
# Enable colored output
color_enabled = true
# Date format
date_format = "02-Jan-2006"
# Time format
time_format = "15:04:05"
`

const credentialsTemplate = `# Upstox Analyst Credentials
# WARNING: Keep this file secure! Do not commit to version control.

[upstox]
client_id = ""
client_secret = ""

[xai]
api_key = ""
base_url = "https://api.x.ai/v1"
`

func createTemplateConfig(configDir, name string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, name+".toml")
	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return fmt.Errorf("config file not found, created template at %s", path)
}

func createTemplateCredentials(configDir string) error {
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	path := filepath.Join(configDir, "credentials.toml")
	// Use restricted permissions for credentials file
	if err := os.WriteFile(path, []byte(credentialsTemplate), 0600); err != nil {
		return fmt.Errorf("writing credentials template: %w", err)
	}

	return fmt.Errorf("credentials file not found, created template at %s", path)
}
