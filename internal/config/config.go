package config

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

type DatabaseConfig struct {
	Path string `toml:"path"`
}

type MediaConfig struct {
	Root         string `toml:"root"`          // photos/, pdf_documents/ live under here
	DownloadRoot string `toml:"download_root"` // DL/ root for persisted .eml files
}

type LLMConfig struct {
	Provider string `toml:"provider"`
	Model    string `toml:"model"`
	APIKey   string `toml:"api_key"`
	BaseURL  string `toml:"base_url"`
}

type GmailConfig struct {
	CredentialsPath string `toml:"credentials_path"`
	TokenCachePath  string `toml:"token_cache_path"`
	User            string `toml:"user"`
}

// Persona is one registered LLM persona: a prompt template with its pinned
// model and temperature. Temperature 0 is reserved for the police persona.
type Persona struct {
	Template    string  `toml:"template"`
	Model       string  `toml:"model"`
	Temperature float32 `toml:"temperature"`
}

type Config struct {
	Database DatabaseConfig     `toml:"database"`
	Media    MediaConfig        `toml:"media"`
	LLM      LLMConfig          `toml:"llm"`
	Gmail    GmailConfig        `toml:"gmail"`
	Personas map[string]Persona `toml:"personas"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}

	cfg.ApplyEnv()
	cfg.applyDefaults()
	return &cfg, nil
}

// ApplyEnv overrides config values from the environment (same knobs the
// .env file carries).
func (c *Config) ApplyEnv() {
	if v := os.Getenv("LLM_PROVIDER"); v != "" {
		c.LLM.Provider = v
	}
	if v := os.Getenv("LLM_MODEL"); v != "" {
		c.LLM.Model = v
	}
	if v := os.Getenv("LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("LLM_BASE_URL"); v != "" {
		c.LLM.BaseURL = v
	}
	if v := os.Getenv("DATABASE_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("MEDIA_ROOT"); v != "" {
		c.Media.Root = v
	}
}

func (c *Config) applyDefaults() {
	if c.Database.Path == "" {
		c.Database.Path = "court-sub000.db"
	}
	if c.Media.Root == "" {
		c.Media.Root = "media"
	}
	if c.Media.DownloadRoot == "" {
		c.Media.DownloadRoot = "DL"
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "gemini"
		c.LLM.Model = "gemini-1.5-pro"
	}
	if c.Gmail.TokenCachePath == "" {
		c.Gmail.TokenCachePath = "token.json"
	}
}
