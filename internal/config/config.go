package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileName is the config file at the project root.
const FileName = "fintrack.yaml"

// Config represents the top-level fintrack.yaml configuration.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Import  ImportConfig  `yaml:"import"`
	AI      AIConfig      `yaml:"ai"`
	Reports ReportsConfig `yaml:"reports"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// StorageConfig locates the database and the category registry file,
// relative to the project root unless absolute.
type StorageConfig struct {
	Database   string `yaml:"database"`
	Categories string `yaml:"categories"`
}

// ImportConfig selects the default CSV format.
type ImportConfig struct {
	Format string `yaml:"format"`
}

// AIConfig controls keyword enrichment.
type AIConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Provider        string `yaml:"provider"` // "anthropic" or "gemini"
	Model           string `yaml:"model"`
	APIKeyEnv       string `yaml:"api_key_env"`
	MaxDescriptions int    `yaml:"max_descriptions"`
}

// APIKey reads the provider key from the environment.
func (c AIConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// ReportsConfig tunes summaries.
type ReportsConfig struct {
	SavingsCategory string `yaml:"savings_category"`
	Currency        string `yaml:"currency"`
}

// ServerConfig is the HTTP API listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// LogConfig sets the default log level.
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads a fintrack.yaml file from disk. Fields missing from the file
// keep their default values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDir loads <root>/fintrack.yaml, falling back to defaults when the
// project has not been initialised. A .env file in root, if any, is loaded
// into the environment first; variables already set win.
func LoadDir(root string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(root, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	cfg, err := Load(filepath.Join(root, FileName))
	if errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// Validate rejects values the rest of the program cannot work with.
func (c *Config) Validate() error {
	switch strings.ToLower(c.AI.Provider) {
	case "anthropic", "gemini":
	default:
		return fmt.Errorf("invalid config: unknown ai provider %q", c.AI.Provider)
	}
	if c.AI.MaxDescriptions <= 0 {
		return fmt.Errorf("invalid config: ai.max_descriptions must be positive, got %d", c.AI.MaxDescriptions)
	}
	if c.Storage.Database == "" || c.Storage.Categories == "" {
		return errors.New("invalid config: storage paths must be set")
	}
	return nil
}

// DatabasePath resolves the database file against root.
func (c *Config) DatabasePath(root string) string {
	return resolve(root, c.Storage.Database)
}

// CategoriesPath resolves the category registry file against root.
func (c *Config) CategoriesPath(root string) string {
	return resolve(root, c.Storage.Categories)
}

func resolve(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Default returns a Config with sensible defaults for a new project.
func Default() *Config {
	return &Config{
		Storage: StorageConfig{
			Database:   "finance.db",
			Categories: "categories.json",
		},
		Import: ImportConfig{
			Format: "statement",
		},
		AI: AIConfig{
			Enabled:         true,
			Provider:        "anthropic",
			Model:           "claude-sonnet-4-5",
			APIKeyEnv:       "ANTHROPIC_API_KEY",
			MaxDescriptions: 20,
		},
		Reports: ReportsConfig{
			SavingsCategory: "Savings",
			Currency:        "€",
		},
		Server: ServerConfig{
			Addr: ":8080",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
