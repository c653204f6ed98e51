package app

import (
	"fmt"
	"strings"

	"github.com/kelseyhightower/envconfig"

	coreconfig "github.com/m3rciful/arcanumbot/core/config"
	coredatabase "github.com/m3rciful/arcanumbot/core/database"
)

// Session backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = coredatabase.DriverPostgres
	BackendSQLite   = coredatabase.DriverSQLite
)

// DefaultDocumentsRoot is the directory holding arcanum documents.
const DefaultDocumentsRoot = "pdfs"

// SessionsConfig selects where dialogue sessions live.
type SessionsConfig struct {
	Backend string `yaml:"backend" envconfig:"SESSIONS_BACKEND"`
}

// DocumentsConfig locates the arcanum documents.
type DocumentsConfig struct {
	Root      string `yaml:"root" envconfig:"DOCUMENTS_ROOT"`
	Extension string `yaml:"extension" envconfig:"DOCUMENTS_EXTENSION"`
}

// DialogueConfig customises dialogue texts.
type DialogueConfig struct {
	// MessagesFile is an optional YAML file overriding the built-in texts.
	MessagesFile string `yaml:"messages_file" envconfig:"DIALOGUE_MESSAGES_FILE"`
}

// MetricsConfig controls the Prometheus endpoint; an empty Listen disables it.
type MetricsConfig struct {
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config is the bot configuration: the core sections plus bot specific ones.
type Config struct {
	coreconfig.Config `yaml:",inline"`

	Database  coredatabase.Config `yaml:"database"`
	Sessions  SessionsConfig      `yaml:"sessions"`
	Documents DocumentsConfig     `yaml:"documents"`
	Dialogue  DialogueConfig      `yaml:"dialogue"`
	Metrics   MetricsConfig       `yaml:"metrics"`
}

// CoreConfig exposes the embedded core configuration.
func (c *Config) CoreConfig() *coreconfig.Config {
	if c == nil {
		return nil
	}
	return &c.Config
}

// LoadConfig reads the YAML file, overlays the environment and validates the result.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if err := coreconfig.ReadFile(path, &cfg); err != nil {
		return nil, err
	}
	if err := coreconfig.LoadTokenFile(cfg.Telegram.TokenFile); err != nil {
		return nil, err
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize validates the core sections and fills bot defaults.
func (c *Config) Normalize() error {
	if err := coreconfig.Normalize(&c.Config); err != nil {
		return err
	}

	backend := strings.ToLower(strings.TrimSpace(c.Sessions.Backend))
	switch backend {
	case "":
		backend = BackendMemory
	case "postgresql":
		backend = BackendPostgres
	case "sqlite3":
		backend = BackendSQLite
	}
	switch backend {
	case BackendMemory:
	case BackendPostgres, BackendSQLite:
		c.Database.Driver = backend
		if err := c.Database.Normalize(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid sessions.backend %q; allowed: memory, postgres, sqlite", c.Sessions.Backend)
	}
	c.Sessions.Backend = backend

	c.Documents.Root = strings.TrimSpace(c.Documents.Root)
	if c.Documents.Root == "" {
		c.Documents.Root = DefaultDocumentsRoot
	}
	c.Metrics.Listen = strings.TrimSpace(c.Metrics.Listen)
	return nil
}

// Persistent reports whether sessions are kept in a database.
func (c *Config) Persistent() bool {
	return c.Sessions.Backend != BackendMemory
}
