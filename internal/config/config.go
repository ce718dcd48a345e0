// Package config provides configuration loading and structs for the TalentMatch server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/talentmatch/talentmatch/internal/scoring"
)

// Config holds all configuration for the application.
type Config struct {
	Debug     bool            `yaml:"debug"`
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Matching  MatchingConfig  `yaml:"matching"`
	Inbox     InboxConfig     `yaml:"inbox"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StorageConfig holds paths for the database and index snapshots.
type StorageConfig struct {
	DatabasePath       string `yaml:"database_path"`
	CandidateIndexPath string `yaml:"candidate_index_path"`
	PostingIndexPath   string `yaml:"posting_index_path"`
}

// EmbeddingConfig holds embedder settings. Provider is "onnx", "openai", or "mock".
type EmbeddingConfig struct {
	Provider   string       `yaml:"provider"`
	ModelPath  string       `yaml:"model_path"`
	Dimensions int          `yaml:"dimensions"`
	MaxTokens  int          `yaml:"max_tokens"`
	CacheSize  int          `yaml:"cache_size"`
	OpenAI     OpenAIConfig `yaml:"openai"`
}

// OpenAIConfig holds OpenAI API settings. APIKey falls back to the
// OPENAI_API_KEY environment variable when empty.
type OpenAIConfig struct {
	APIKey            string `yaml:"api_key"`
	BaseURL           string `yaml:"base_url"`
	Model             string `yaml:"model"`
	RequestsPerMinute int    `yaml:"requests_per_minute"`
}

// MatchingConfig holds scoring weights and matching engine tuning.
type MatchingConfig struct {
	Weights             scoring.Weights `yaml:"weights"`
	EmbedTimeoutSeconds int             `yaml:"embed_timeout_seconds"`
	ReindexBatchSize    int             `yaml:"reindex_batch_size"`
	ReindexConcurrency  int             `yaml:"reindex_concurrency"`
}

// InboxConfig holds CV inbox auto-ingest settings. Files dropped into the
// directory are parsed and indexed automatically.
type InboxConfig struct {
	Directory  string   `yaml:"directory"`
	Extensions []string `yaml:"extensions"`
}

// Load reads and parses the config file at path, expands paths, and applies defaults.
// Returns an error if the file cannot be read or parsed, or if the matching
// weights do not validate.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	ApplyDefaults(&cfg)
	if err := cfg.Matching.Weights.Validate(); err != nil {
		return nil, err
	}

	configDir := filepath.Dir(path)
	cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, configDir)
	cfg.Storage.CandidateIndexPath = expandPath(cfg.Storage.CandidateIndexPath, configDir)
	cfg.Storage.PostingIndexPath = expandPath(cfg.Storage.PostingIndexPath, configDir)
	cfg.Embedding.ModelPath = expandPath(cfg.Embedding.ModelPath, configDir)
	if cfg.Inbox.Directory != "" {
		cfg.Inbox.Directory = expandPath(cfg.Inbox.Directory, configDir)
	}
	if cfg.Embedding.OpenAI.APIKey == "" {
		cfg.Embedding.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	}

	return &cfg, nil
}

// Save writes the config to path. Used for persisting admin parameter changes.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
