package config

import "github.com/talentmatch/talentmatch/internal/scoring"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/talentmatch/data/db/talentmatch.db"
	}
	if cfg.Storage.CandidateIndexPath == "" {
		cfg.Storage.CandidateIndexPath = "/usr/local/var/talentmatch/data/indices/candidates.idx"
	}
	if cfg.Storage.PostingIndexPath == "" {
		cfg.Storage.PostingIndexPath = "/usr/local/var/talentmatch/data/indices/postings.idx"
	}
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = "onnx"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/talentmatch/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Embedding.OpenAI.Model == "" {
		cfg.Embedding.OpenAI.Model = "text-embedding-3-small"
	}
	if cfg.Embedding.OpenAI.RequestsPerMinute == 0 {
		cfg.Embedding.OpenAI.RequestsPerMinute = 60
	}

	zero := scoring.Weights{}
	if cfg.Matching.Weights == zero {
		cfg.Matching.Weights = scoring.DefaultWeights()
	}
	if cfg.Matching.Weights.ExperienceTarget == 0 {
		cfg.Matching.Weights.ExperienceTarget = 3
	}
	if cfg.Matching.EmbedTimeoutSeconds == 0 {
		cfg.Matching.EmbedTimeoutSeconds = 30
	}
	if cfg.Matching.ReindexBatchSize == 0 {
		cfg.Matching.ReindexBatchSize = 100
	}
	if cfg.Matching.ReindexConcurrency == 0 {
		cfg.Matching.ReindexConcurrency = 4
	}

	if cfg.Inbox.Extensions == nil {
		cfg.Inbox.Extensions = []string{".pdf", ".docx", ".odt", ".rtf", ".txt", ".md"}
	}
}
