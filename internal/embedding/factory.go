package embedding

import "fmt"

// Settings selects and configures an embedding provider.
type Settings struct {
	Provider   string
	ModelPath  string
	Dimensions int
	MaxTokens  int
	CacheSize  int
	OpenAI     OpenAIConfig
}

// New creates the embedder named by Provider: "onnx", "openai", or "mock".
func New(s Settings) (Embedder, error) {
	switch s.Provider {
	case "onnx":
		return NewONNXEmbedder(s.ModelPath, s.Dimensions, s.MaxTokens, s.CacheSize)
	case "openai":
		cfg := s.OpenAI
		if cfg.Dimensions <= 0 {
			cfg.Dimensions = s.Dimensions
		}
		if cfg.CacheSize <= 0 {
			cfg.CacheSize = s.CacheSize
		}
		return NewOpenAIEmbedder(cfg)
	case "mock":
		return NewMockEmbedder(s.Dimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", s.Provider)
	}
}
