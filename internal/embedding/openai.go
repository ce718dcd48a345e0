package embedding

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const (
	openaiMaxAttempts  = 3
	openaiBaseBackoff  = 500 * time.Millisecond
	openaiMaxBatchSize = 64
)

// OpenAIEmbedder produces embeddings via the OpenAI embeddings API. Requests
// are rate limited client-side and retried with exponential backoff on
// transient failures.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      string
	dimensions int
	limiter    *rate.Limiter
	cache      *EmbeddingCache
}

// OpenAIConfig holds the settings for the OpenAI embedder.
type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	Dimensions        int
	RequestsPerMinute int
	CacheSize         int
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI embeddings API.
func NewOpenAIEmbedder(cfg OpenAIConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedder requires an API key")
	}
	if cfg.Model == "" {
		cfg.Model = string(openai.SmallEmbedding3)
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = 1536
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 60
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 1000
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		limiter:    rate.NewLimiter(rate.Limit(float64(cfg.RequestsPerMinute)/60.0), cfg.RequestsPerMinute),
		cache:      NewEmbeddingCache(cfg.CacheSize),
	}, nil
}

// Embed returns the embedding for text, using cache when available.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if cached, ok := e.cache.Get(text); ok {
		return cached, nil
	}
	embs, err := e.request(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	e.cache.Set(text, embs[0])
	return embs[0], nil
}

// EmbedBatch embeds texts in API-sized chunks, preserving order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += openaiMaxBatchSize {
		end := start + openaiMaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		embs, err := e.request(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, embs...)
	}
	return out, nil
}

func (e *OpenAIEmbedder) request(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error
	for attempt := 0; attempt < openaiMaxAttempts; attempt++ {
		if attempt > 0 {
			backoff := openaiBaseBackoff << (attempt - 1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrVectorization, ctx.Err())
			}
		}
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrVectorization, err)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input:      texts,
			Model:      openai.EmbeddingModel(e.model),
			Dimensions: e.dimensions,
		})
		if err != nil {
			lastErr = err
			if retryableOpenAIError(err) {
				continue
			}
			return nil, fmt.Errorf("%w: %v", ErrVectorization, err)
		}
		if len(resp.Data) != len(texts) {
			return nil, fmt.Errorf("%w: expected %d embeddings, got %d", ErrVectorization, len(texts), len(resp.Data))
		}

		out := make([][]float32, len(texts))
		for _, d := range resp.Data {
			if len(d.Embedding) != e.dimensions {
				return nil, fmt.Errorf("%w: embedding has %d dimensions, want %d", ErrVectorization, len(d.Embedding), e.dimensions)
			}
			emb := make([]float32, e.dimensions)
			copy(emb, d.Embedding)
			NormalizeL2Slice(emb)
			out[d.Index] = emb
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: %d attempts exhausted: %v", ErrVectorization, openaiMaxAttempts, lastErr)
}

// retryableOpenAIError reports whether the API error is transient.
func retryableOpenAIError(err error) bool {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode == http.StatusTooManyRequests || apiErr.HTTPStatusCode >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}

// Dimensions returns the embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// Close is a no-op for OpenAIEmbedder.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
