package similarity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// EmbeddingConfig configures the Ollama-backed embedding provider.
type EmbeddingConfig struct {
	// URL is the Ollama base URL (default http://localhost:11434).
	URL string

	// Model is the embedding model name (default nomic-embed-text).
	Model string

	// RequestsPerSecond limits embedding calls (default 5).
	RequestsPerSecond float64

	// Timeout bounds each HTTP request (default 30s).
	Timeout time.Duration

	// Breaker tunes the circuit breaker.
	Breaker BreakerConfig

	// Cache optionally persists vectors between runs (see VectorCache).
	Cache VectorCache
}

// EmbeddingProvider scores similarity as the cosine of two embedding
// vectors fetched from an Ollama server. Calls are rate limited and wrapped
// in a circuit breaker; when the server is down or the circuit is open it
// returns ErrBackendUnavailable so callers can degrade to the Jaccard
// fallback.
type EmbeddingProvider struct {
	url     string
	model   string
	client  *http.Client
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
	cache   VectorCache
}

// NewEmbeddingProvider creates the provider, filling unset config with
// defaults.
func NewEmbeddingProvider(cfg EmbeddingConfig) *EmbeddingProvider {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "nomic-embed-text"
	}
	if cfg.RequestsPerSecond == 0 {
		cfg.RequestsPerSecond = 5
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &EmbeddingProvider{
		url:     cfg.URL,
		model:   cfg.Model,
		client:  &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1),
		breaker: newBreaker("embedding-backend", cfg.Breaker),
		cache:   cfg.Cache,
	}
}

// Name implements Provider.
func (p *EmbeddingProvider) Name() string {
	return "ollama/" + p.model
}

// Score implements Provider as cosine similarity of the two embeddings,
// clamped to [0,1].
func (p *EmbeddingProvider) Score(ctx context.Context, a, b string) (float64, error) {
	va, err := p.Embed(ctx, a)
	if err != nil {
		return 0, err
	}
	vb, err := p.Embed(ctx, b)
	if err != nil {
		return 0, err
	}
	score := Cosine(va, vb)
	// Cosine of embedding vectors is near-always positive; clamp the rare
	// negative so callers can treat the score as a [0,1] similarity.
	if score < 0 {
		score = 0
	}
	return score, nil
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// Embed returns the embedding vector for one text, consulting the cache
// first when configured.
func (p *EmbeddingProvider) Embed(ctx context.Context, text string) ([]float32, error) {
	if p.cache != nil {
		if vec, ok, err := p.cache.Get(ctx, p.model, text); err == nil && ok {
			return vec, nil
		}
	}

	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	result, err := p.breaker.Execute(func() (interface{}, error) {
		return p.fetchEmbedding(ctx, text)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return nil, fmt.Errorf("%w: circuit open", ErrBackendUnavailable)
		}
		return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	vec := result.([]float32)

	if p.cache != nil {
		if err := p.cache.Put(ctx, p.model, text, vec); err != nil {
			// Cache failures only cost recomputation next run.
			return vec, nil
		}
	}
	return vec, nil
}

func (p *EmbeddingProvider) fetchEmbedding(ctx context.Context, text string) ([]float32, error) {
	payload, err := json.Marshal(embedRequest{Model: p.model, Prompt: text})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.url+"/api/embeddings", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("embedding request failed: status %d: %s", resp.StatusCode, body)
	}

	var er embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&er); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(er.Embedding) == 0 {
		return nil, fmt.Errorf("embedding response was empty")
	}
	return er.Embedding, nil
}

// Healthy probes the backend with a short deadline.
func (p *EmbeddingProvider) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// Cosine computes cosine similarity of two vectors. Mismatched or empty
// vectors score 0.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
