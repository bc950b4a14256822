package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github/itish2003/cricketbot/config"
	"github/itish2003/cricketbot/models"
)

// ErrUnknownProvider is returned when a config names a provider this build
// does not support.
var ErrUnknownProvider = errors.New("unknown provider")

const (
	defaultCohereBaseURL = "https://api.cohere.ai"
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "nomic-embed-text:v1.5"
	cohereMaxBatch       = 96
)

// NewEmbedder builds the embedding client named by cfg.Provider.
func NewEmbedder(cfg config.EmbeddingConfig, httpClient *http.Client) (embeddings.Embedder, error) {
	switch cfg.Provider {
	case "cohere":
		return NewCohereEmbedder(config.Secret(cfg.APIKeyEnv), cfg.Model, cfg.BaseURL, cfg.BatchSize, httpClient), nil
	case "openai":
		opts := []openai.Option{
			openai.WithToken(config.Secret(cfg.APIKeyEnv)),
			openai.WithEmbeddingModel(cfg.Model),
		}
		if cfg.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.BaseURL))
		}
		client, err := openai.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("could not create openai embedding client: %w", err)
		}
		return embeddings.NewEmbedder(client, embeddings.WithBatchSize(max(cfg.BatchSize, 1)))
	case "ollama":
		return newOllamaEmbedder(cfg, httpClient)
	default:
		return nil, fmt.Errorf("%w: embedding provider %q", ErrUnknownProvider, cfg.Provider)
	}
}

// CohereEmbedder calls Cohere's /v1/embed endpoint. Documents and queries are
// embedded with different input types, as v3 models require.
type CohereEmbedder struct {
	httpClient *http.Client
	apiKey     string
	model      string
	baseURL    string
	batchSize  int
}

func NewCohereEmbedder(apiKey, model, baseURL string, batchSize int, httpClient *http.Client) *CohereEmbedder {
	if baseURL == "" {
		baseURL = defaultCohereBaseURL
	}
	if batchSize <= 0 || batchSize > cohereMaxBatch {
		batchSize = cohereMaxBatch
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &CohereEmbedder{
		httpClient: httpClient,
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
		batchSize:  batchSize,
	}
}

// EmbedDocuments embeds texts for storage, batching requests.
func (e *CohereEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for _, batch := range embeddings.BatchTexts(texts, e.batchSize) {
		vectors, err := e.embed(ctx, batch, "search_document")
		if err != nil {
			return nil, err
		}
		out = append(out, vectors...)
	}
	return out, nil
}

// EmbedQuery embeds a single search query.
func (e *CohereEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text}, "search_query")
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *CohereEmbedder) embed(ctx context.Context, texts []string, inputType string) ([][]float32, error) {
	reqBody, err := json.Marshal(models.CohereEmbedRequest{
		Texts:     texts,
		Model:     e.model,
		InputType: inputType,
		Truncate:  "END",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal cohere request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/embed", bytes.NewReader(reqBody))
	if err != nil {
		return nil, fmt.Errorf("failed to create cohere http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call cohere embed api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("cohere api returned non-200 status: %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	var cohereResp models.CohereEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&cohereResp); err != nil {
		return nil, fmt.Errorf("failed to decode cohere response: %w", err)
	}
	if len(cohereResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("cohere returned %d embeddings for %d texts", len(cohereResp.Embeddings), len(texts))
	}
	return cohereResp.Embeddings, nil
}

func newOllamaEmbedder(cfg config.EmbeddingConfig, httpClient *http.Client) (embeddings.Embedder, error) {
	model := cfg.Model
	if model == "" {
		model = defaultOllamaModel
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	// ollama.WithServerURL exits the process on a bad URL.
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, fmt.Errorf("invalid ollama base url %q: %w", baseURL, err)
	}

	opts := []ollama.Option{
		ollama.WithModel(model),
		ollama.WithServerURL(baseURL),
	}
	if httpClient != nil {
		opts = append(opts, ollama.WithHTTPClient(httpClient))
	}
	client, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create ollama embedding client: %w", err)
	}
	return embeddings.NewEmbedder(client, embeddings.WithStripNewLines(false))
}
