package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"google.golang.org/genai"

	"github/itish2003/cricketbot/config"
)

const nvidiaBaseURL = "https://integrate.api.nvidia.com/v1"

// NewChatModel builds the answer model named by cfg.Model.
func NewChatModel(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (llms.Model, error) {
	return newModel(ctx, cfg, cfg.Model, false, httpClient)
}

// NewQueryModel builds the model used for structured query construction. It
// falls back to the answer model when no query model is configured.
func NewQueryModel(ctx context.Context, cfg config.LLMConfig, httpClient *http.Client) (llms.Model, error) {
	model := cfg.QueryModel
	if model == "" {
		model = cfg.Model
	}
	return newModel(ctx, cfg, model, true, httpClient)
}

func newModel(ctx context.Context, cfg config.LLMConfig, model string, structured bool, httpClient *http.Client) (llms.Model, error) {
	var (
		base llms.Model
		err  error
	)
	switch cfg.Provider {
	case "nvidia", "openai":
		base, err = newOpenAICompatible(cfg, model, httpClient)
	case "gemini":
		var schema *genai.Schema
		if structured {
			schema = StructuredQuerySchema()
		}
		base, err = NewGeminiModel(ctx, config.Secret(cfg.APIKeyEnv), model, schema, httpClient)
	default:
		return nil, fmt.Errorf("%w: llm provider %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return NewResilientModel(base, cfg.Timeout, cfg.MaxRetries, cfg.RetryBackoff, cfg.RequestsPerSecond), nil
}

func newOpenAICompatible(cfg config.LLMConfig, model string, httpClient *http.Client) (llms.Model, error) {
	baseURL := cfg.BaseURL
	if baseURL == "" && cfg.Provider == "nvidia" {
		baseURL = nvidiaBaseURL
	}
	opts := []openai.Option{
		openai.WithToken(config.Secret(cfg.APIKeyEnv)),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, openai.WithHTTPClient(httpClient))
	}
	client, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("could not create %s client for %s: %w", cfg.Provider, model, err)
	}
	return client, nil
}
