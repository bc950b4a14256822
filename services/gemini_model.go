package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"google.golang.org/genai"
)

// GeminiModel adapts a Gemini client to langchaingo's llms.Model.
type GeminiModel struct {
	client *genai.Client
	model  string
	schema *genai.Schema
}

// NewGeminiModel creates a Gemini-backed model. A non-nil schema switches the
// model to JSON output constrained by it.
func NewGeminiModel(ctx context.Context, apiKey, model string, schema *genai.Schema, httpClient *http.Client) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiModel{client: client, model: model, schema: schema}, nil
}

func (g *GeminiModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, g, prompt, options...)
}

func (g *GeminiModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}

	system, contents, err := toGeminiContents(messages)
	if err != nil {
		return nil, err
	}
	config := g.generateConfig(opts)
	config.SystemInstruction = system

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content failed: %w", err)
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: resp.Text()}},
	}, nil
}

func (g *GeminiModel) generateConfig(opts llms.CallOptions) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if opts.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(opts.Temperature))
	}
	if opts.MaxTokens > 0 {
		config.MaxOutputTokens = int32(opts.MaxTokens)
	}
	if g.schema != nil {
		config.ResponseMIMEType = "application/json"
		config.ResponseSchema = g.schema
	}
	return config
}

// toGeminiContents splits system messages into a single system instruction
// and maps the remaining turns onto Gemini's user/model roles.
func toGeminiContents(messages []llms.MessageContent) (*genai.Content, []*genai.Content, error) {
	var (
		systemText []string
		contents   []*genai.Content
	)
	for _, msg := range messages {
		var parts []*genai.Part
		for _, part := range msg.Parts {
			text, ok := part.(llms.TextContent)
			if !ok {
				return nil, nil, fmt.Errorf("unsupported message part %T for gemini", part)
			}
			parts = append(parts, genai.NewPartFromText(text.Text))
		}

		switch msg.Role {
		case llms.ChatMessageTypeSystem:
			for _, p := range parts {
				systemText = append(systemText, p.Text)
			}
		case llms.ChatMessageTypeHuman, llms.ChatMessageTypeGeneric:
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleUser))
		case llms.ChatMessageTypeAI:
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
		default:
			return nil, nil, fmt.Errorf("role %v not supported for gemini", msg.Role)
		}
	}
	if len(contents) == 0 {
		return nil, nil, errors.New("gemini request has no user content")
	}

	var system *genai.Content
	if len(systemText) > 0 {
		system = genai.NewContentFromText(strings.Join(systemText, "\n\n"), genai.RoleUser)
	}
	return system, contents, nil
}
