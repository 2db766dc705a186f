// Package gemini provides a ContentGenerator implementation using Google's Gemini API.
//
// This provider uses the Gemini API backend via the official Go SDK:
// https://github.com/googleapis/go-genai
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/mhpenta/tryon"
)

// GeminiGenerator implements tryon.ContentGenerator using Google's Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// Ensure GeminiGenerator implements the interface.
var _ tryon.ContentGenerator = (*GeminiGenerator)(nil)

// Config configures the Gemini client.
type Config struct {
	// APIKey for authentication. Required.
	APIKey string

	// BaseURL for custom endpoints (optional)
	BaseURL string

	// HTTPClient overrides the transport (optional)
	HTTPClient *http.Client
}

// ErrMissingAPIKey is returned when no API key is configured.
var ErrMissingAPIKey = errors.New("gemini: API key is required")

// New creates a new GeminiGenerator. The credential is taken from cfg only;
// the SDK's environment lookup is never relied on.
func New(ctx context.Context, cfg Config) (*GeminiGenerator, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	clientCfg := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiGenerator{
		client: client,
	}, nil
}

// NewWithAPIKey creates a generator with an API key for Gemini API.
func NewWithAPIKey(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	return New(ctx, Config{APIKey: apiKey})
}

// GenerateContent sends one request to the model.
func (g *GeminiGenerator) GenerateContent(ctx context.Context, req *tryon.Request) (*tryon.Response, error) {
	contents := buildContents(req)
	genConfig := buildGenerateContentConfig(req)

	result, err := g.client.Models.GenerateContent(ctx, string(req.Model), contents, genConfig)
	if err != nil {
		return nil, convertError(err, req.Model)
	}

	return convertResponse(result), nil
}

// Models returns the model definitions supported by this provider.
func (g *GeminiGenerator) Models() []tryon.ModelInfo {
	return []tryon.ModelInfo{
		FlashImageInfo,
		ProInfo,
		FlashInfo,
	}
}

// Close releases any resources held by the generator.
func (g *GeminiGenerator) Close() error {
	// The genai.Client doesn't require explicit closing in the current SDK
	return nil
}

// buildContents puts every image before the prompt in a single user turn.
func buildContents(req *tryon.Request) []*genai.Content {
	parts := make([]*genai.Part, 0, len(req.Images)+1)
	for _, img := range req.Images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{
				Data:     img.Data,
				MIMEType: img.MIMEType,
			},
		})
	}
	if req.Prompt != "" {
		parts = append(parts, genai.NewPartFromText(req.Prompt))
	}

	return []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
}

// buildGenerateContentConfig converts the request's output settings.
func buildGenerateContentConfig(req *tryon.Request) *genai.GenerateContentConfig {
	genConfig := &genai.GenerateContentConfig{}

	if req.SystemInstruction != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemInstruction, genai.RoleUser)
	}

	switch req.Output {
	case tryon.OutputImage:
		genConfig.ResponseModalities = []string{string(genai.ModalityImage)}
	case tryon.OutputJSON:
		genConfig.ResponseMIMEType = "application/json"
		if req.Schema != nil {
			genConfig.ResponseSchema = convertSchema(req.Schema)
		}
	}

	return genConfig
}

func convertSchema(s *tryon.Schema) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(s.Properties)),
		Required:   s.Required,
	}
	for _, p := range s.Properties {
		schema.Properties[p.Name] = &genai.Schema{
			Type:        genai.TypeString,
			Description: p.Description,
		}
		schema.PropertyOrdering = append(schema.PropertyOrdering, p.Name)
	}
	return schema
}

// convertResponse converts the Gemini response to the provider-neutral type.
func convertResponse(result *genai.GenerateContentResponse) *tryon.Response {
	resp := &tryon.Response{}
	if result == nil {
		return resp
	}

	if fb := result.PromptFeedback; fb != nil && fb.BlockReason != "" {
		resp.BlockReason = string(fb.BlockReason)
		resp.BlockReasonMessage = fb.BlockReasonMessage
	}

	for _, candidate := range result.Candidates {
		if candidate == nil {
			continue
		}
		c := tryon.Candidate{FinishReason: string(candidate.FinishReason)}
		if candidate.Content != nil {
			for _, part := range candidate.Content.Parts {
				if part == nil || part.Thought {
					continue
				}
				p := tryon.Part{Text: part.Text}
				if part.InlineData != nil && len(part.InlineData.Data) > 0 {
					p.Image = &tryon.GeneratedImage{
						Data:     part.InlineData.Data,
						MIMEType: part.InlineData.MIMEType,
					}
				}
				c.Parts = append(c.Parts, p)
			}
		}
		resp.Candidates = append(resp.Candidates, c)
	}

	resp.Text = result.Text()

	if result.UsageMetadata != nil {
		resp.UsageMetadata = &tryon.UsageMetadata{
			PromptTokens:     int(result.UsageMetadata.PromptTokenCount),
			CandidatesTokens: int(result.UsageMetadata.CandidatesTokenCount),
			TotalTokens:      int(result.UsageMetadata.TotalTokenCount),
		}
	}

	return resp
}

// convertError maps SDK API errors onto *tryon.APIError so retry
// classification can use the status code and canonical status.
func convertError(err error, model tryon.Model) error {
	if err == nil {
		return nil
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("model %s: %w", model, err)
	}

	return &tryon.APIError{
		Code:    apiErr.Code,
		Status:  apiErr.Status,
		Message: apiErr.Message,
		Model:   string(model),
		Err:     err,
	}
}
