package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// Vertex calls Gemini models through Vertex AI.
type Vertex struct {
	client *genai.Client
	model  string
}

func NewVertex(ctx context.Context, project, location, model string) (*Vertex, error) {
	if project == "" || location == "" {
		return nil, fmt.Errorf("vertex: project and location are required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  project,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &Vertex{client: client, model: model}, nil
}

func (v *Vertex) Name() string { return ProviderVertex }

func (v *Vertex) Generate(ctx context.Context, req Request) (string, error) {
	contents := []*genai.Content{genai.NewContentFromText(req.Prompt, genai.RoleUser)}

	res, err := v.client.Models.GenerateContent(ctx, v.model, contents, generateConfig(req))
	if err != nil {
		return "", &Error{Provider: ProviderVertex, Err: err}
	}
	text := res.Text()
	if text == "" {
		return "", &Error{Provider: ProviderVertex, Err: ErrEmptyResponse}
	}
	return text, nil
}

func generateConfig(req Request) *genai.GenerateContentConfig {
	temp := req.Temperature
	cfg := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: req.MaxOutputTokens,
	}
	if req.System != "" {
		cfg.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	if req.JSON {
		cfg.ResponseMIMEType = "application/json"
	}
	return cfg
}
