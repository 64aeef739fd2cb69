package suggest

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// Gemini is a Generator backed by the Gemini API.
type Gemini struct {
	models *genai.Models
	model  string
}

// GeminiOption adjusts the client config before the client is built.
type GeminiOption func(*genai.ClientConfig)

// WithBaseURL points the client at another endpoint, such as a test server.
func WithBaseURL(url string) GeminiOption {
	return func(cc *genai.ClientConfig) { cc.HTTPOptions.BaseURL = url }
}

// NewGemini builds a Gemini API client authenticated with apiKey.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	if model == "" {
		model = DefaultModel
	}
	cc := &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI}
	for _, opt := range opts {
		opt(cc)
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("suggest.NewGemini: %w", err)
	}
	return &Gemini{models: client.Models, model: model}, nil
}

// suggestionSchema constrains GenerateJSON answers to a list of Suggestions.
var suggestionSchema = &genai.Schema{
	Type: genai.TypeArray,
	Items: &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"name":          {Type: genai.TypeString, Description: "Name of the activity."},
			"time":          {Type: genai.TypeString, Description: "Suggested time, e.g. 10:00."},
			"description":   {Type: genai.TypeString, Description: "A short description."},
			"estimatedCost": {Type: genai.TypeNumber, Description: "Estimated cost in local currency, no symbol."},
			"category":      {Type: genai.TypeString, Description: "One of the trip categories."},
		},
		Required: []string{"name", "time", "description", "estimatedCost", "category"},
	},
}

func (g *Gemini) GenerateJSON(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   suggestionSchema,
	})
}

func (g *Gemini) GenerateText(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, genai.Text(prompt), nil)
}

// Converse sends the whole conversation with system as the instruction.
func (g *Gemini) Converse(ctx context.Context, system string, history []Message) (string, error) {
	contents := make([]*genai.Content, 0, len(history))
	for _, m := range history {
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleModel {
			role = genai.RoleModel
		}
		contents = append(contents, genai.NewContentFromText(m.Text, role))
	}
	return g.generate(ctx, contents, &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
	})
}

func (g *Gemini) generate(ctx context.Context, contents []*genai.Content, cfg *genai.GenerateContentConfig) (string, error) {
	resp, err := g.models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return "", fmt.Errorf("suggest.Gemini.generate: %w", err)
	}
	text := resp.Text()
	if text == "" {
		return "", errors.New("suggest.Gemini.generate: empty response")
	}
	return text, nil
}
