package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// GeminiProvider implementiert den Provider für die Google-Gemini-API
type GeminiProvider struct {
	client       *genai.Client
	defaultModel string
}

// NewGeminiProvider erstellt einen neuen Gemini-Provider
func NewGeminiProvider(ctx context.Context, apiKey, defaultModel string) (*GeminiProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("gemini: API-Key fehlt")
	}
	if defaultModel == "" {
		defaultModel = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(strings.TrimSpace(apiKey)))
	if err != nil {
		return nil, fmt.Errorf("gemini: client-erstellung fehlgeschlagen: %w", err)
	}

	return &GeminiProvider{
		client:       client,
		defaultModel: defaultModel,
	}, nil
}

func (g *GeminiProvider) GetName() string {
	return "Gemini"
}

// SetModel ändert das Standard-Modell
func (g *GeminiProvider) SetModel(model string) {
	if model != "" {
		g.defaultModel = model
	}
}

// GetCurrentModel gibt das aktuelle Modell zurück
func (g *GeminiProvider) GetCurrentModel() string {
	return g.defaultModel
}

func (g *GeminiProvider) IsAvailable(ctx context.Context) bool {
	it := g.client.ListModels(ctx)
	_, err := it.Next()
	return err == nil || err == iterator.Done
}

func (g *GeminiProvider) GetModels(ctx context.Context) ([]ModelInfo, error) {
	var models []ModelInfo
	it := g.client.ListModels(ctx)
	for {
		m, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("gemini: modelle nicht abrufbar: %w", err)
		}
		models = append(models, ModelInfo{
			Name: strings.TrimPrefix(m.Name, "models/"),
		})
	}
	return models, nil
}

func (g *GeminiProvider) Generate(ctx context.Context, prompt string, options *GenerateOptions) (*GenerateResponse, error) {
	modelName := g.defaultModel
	if options != nil && options.Model != "" {
		modelName = options.Model
	}

	model := g.client.GenerativeModel(modelName)
	if options != nil {
		var cfg genai.GenerationConfig
		if options.Temperature > 0 {
			temp := float32(options.Temperature)
			cfg.Temperature = &temp
		}
		if options.ForceJSON {
			cfg.ResponseMIMEType = "application/json"
		}
		model.GenerationConfig = cfg

		if options.System != "" {
			model.SystemInstruction = &genai.Content{
				Parts: []genai.Part{genai.Text(options.System)},
			}
		}
	}

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return nil, fmt.Errorf("gemini-anfrage fehlgeschlagen: %w", err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, errors.New("gemini: leere Antwort")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	result := &GenerateResponse{
		Content: sb.String(),
		Model:   modelName,
		Done:    true,
	}
	if resp.UsageMetadata != nil {
		result.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
		result.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
	}
	return result, nil
}

// Close gibt die Verbindung zur Gemini-API frei
func (g *GeminiProvider) Close() error {
	return g.client.Close()
}
