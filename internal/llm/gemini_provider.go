package llm

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/moodloom/recengine/internal/observability"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"
	geminiUserRole     = "user"
)

// GeminiProvider implements Provider using Google's Gemini API.
type GeminiProvider struct {
	client *genai.Client
}

// NewGeminiProvider creates a new Gemini provider.
func NewGeminiProvider(ctx context.Context, apiKey string) (*GeminiProvider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiProvider{client: client}, nil
}

// Name returns the provider name.
func (p *GeminiProvider) Name() string {
	return providerNameGemini
}

// Generate runs a structured-output completion via Gemini's GenerateContent.
func (p *GeminiProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "gemini.generate")
	defer transaction.Finish()
	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameGemini)

	contents := buildGeminiContents(request.InputArray)

	config := &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: request.SystemPrompt}},
		},
	}
	if request.OutputSchema != nil {
		config.ResponseMIMEType = mimeTypeJSON
		config.ResponseSchema = convertJSONSchemaToGemini(request.OutputSchema.Schema)
	}

	span := transaction.StartChild("gemini.api_call")
	result, err := p.client.Models.GenerateContent(ctx, request.Model, contents, config)
	span.Finish()

	if err != nil {
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("gemini request failed: %w", err)
	}

	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini response had no content")
	}

	textOutput := result.Candidates[0].Content.Parts[0].Text
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("gemini response did not include any output text")
	}

	usage := observability.TokenUsage{}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
	}

	log.Printf("gemini generation completed in %v (tokens=%d)", time.Since(startTime), usage.InputTokens+usage.OutputTokens)

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: textOutput,
		Model:     request.Model,
		Usage:     usage,
	}, nil
}

// buildGeminiContents converts the provider-agnostic input array to
// Gemini's Content format. Gemini has no "developer" role, so any
// non-user role collapses to "user" the way the teacher's adapter did.
func buildGeminiContents(inputArray []map[string]any) []*genai.Content {
	var contents []*genai.Content

	for _, item := range inputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)
		if !hasRole || !hasContent {
			log.Printf("skipping invalid llm input item (missing role or content): %v", item)
			continue
		}
		_ = role

		contents = append(contents, &genai.Content{
			Role:  geminiUserRole,
			Parts: []*genai.Part{{Text: content}},
		})
	}

	return contents
}

// convertJSONSchemaToGemini recursively converts a JSON-Schema-as-map
// (the shape every stage's schema builder in schema.go produces) into
// Gemini's native *genai.Schema type.
func convertJSONSchemaToGemini(schema map[string]any) *genai.Schema {
	result := &genai.Schema{}

	switch schema["type"] {
	case "object":
		result.Type = genai.TypeObject
		if props, ok := schema["properties"].(map[string]any); ok {
			result.Properties = make(map[string]*genai.Schema, len(props))
			for name, propSchema := range props {
				if propMap, ok := propSchema.(map[string]any); ok {
					result.Properties[name] = convertJSONSchemaToGemini(propMap)
				}
			}
		}
		if required, ok := schema["required"].([]string); ok {
			result.Required = required
		} else if requiredAny, ok := schema["required"].([]any); ok {
			for _, r := range requiredAny {
				if s, ok := r.(string); ok {
					result.Required = append(result.Required, s)
				}
			}
		}
	case "array":
		result.Type = genai.TypeArray
		if items, ok := schema["items"].(map[string]any); ok {
			result.Items = convertJSONSchemaToGemini(items)
		}
	case "string":
		result.Type = genai.TypeString
		if enum, ok := schema["enum"].([]string); ok {
			result.Enum = enum
		} else if enumAny, ok := schema["enum"].([]any); ok {
			for _, e := range enumAny {
				if s, ok := e.(string); ok {
					result.Enum = append(result.Enum, s)
				}
			}
		}
	case "integer":
		result.Type = genai.TypeInteger
	case "number":
		result.Type = genai.TypeNumber
	case "boolean":
		result.Type = genai.TypeBoolean
	default:
		result.Type = genai.TypeString
	}

	if desc, ok := schema["description"].(string); ok {
		result.Description = desc
	}

	return result
}
