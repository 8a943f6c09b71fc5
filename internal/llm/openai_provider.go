package llm

import (
	"fmt"
	"log"
	"context"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/moodloom/recengine/internal/observability"
)

const (
	userRole          = "user"
	developerRole     = "developer"
	providerNameOpenAI = "openai"
)

// OpenAIProvider implements Provider using OpenAI's Responses API with a
// JSON Schema output format, the structured-output path the teacher used
// for its musical-choice generation.
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a new OpenAI provider.
func NewOpenAIProvider(apiKey string) *OpenAIProvider {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIProvider{client: &client}
}

// Name returns the provider name.
func (p *OpenAIProvider) Name() string {
	return providerNameOpenAI
}

// Generate runs a structured-output completion via the Responses API.
func (p *OpenAIProvider) Generate(ctx context.Context, request *GenerationRequest) (*GenerationResponse, error) {
	startTime := time.Now()

	transaction := sentry.StartTransaction(ctx, "openai.generate")
	defer transaction.Finish()
	transaction.SetTag("model", request.Model)
	transaction.SetTag("provider", providerNameOpenAI)

	params := p.buildRequestParams(request)

	span := transaction.StartChild("openai.api_call")
	resp, err := p.client.Responses.New(ctx, params)
	span.Finish()

	if err != nil {
		transaction.SetTag("success", "false")
		sentry.CaptureException(err)
		return nil, fmt.Errorf("openai request failed: %w", err)
	}

	textOutput := resp.OutputText()
	if textOutput == "" {
		transaction.SetTag("success", "false")
		return nil, fmt.Errorf("openai response did not include any output text")
	}

	log.Printf("openai generation completed in %v (tokens=%d)", time.Since(startTime), resp.Usage.TotalTokens)

	transaction.SetTag("success", "true")
	return &GenerationResponse{
		RawOutput: textOutput,
		Model:     request.Model,
		Usage: observability.TokenUsage{
			InputTokens:     resp.Usage.InputTokens,
			OutputTokens:    resp.Usage.OutputTokens,
			ReasoningTokens: resp.Usage.OutputTokensDetails.ReasoningTokens,
		},
	}, nil
}

// buildRequestParams converts a GenerationRequest into OpenAI's
// Responses API parameters.
func (p *OpenAIProvider) buildRequestParams(request *GenerationRequest) responses.ResponseNewParams {
	inputItems := responses.ResponseInputParam{}

	for _, item := range request.InputArray {
		role, hasRole := item["role"].(string)
		content, hasContent := item["content"].(string)
		if !hasRole || !hasContent {
			log.Printf("skipping invalid llm input item (missing role or content): %v", item)
			continue
		}

		var roleEnum responses.EasyInputMessageRole
		switch role {
		case developerRole:
			roleEnum = responses.EasyInputMessageRoleDeveloper
		case userRole:
			roleEnum = responses.EasyInputMessageRoleUser
		default:
			roleEnum = responses.EasyInputMessageRoleUser
		}

		inputItems = append(inputItems, responses.ResponseInputItemParamOfMessage(content, roleEnum))
	}

	params := responses.ResponseNewParams{
		Model: request.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfInputItemList: inputItems,
		},
		Instructions: openai.String(request.SystemPrompt),
		Reasoning: shared.ReasoningParam{
			Effort: responses.ReasoningEffortMedium,
		},
	}

	if request.OutputSchema != nil {
		params.Text = responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(
				request.OutputSchema.Name,
				request.OutputSchema.Schema,
			),
		}
	}

	return params
}
