package openai

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"strings"

	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/provider"
	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/types"
	"github.com/rs/zerolog/log"
	"github.com/sashabaranov/go-openai"
)

// Variant selects which flavour of the chat completion API the client talks to
type Variant string

const (
	VariantOpenAI Variant = "openai"
	VariantAzure  Variant = "azure"
)

// Provider implements provider.StructuredModel on top of go-openai
type Provider struct {
	client  *openai.Client
	variant Variant

	RequestSettings RequestSettings
}

// RequestSettings apply to every request. A nil Temperature leaves the
// endpoint default in place.
type RequestSettings struct {
	Model       string
	Temperature *float32
	MaxTokens   int
}

type options struct {
	baseURL    string
	httpClient *http.Client
}

// Option customizes the underlying client configuration
type Option func(*options)

// WithBaseURL points the client at an OpenAI-compatible endpoint
func WithBaseURL(baseURL string) Option {
	return func(o *options) {
		o.baseURL = baseURL
	}
}

// WithHTTPClient overrides the default HTTP client
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		if client != nil {
			o.httpClient = client
		}
	}
}

// New creates a provider for the standard OpenAI API
func New(apiKey, model string, opts ...Option) *Provider {
	o := applyOptions(opts)

	clientConfig := openai.DefaultConfig(apiKey)
	if o.baseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(o.baseURL, "/")
	}
	if o.httpClient != nil {
		clientConfig.HTTPClient = o.httpClient
	}

	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		variant: VariantOpenAI,
		RequestSettings: RequestSettings{
			Model: model,
		},
	}
}

// NewAzure creates a provider for an Azure OpenAI resource. The model name is
// used as the deployment name unchanged.
func NewAzure(endpoint, apiKey, apiVersion, model string, opts ...Option) *Provider {
	o := applyOptions(opts)

	clientConfig := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		clientConfig.APIVersion = apiVersion
	}
	clientConfig.AzureModelMapperFunc = func(model string) string {
		return model
	}
	if o.httpClient != nil {
		clientConfig.HTTPClient = o.httpClient
	}

	return &Provider{
		client:  openai.NewClientWithConfig(clientConfig),
		variant: VariantAzure,
		RequestSettings: RequestSettings{
			Model: model,
		},
	}
}

func applyOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (p *Provider) SetRequestSettings(settings RequestSettings) {
	p.RequestSettings = settings
}

// GenerateStructured implements provider.StructuredModel
func (p *Provider) GenerateStructured(ctx context.Context, req provider.StructuredRequest) (*types.GenerateResponse, error) {
	chatReq := openai.ChatCompletionRequest{
		Model:    p.RequestSettings.Model,
		Messages: p.convertMessages(req.Messages, req.System),
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:        req.Schema.Name,
				Description: req.Schema.Description,
				Schema:      req.Schema.Schema,
				Strict:      req.Schema.Strict,
			},
		},
	}

	if t := p.RequestSettings.Temperature; t != nil {
		chatReq.Temperature = requestTemperature(*t)
	}

	if maxTokens := p.RequestSettings.MaxTokens; maxTokens > 0 {
		if isMaxCompletionTokensModel(p.RequestSettings.Model) {
			chatReq.MaxCompletionTokens = maxTokens
		} else {
			chatReq.MaxTokens = maxTokens
		}
	}

	log.Debug().
		Str("provider", string(p.variant)).
		Str("model", chatReq.Model).
		Str("schema", req.Schema.Name).
		Msg("Sending structured completion request")

	resp, err := p.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return nil, fmt.Errorf("%s api error: %w", p.variant, err)
	}

	if len(resp.Choices) == 0 {
		return nil, types.ErrEmptyResponse
	}

	choice := resp.Choices[0]
	if choice.Message.Refusal != "" {
		return nil, fmt.Errorf("%w: %s", types.ErrRefusal, choice.Message.Refusal)
	}

	response := &types.GenerateResponse{
		Content:      choice.Message.Content,
		FinishReason: string(choice.FinishReason),
		Model:        resp.Model,
		Usage: types.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}

	if resp.Usage.PromptTokensDetails != nil {
		response.Usage.CachedInputTokens = resp.Usage.PromptTokensDetails.CachedTokens
	}

	return response, nil
}

// requestTemperature maps an explicit 0 to the smallest positive float32,
// since go-openai omits a zero temperature from the request body.
func requestTemperature(t float32) float32 {
	if t == 0 {
		return math.SmallestNonzeroFloat32
	}
	return t
}

// ID returns the model identifier
func (p *Provider) ID() string {
	return fmt.Sprintf("%s:%s", p.variant, p.RequestSettings.Model)
}

func (p *Provider) Variant() Variant {
	return p.variant
}

func (p *Provider) convertMessages(messages []types.Message, system string) []openai.ChatCompletionMessage {
	result := make([]openai.ChatCompletionMessage, 0, len(messages)+1)

	if system != "" {
		result = append(result, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: system,
		})
	}

	for _, msg := range messages {
		result = append(result, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}

	return result
}

// Reasoning models reject max_tokens and expect max_completion_tokens
var maxCompletionTokensModels = map[string]bool{
	"o1": true, "o1-2024-12-17": true, "o1-mini": true, "o1-mini-2024-09-12": true,
	"o1-preview": true, "o1-preview-2024-09-12": true,
	"o3": true, "o3-mini": true,
	"gpt-5": true, "gpt-5-mini": true, "gpt-5-nano": true,
}

func isMaxCompletionTokensModel(model string) bool {
	return maxCompletionTokensModels[model]
}
