// Package classifier classifies one table row per blocking structured
// completion request.
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/provider"
	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/types"
	"github.com/flowbaker/csvclassifier/pkg/categoryschema"
	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/rs/zerolog/log"
)

type Options struct {
	// SystemPrompt replaces DefaultSystemPrompt. The category listing is
	// always appended.
	SystemPrompt string

	// StrictValidation checks every response against the output schema,
	// including the [0, 1] confidence range.
	StrictValidation bool
}

type Classifier struct {
	model        provider.StructuredModel
	schema       *categoryschema.Schema
	systemPrompt string
	strict       bool

	mu    sync.Mutex
	usage types.Usage
}

func New(model provider.StructuredModel, categories domain.CategorySet, opts Options) (*Classifier, error) {
	if model == nil {
		return nil, fmt.Errorf("%w: no completion model configured", domain.ErrConfiguration)
	}

	schema, err := categoryschema.Build(categories)
	if err != nil {
		return nil, err
	}

	base := opts.SystemPrompt
	if strings.TrimSpace(base) == "" {
		base = DefaultSystemPrompt
	}

	return &Classifier{
		model:        model,
		schema:       schema,
		systemPrompt: buildSystemPrompt(base, schema.Instructions()),
		strict:       opts.StrictValidation,
	}, nil
}

func (c *Classifier) Schema() *categoryschema.Schema {
	return c.schema
}

func (c *Classifier) SystemPrompt() string {
	return c.systemPrompt
}

// Usage returns the token usage summed over every completed request.
func (c *Classifier) Usage() types.Usage {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.usage
}

type taggedRow struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
	Reason     string   `json:"reason"`
}

// Classify sends exactly one request for row. Every failure is reported as
// domain.ErrClassification.
func (c *Classifier) Classify(ctx context.Context, row domain.Row) (domain.ClassificationResult, error) {
	if len(row) == 0 {
		return domain.ClassificationResult{}, fmt.Errorf("%w: row has no fields", domain.ErrClassification)
	}

	definition := c.schema.Definition()

	resp, err := c.model.GenerateStructured(ctx, provider.StructuredRequest{
		System:   c.systemPrompt,
		Messages: []types.Message{types.UserMessage(userPromptPrefix + FormatRow(row))},
		Schema: types.ResponseSchema{
			Name:   categoryschema.SchemaName,
			Schema: &definition,
			Strict: true,
		},
	})
	if err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: %w", domain.ErrClassification, err)
	}

	c.mu.Lock()
	c.usage = c.usage.Add(resp.Usage)
	c.mu.Unlock()

	log.Debug().
		Str("model", c.model.ID()).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("Received classification response")

	return c.parse(resp)
}

func (c *Classifier) parse(resp *types.GenerateResponse) (domain.ClassificationResult, error) {
	switch resp.FinishReason {
	case types.FinishReasonLength:
		return domain.ClassificationResult{}, fmt.Errorf("%w: %w", domain.ErrClassification, types.ErrTruncatedResponse)
	case types.FinishReasonContentFilter:
		return domain.ClassificationResult{}, fmt.Errorf("%w: response blocked by content filter", domain.ErrClassification)
	}

	if c.strict {
		if err := c.schema.Validate([]byte(resp.Content)); err != nil {
			return domain.ClassificationResult{}, err
		}
	}

	var tagged taggedRow
	if err := json.Unmarshal([]byte(resp.Content), &tagged); err != nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: failed to parse model output: %v", domain.ErrClassification, err)
	}

	label, ok := c.schema.Lookup(tagged.Category)
	if !ok {
		return domain.ClassificationResult{}, fmt.Errorf("%w: model returned unknown category %q", domain.ErrClassification, tagged.Category)
	}

	if tagged.Confidence == nil {
		return domain.ClassificationResult{}, fmt.Errorf("%w: model output has no confidence", domain.ErrClassification)
	}

	return domain.ClassificationResult{
		Category:   label.Token,
		Confidence: *tagged.Confidence,
		Reason:     tagged.Reason,
	}, nil
}
