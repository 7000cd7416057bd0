package provider

import (
	"context"

	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/types"
)

// StructuredModel is a chat completion model that can be constrained to a
// response schema
type StructuredModel interface {
	// GenerateStructured issues one blocking completion request
	GenerateStructured(ctx context.Context, req StructuredRequest) (*types.GenerateResponse, error)

	// ID returns the unique identifier for this model
	ID() string
}

// StructuredRequest contains all parameters for one structured completion
type StructuredRequest struct {
	// System is an optional system prompt
	System string `json:"system,omitempty"`

	// Messages is the conversation, excluding the system prompt
	Messages []types.Message `json:"messages"`

	// Schema constrains the shape of the answer
	Schema types.ResponseSchema `json:"schema"`
}
