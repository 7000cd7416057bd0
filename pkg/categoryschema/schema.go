// Package categoryschema turns a CategorySet into the closed-choice output
// schema and the category listing the model is prompted with.
package categoryschema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/flowbaker/csvclassifier/pkg/domain"
	"github.com/gosimple/slug"
	"github.com/sashabaranov/go-openai/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	SchemaName = "tagged_row"

	propertyCategory   = "category"
	propertyConfidence = "confidence"
	propertyReason     = "reason"

	resourceName = "tagged_row.json"
)

// Label is one member of the closed set. Token is the value the model must
// put in the category field.
type Label struct {
	Identifier  string
	Token       string
	Description string
}

type Schema struct {
	labels   []Label
	byToken  map[string]int
	compiled *validator.Schema
}

// Build validates the set and derives the enum. Identifiers are compared by
// their slugged token, so keys differing only in case collide.
func Build(set domain.CategorySet) (*Schema, error) {
	categories := set.Categories()
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: at least one category is required", domain.ErrConfiguration)
	}

	s := &Schema{
		labels:  make([]Label, 0, len(categories)),
		byToken: make(map[string]int, len(categories)),
	}

	for _, category := range categories {
		identifier := strings.TrimSpace(category.Key)
		if identifier == "" {
			return nil, fmt.Errorf("%w: category identifier must not be empty", domain.ErrConfiguration)
		}

		token := slug.Make(identifier)
		if token == "" {
			return nil, fmt.Errorf("%w: category identifier %q has no usable characters", domain.ErrConfiguration, identifier)
		}

		if existing, ok := s.byToken[token]; ok {
			return nil, fmt.Errorf("%w: category %q collides with %q (both normalize to %q)", domain.ErrConfiguration, identifier, s.labels[existing].Identifier, token)
		}

		s.byToken[token] = len(s.labels)
		s.labels = append(s.labels, Label{
			Identifier:  identifier,
			Token:       token,
			Description: category.Description,
		})
	}

	compiled, err := s.compile()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to compile output schema: %v", domain.ErrConfiguration, err)
	}
	s.compiled = compiled

	return s, nil
}

func (s *Schema) Labels() []Label {
	labels := make([]Label, len(s.labels))
	copy(labels, s.labels)

	return labels
}

// Tokens returns the enum members in definition order.
func (s *Schema) Tokens() []string {
	tokens := make([]string, len(s.labels))
	for i, label := range s.labels {
		tokens[i] = label.Token
	}

	return tokens
}

// Lookup resolves a model answer to its label. Both the token and the
// original identifier are accepted.
func (s *Schema) Lookup(value string) (Label, bool) {
	i, ok := s.byToken[slug.Make(strings.TrimSpace(value))]
	if !ok {
		return Label{}, false
	}

	return s.labels[i], true
}

// Instructions lists every category as "- IDENTIFIER: description". When
// the token is not simply the lower-cased identifier it follows in
// parentheses, as in "- R&D (randd): description".
func (s *Schema) Instructions() string {
	var b strings.Builder

	for i, label := range s.labels {
		if i > 0 {
			b.WriteString("\n")
		}
		if label.Token == strings.ToLower(label.Identifier) {
			fmt.Fprintf(&b, "- %s: %s", label.Identifier, label.Description)
		} else {
			fmt.Fprintf(&b, "- %s (%s): %s", label.Identifier, label.Token, label.Description)
		}
	}

	return b.String()
}

// Definition is the response schema sent with the completion request.
// Strict structured output rejects numeric bounds, so the confidence range
// only lives in the description here and in Document.
func (s *Schema) Definition() jsonschema.Definition {
	return jsonschema.Definition{
		Type: jsonschema.Object,
		Properties: map[string]jsonschema.Definition{
			propertyCategory: {
				Type:        jsonschema.String,
				Enum:        s.Tokens(),
				Description: "The category that best fits the data",
			},
			propertyConfidence: {
				Type:        jsonschema.Number,
				Description: "Certainty of the classification between 0.0 and 1.0",
			},
			propertyReason: {
				Type:        jsonschema.String,
				Description: "A brief justification for the chosen category",
			},
		},
		Required:             []string{propertyCategory, propertyConfidence, propertyReason},
		AdditionalProperties: false,
	}
}

// Document is Definition plus the confidence bounds, used to validate raw
// responses.
func (s *Schema) Document() (map[string]any, error) {
	raw, err := json.Marshal(s.Definition())
	if err != nil {
		return nil, err
	}

	var document map[string]any
	if err := json.Unmarshal(raw, &document); err != nil {
		return nil, err
	}

	properties, _ := document["properties"].(map[string]any)
	confidence, _ := properties[propertyConfidence].(map[string]any)
	if confidence == nil {
		return nil, fmt.Errorf("schema has no %s property", propertyConfidence)
	}
	confidence["minimum"] = 0
	confidence["maximum"] = 1

	return document, nil
}

// Validate checks a raw model response against Document.
func (s *Schema) Validate(raw []byte) error {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("%w: response is not valid JSON: %v", domain.ErrClassification, err)
	}

	if err := s.compiled.Validate(value); err != nil {
		return fmt.Errorf("%w: response violates output schema: %v", domain.ErrClassification, err)
	}

	return nil
}

func (s *Schema) compile() (*validator.Schema, error) {
	document, err := s.Document()
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(document)
	if err != nil {
		return nil, err
	}

	compiler := validator.NewCompiler()
	if err := compiler.AddResource(resourceName, bytes.NewReader(raw)); err != nil {
		return nil, err
	}

	return compiler.Compile(resourceName)
}
