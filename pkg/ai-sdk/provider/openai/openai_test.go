package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/provider"
	"github.com/flowbaker/csvclassifier/pkg/ai-sdk/types"
	"github.com/sashabaranov/go-openai"
	"github.com/sashabaranov/go-openai/jsonschema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completionPayload(content, finishReason string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-test",
		"object": "chat.completion",
		"model":  "gpt-4o-2024-08-06",
		"choices": []any{
			map[string]any{
				"index": 0,
				"message": map[string]any{
					"role":    "assistant",
					"content": content,
				},
				"finish_reason": finishReason,
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 8,
			"total_tokens":      20,
		},
	}
}

func structuredRequest() provider.StructuredRequest {
	return provider.StructuredRequest{
		System:   "classify things",
		Messages: []types.Message{types.UserMessage("text: hello")},
		Schema: types.ResponseSchema{
			Name:   "tagged_row",
			Schema: &jsonschema.Definition{Type: jsonschema.Object, AdditionalProperties: false},
			Strict: true,
		},
	}
}

func TestProvider_GenerateStructured(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		require.NoError(t, json.NewEncoder(w).Encode(completionPayload(`{"ok":true}`, "stop")))
	}))
	defer server.Close()

	p := New("test-key", "gpt-4o-2024-08-06", WithBaseURL(server.URL+"/v1/"))

	resp, err := p.GenerateStructured(context.Background(), structuredRequest())
	require.NoError(t, err)

	assert.Equal(t, `{"ok":true}`, resp.Content)
	assert.Equal(t, types.FinishReasonStop, resp.FinishReason)
	assert.Equal(t, 20, resp.Usage.TotalTokens)
	assert.Equal(t, "openai:gpt-4o-2024-08-06", p.ID())

	assert.Equal(t, "gpt-4o-2024-08-06", captured["model"])

	messages := captured["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	assert.Equal(t, "classify things", messages[0].(map[string]any)["content"])
	assert.Equal(t, "user", messages[1].(map[string]any)["role"])

	format := captured["response_format"].(map[string]any)
	assert.Equal(t, "json_schema", format["type"])
	jsonSchema := format["json_schema"].(map[string]any)
	assert.Equal(t, "tagged_row", jsonSchema["name"])
	assert.Equal(t, true, jsonSchema["strict"])
}

func TestProvider_Azure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/openai/deployments/gpt-4o-2024-08-06/chat/completions", r.URL.Path)
		assert.Equal(t, "2024-10-21", r.URL.Query().Get("api-version"))
		assert.Equal(t, "azure-key", r.Header.Get("api-key"))

		require.NoError(t, json.NewEncoder(w).Encode(completionPayload(`{"ok":true}`, "stop")))
	}))
	defer server.Close()

	p := NewAzure(server.URL, "azure-key", "2024-10-21", "gpt-4o-2024-08-06")
	assert.Equal(t, VariantAzure, p.Variant())

	resp, err := p.GenerateStructured(context.Background(), structuredRequest())
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, resp.Content)
}

func TestProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limit reached","type":"requests"}}`))
	}))
	defer server.Close()

	p := New("test-key", "gpt-4o", WithBaseURL(server.URL))

	_, err := p.GenerateStructured(context.Background(), structuredRequest())
	require.Error(t, err)

	var apiErr *openai.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.HTTPStatusCode)
}

func TestProvider_EmptyChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	}))
	defer server.Close()

	p := New("test-key", "gpt-4o", WithBaseURL(server.URL))

	_, err := p.GenerateStructured(context.Background(), structuredRequest())
	assert.ErrorIs(t, err, types.ErrEmptyResponse)
}

func TestProvider_Refusal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := completionPayload("", "stop")
		choice := payload["choices"].([]any)[0].(map[string]any)
		choice["message"].(map[string]any)["refusal"] = "I can't help with that"
		require.NoError(t, json.NewEncoder(w).Encode(payload))
	}))
	defer server.Close()

	p := New("test-key", "gpt-4o", WithBaseURL(server.URL))

	_, err := p.GenerateStructured(context.Background(), structuredRequest())
	assert.ErrorIs(t, err, types.ErrRefusal)
}

func TestProvider_MaxTokensField(t *testing.T) {
	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		require.NoError(t, json.NewEncoder(w).Encode(completionPayload(`{}`, "stop")))
	}))
	defer server.Close()

	p := New("test-key", "gpt-4o", WithBaseURL(server.URL))
	p.SetRequestSettings(RequestSettings{Model: "gpt-4o", MaxTokens: 256})

	_, err := p.GenerateStructured(context.Background(), structuredRequest())
	require.NoError(t, err)

	assert.EqualValues(t, 256, captured["max_tokens"])
	assert.NotContains(t, captured, "max_completion_tokens")
}

func TestProvider_Temperature(t *testing.T) {
	zero := float32(0)
	warm := float32(0.7)

	tests := []struct {
		name        string
		temperature *float32
		present     bool
		expected    float64
	}{
		{name: "unset leaves endpoint default", temperature: nil},
		{name: "explicit zero is sent", temperature: &zero, present: true, expected: 0},
		{name: "configured value is sent", temperature: &warm, present: true, expected: 0.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var captured map[string]any

			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
				require.NoError(t, json.NewEncoder(w).Encode(completionPayload(`{}`, "stop")))
			}))
			defer server.Close()

			p := New("test-key", "gpt-4o", WithBaseURL(server.URL))
			p.SetRequestSettings(RequestSettings{Model: "gpt-4o", Temperature: tt.temperature})

			_, err := p.GenerateStructured(context.Background(), structuredRequest())
			require.NoError(t, err)

			if !tt.present {
				assert.NotContains(t, captured, "temperature")
				return
			}

			require.Contains(t, captured, "temperature")
			assert.InDelta(t, tt.expected, captured["temperature"], 1e-6)
		})
	}
}

type countingTransport struct {
	calls int
}

func (c *countingTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	c.calls++
	return http.DefaultTransport.RoundTrip(r)
}

func TestProvider_WithHTTPClient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewEncoder(w).Encode(completionPayload(`{}`, "stop")))
	}))
	defer server.Close()

	transport := &countingTransport{}
	p := New("test-key", "gpt-4o", WithBaseURL(server.URL), WithHTTPClient(&http.Client{Transport: transport}))

	_, err := p.GenerateStructured(context.Background(), structuredRequest())
	require.NoError(t, err)
	assert.Equal(t, 1, transport.calls)
}

func TestIsMaxCompletionTokensModel(t *testing.T) {
	assert.True(t, isMaxCompletionTokensModel("o3-mini"))
	assert.True(t, isMaxCompletionTokensModel("gpt-5"))
	assert.False(t, isMaxCompletionTokensModel("gpt-4o-2024-08-06"))
}
