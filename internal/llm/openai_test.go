package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// newChatCompletionResponse builds an API response whose message content is
// the given analysis payload.
func newChatCompletionResponse(t *testing.T, payload AnalysisResult) []byte {
	t.Helper()
	content, err := json.Marshal(payload)
	require.NoError(t, err)

	resp := map[string]interface{}{
		"id": "chatcmpl-test",
		"choices": []map[string]interface{}{
			{
				"index":         0,
				"finish_reason": "stop",
				"message": map[string]interface{}{
					"role":    "assistant",
					"content": string(content),
				},
			},
		},
	}
	body, err := json.Marshal(resp)
	require.NoError(t, err)
	return body
}

func TestOpenAIAnalyzer_Analyze(t *testing.T) {
	ctx := context.Background()

	t.Run("parses structured analysis from response", func(t *testing.T) {
		expected := AnalysisResult{
			Findings:             []string{"CRISPR editing efficiency improved by 40%"},
			Methods:              []string{"CRISPR-Cas9 screening"},
			Datasets:             []string{"TCGA"},
			Gaps:                 []string{"off-target effects unquantified"},
			Limitations:          []string{"single cell line"},
			SuggestedExperiments: []string{"validate in vivo"},
		}

		var gotReq chatRequest
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/chat/completions", r.URL.Path)
			assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
			_, _ = w.Write(newChatCompletionResponse(t, expected))
		}))
		defer server.Close()

		analyzer := NewOpenAIAnalyzer(OpenAIConfig{
			APIKey:  "test-key",
			BaseURL: server.URL,
		})

		result, err := analyzer.Analyze(ctx, "Test Paper", "Test abstract text.")
		require.NoError(t, err)
		assert.Equal(t, &expected, result)

		// Request carries the fixed model, temperature, and JSON mode.
		assert.Equal(t, "gpt-4", gotReq.Model)
		assert.InDelta(t, 0.2, gotReq.Temperature, 0.001)
		require.NotNil(t, gotReq.ResponseFormat)
		assert.Equal(t, "json_object", gotReq.ResponseFormat.Type)
		require.Len(t, gotReq.Messages, 2)
		assert.Equal(t, "system", gotReq.Messages[0].Role)
		assert.Contains(t, gotReq.Messages[1].Content, "Test Paper")
		assert.Contains(t, gotReq.Messages[1].Content, "Test abstract text.")
	})

	t.Run("returns APIError on provider failure without retrying", func(t *testing.T) {
		calls := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error","code":"429"}}`))
		}))
		defer server.Close()

		analyzer := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := analyzer.Analyze(ctx, "Title", "Text")
		assert.Nil(t, result)
		require.Error(t, err)
		assert.Equal(t, 1, calls)

		var apiErr *APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
		assert.Equal(t, "rate limited", apiErr.Message)
		assert.Equal(t, "rate_limit_error", apiErr.Type)
		assert.ErrorIs(t, err, domain.ErrServiceUnavailable)
	})

	t.Run("fails on malformed model output", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"x","choices":[{"index":0,"message":{"role":"assistant","content":"not json"}}]}`))
		}))
		defer server.Close()

		analyzer := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		result, err := analyzer.Analyze(ctx, "Title", "Text")
		assert.Nil(t, result)
		assert.ErrorContains(t, err, "failed to parse LLM JSON response")
	})

	t.Run("fails on empty choices", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
		}))
		defer server.Close()

		analyzer := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "test-key", BaseURL: server.URL})

		_, err := analyzer.Analyze(ctx, "Title", "Text")
		assert.ErrorContains(t, err, "empty choices")
	})
}

func TestNewOpenAIAnalyzer_Defaults(t *testing.T) {
	analyzer := NewOpenAIAnalyzer(OpenAIConfig{APIKey: "k"})
	assert.Equal(t, "openai", analyzer.Provider())
	assert.Equal(t, "gpt-4", analyzer.Model())
}
