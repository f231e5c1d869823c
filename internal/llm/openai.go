package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Default values for the OpenAI provider.
const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1"
	defaultOpenAIModel   = "gpt-4"
	defaultTemperature   = 0.2
	defaultTimeout       = 5 * time.Minute
)

// chatRequest is the Chat Completions request body.
type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

// chatMessage is one turn of the conversation.
type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// responseFormat asks the API for a particular output shape.
type responseFormat struct {
	Type string `json:"type"`
}

// chatResponse is the Chat Completions response body.
type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
}

// chatChoice is one returned completion.
type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

// openAIErrorResponse is the error envelope the API returns.
type openAIErrorResponse struct {
	Error openAIErrorDetail `json:"error"`
}

// openAIErrorDetail is the inner error record.
type openAIErrorDetail struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}

// OpenAIConfig holds the parameters needed to create an OpenAI analyzer.
// Declared here so the package stays free of config imports.
type OpenAIConfig struct {
	// APIKey is the OpenAI API key.
	APIKey string
	// Model is the model identifier. Defaults to "gpt-4".
	Model string
	// BaseURL is the API base URL (empty means the public endpoint).
	BaseURL string
	// Temperature controls sampling randomness. Defaults to 0.2.
	Temperature float64
	// Timeout bounds one analysis request. Defaults to 5 minutes;
	// full-text analyses of long papers routinely take minutes.
	Timeout time.Duration
}

// OpenAIAnalyzer implements PaperAnalyzer using the OpenAI Chat Completions
// API with JSON response format.
//
// Analysis requests are not retried: a failed call surfaces immediately so
// the caller can fail the run. Partial or repeated analyses would append
// duplicate rows to the analyses table.
type OpenAIAnalyzer struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	baseURL     string
	temperature float64
}

// Compile-time check that OpenAIAnalyzer implements PaperAnalyzer.
var _ PaperAnalyzer = (*OpenAIAnalyzer)(nil)

// NewOpenAIAnalyzer creates a new OpenAI paper analyzer.
func NewOpenAIAnalyzer(cfg OpenAIConfig) *OpenAIAnalyzer {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}

	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &OpenAIAnalyzer{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		apiKey:      cfg.APIKey,
		model:       model,
		baseURL:     baseURL,
		temperature: temperature,
	}
}

// Analyze extracts structured findings from the given title and text.
func (p *OpenAIAnalyzer) Analyze(ctx context.Context, title, text string) (*AnalysisResult, error) {
	system, user := BuildAnalysisPrompt(title, text)

	chatReq := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: p.temperature,
		ResponseFormat: &responseFormat{
			Type: "json_object",
		},
	}

	body, err := json.Marshal(chatReq)
	if err != nil {
		return nil, fmt.Errorf("openai: failed to marshal request: %w", err)
	}

	endpoint := p.baseURL + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, fmt.Errorf("openai: failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseOpenAIAPIError(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("openai: failed to unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("openai: empty choices in response")
	}

	content := chatResp.Choices[0].Message.Content
	var result AnalysisResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("openai: failed to parse LLM JSON response: %w", err)
	}

	return &result, nil
}

// Provider names the backing provider.
func (p *OpenAIAnalyzer) Provider() string {
	return "openai"
}

// Model reports the configured model identifier.
func (p *OpenAIAnalyzer) Model() string {
	return p.model
}

// parseOpenAIAPIError parses an OpenAI API error from the response status
// code and body.
func parseOpenAIAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{
		Provider:   "openai",
		StatusCode: statusCode,
		Message:    string(body),
	}

	var errResp openAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Message != "" {
		apiErr.Message = errResp.Error.Message
		apiErr.Type = errResp.Error.Type
		apiErr.Code = errResp.Error.Code
	}

	return apiErr
}
