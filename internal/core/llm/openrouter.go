package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/observability"
)

// OpenRouter API constants.
const (
	OpenRouterAPIEndpoint = "https://openrouter.ai/api/v1/chat/completions"

	// DefaultOpenRouterModel is the classification model used when the
	// credentials carry no override.
	DefaultOpenRouterModel = "google/gemini-2.0-flash-001"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	contentTypeJSON     = "application/json"
)

// openRouterProvider implements the Provider interface against the
// OpenRouter chat-completions endpoint.
type openRouterProvider struct {
	cfg         *config.Config
	endpoint    string
	httpClient  *http.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// openRouterChatRequest is the OpenAI-compatible chat request body.
type openRouterChatRequest struct {
	Model       string                  `json:"model"`
	Messages    []openRouterChatMessage `json:"messages"`
	Temperature float64                 `json:"temperature"`
	MaxTokens   int                     `json:"max_tokens,omitempty"`
	TopP        float64                 `json:"top_p,omitempty"`
}

type openRouterChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// openRouterChatResponse is the OpenAI-compatible chat response body. The
// scanner depends only on choices[0].message.content.
type openRouterChatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Index   int `json:"index"`
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenRouterProvider creates the OpenRouter completion provider.
func NewOpenRouterProvider(cfg *config.Config, logger *zerolog.Logger) Provider {
	rateLimit := cfg.RateLimitRPS
	if rateLimit == 0 {
		rateLimit = 1
	}

	timeout := cfg.LLMTimeout
	if timeout == 0 {
		timeout = defaultRequestTimeout
	}

	return &openRouterProvider{
		cfg:      cfg,
		endpoint: OpenRouterAPIEndpoint,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rateLimit)), rateLimiterBurst),
	}
}

// Name returns the provider identifier.
func (p *openRouterProvider) Name() ProviderName {
	return ProviderOpenRouter
}

// IsAvailable returns true if either the request credentials or the config
// carry an API key. Keys travel per request in the normal deployment, so a
// keyless config alone does not rule the provider out.
func (p *openRouterProvider) IsAvailable(creds domain.ScanCredentials) bool {
	if creds.APIKey != "" {
		return true
	}

	return p.cfg.LLMAPIKey != "" && p.cfg.LLMAPIKey != llmAPIKeyMock
}

// Priority returns the provider priority.
func (p *openRouterProvider) Priority() int {
	return PriorityPrimary
}

// Complete implements Provider. One request per call; no retries here.
func (p *openRouterProvider) Complete(ctx context.Context, prompt string, creds domain.ScanCredentials) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	apiKey := creds.APIKey
	if apiKey == "" {
		apiKey = p.cfg.LLMAPIKey
	}

	model := creds.Model
	if model == "" {
		model = p.cfg.LLMModel
	}

	if model == "" {
		model = DefaultOpenRouterModel
	}

	reqBody := openRouterChatRequest{
		Model: model,
		Messages: []openRouterChatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		TopP:        defaultTopP,
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(reqBody); err != nil {
		return "", fmt.Errorf(errFmtMarshalRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf(errFmtCreateRequest, err)
	}

	req.Header.Set(headerAuthorization, "Bearer "+apiKey)
	req.Header.Set(headerContentType, contentTypeJSON)
	req.Header.Set("HTTP-Referer", "https://github.com/leadscan/telegram-lead-scanner")
	req.Header.Set("X-Title", "telegram-lead-scanner")

	start := time.Now()

	resp, err := p.httpClient.Do(req)
	if err != nil {
		observability.LLMRequests.WithLabelValues(string(ProviderOpenRouter), model, "transport_error").Inc()

		return "", wrapTransportError(ProviderOpenRouter, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf(errFmtReadResponse, err)
	}

	observability.LLMRequestDuration.WithLabelValues(string(ProviderOpenRouter), model).Observe(time.Since(start).Seconds())

	if resp.StatusCode != http.StatusOK {
		observability.LLMRequests.WithLabelValues(string(ProviderOpenRouter), model, "error").Inc()

		return "", newUpstreamError(ProviderOpenRouter, resp.StatusCode, body)
	}

	observability.LLMRequests.WithLabelValues(string(ProviderOpenRouter), model, "ok").Inc()

	return p.extractResponseText(body)
}

// extractResponseText pulls choices[0].message.content out of the response.
func (p *openRouterProvider) extractResponseText(body []byte) (string, error) {
	var resp openRouterChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf(errFmtDecodeResponse, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%s: %w", ProviderOpenRouter, apperrors.ErrEmptyResponse)
	}

	return resp.Choices[0].Message.Content, nil
}

// Ensure openRouterProvider implements Provider interface.
var _ Provider = (*openRouterProvider)(nil)
