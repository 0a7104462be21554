package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/observability"
)

// defaultOpenAIModel is used when neither the credentials nor the config
// name a model. OpenRouter-style model slugs do not exist on the OpenAI
// API, so the config model is ignored here.
const defaultOpenAIModel = openai.GPT4oMini

// openAIProvider is the fallback provider backed by the OpenAI API.
type openAIProvider struct {
	cfg         *config.Config
	client      *openai.Client
	logger      *zerolog.Logger
	rateLimiter *rate.Limiter
}

// NewOpenAIProvider creates the OpenAI fallback provider.
func NewOpenAIProvider(cfg *config.Config, logger *zerolog.Logger) Provider {
	rateLimit := cfg.RateLimitRPS
	if rateLimit == 0 {
		rateLimit = 1
	}

	return &openAIProvider{
		cfg:         cfg,
		client:      openai.NewClient(cfg.OpenAIAPIKey),
		logger:      logger,
		rateLimiter: rate.NewLimiter(rate.Limit(float64(rateLimit)), rateLimiterBurst),
	}
}

func (p *openAIProvider) Name() ProviderName {
	return ProviderOpenAI
}

// IsAvailable looks only at the configured key: per-run credentials are
// OpenRouter keys and do not authenticate against the OpenAI API.
func (p *openAIProvider) IsAvailable(domain.ScanCredentials) bool {
	return p.cfg.OpenAIAPIKey != ""
}

func (p *openAIProvider) Priority() int {
	return PriorityFallback
}

func (p *openAIProvider) Complete(ctx context.Context, prompt string, _ domain.ScanCredentials) (string, error) {
	if err := p.rateLimiter.Wait(ctx); err != nil {
		return "", fmt.Errorf(errRateLimiter, err)
	}

	start := time.Now()

	resp, err := p.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: defaultOpenAIModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: defaultTemperature,
		MaxTokens:   defaultMaxTokens,
		TopP:        defaultTopP,
	})

	observability.LLMRequestDuration.WithLabelValues(string(ProviderOpenAI), defaultOpenAIModel).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.LLMRequests.WithLabelValues(string(ProviderOpenAI), defaultOpenAIModel, "error").Inc()

		return "", classifyOpenAIError(err)
	}

	if len(resp.Choices) == 0 {
		observability.LLMRequests.WithLabelValues(string(ProviderOpenAI), defaultOpenAIModel, "error").Inc()

		return "", fmt.Errorf("%s: %w", ProviderOpenAI, apperrors.ErrEmptyResponse)
	}

	observability.LLMRequests.WithLabelValues(string(ProviderOpenAI), defaultOpenAIModel, "ok").Inc()

	return resp.Choices[0].Message.Content, nil
}

// classifyOpenAIError maps go-openai API errors onto the sentinel taxonomy.
func classifyOpenAIError(err error) error {
	var apiErr *openai.APIError
	if apperrors.As(err, &apiErr) {
		return newUpstreamError(ProviderOpenAI, apiErr.HTTPStatusCode, []byte(apiErr.Message))
	}

	return wrapTransportError(ProviderOpenAI, err)
}

var _ Provider = (*openAIProvider)(nil)
