package llm

import (
	"context"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
)

// ProviderName identifies an LLM provider.
type ProviderName string

// Provider name constants.
const (
	ProviderOpenRouter ProviderName = "openrouter"
	ProviderOpenAI     ProviderName = "openai"
	ProviderMock       ProviderName = "mock"
)

// Priority constants for provider ordering.
const (
	PriorityPrimary  = 100 // Primary provider (OpenRouter)
	PriorityFallback = 50  // First fallback (OpenAI)
	PriorityMock     = 0   // Mock provider for testing
)

// Provider defines the interface for LLM completion providers.
//
// Complete issues exactly one synchronous request per call and performs no
// retries; retry policy belongs to the pipeline orchestrator. Failures map
// onto the sentinel taxonomy in core/errors via UpstreamError.
type Provider interface {
	// Name returns the provider identifier.
	Name() ProviderName

	// IsAvailable returns true if the provider can serve a request carrying
	// the given credentials. Per-run credentials make a provider available
	// even when no key is configured.
	IsAvailable(creds domain.ScanCredentials) bool

	// Priority returns the provider priority (higher = preferred).
	Priority() int

	// Complete sends the prompt with the given credentials and returns the
	// raw completion text. Credentials override the configured defaults
	// when set; they are never logged.
	Complete(ctx context.Context, prompt string, creds domain.ScanCredentials) (string, error)
}
