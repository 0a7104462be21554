// Package llm provides the gateway to LLM completion providers.
//
// The gateway hides provider selection and fallback behind a single
// Complete call. Providers issue exactly one upstream request per call and
// map failures onto the sentinel taxonomy in core/errors; retry policy
// lives in the scanner, not here.
package llm

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
)

// Client is the completion interface the scanner depends on.
type Client interface {
	// Complete sends a classification prompt and returns the raw model
	// output. Credentials override the configured defaults when set.
	Complete(ctx context.Context, prompt string, creds domain.ScanCredentials) (string, error)
}

type client struct {
	registry *Registry
	logger   *zerolog.Logger
}

// New creates the LLM client and registers the configured providers.
func New(cfg *config.Config, logger *zerolog.Logger) Client {
	registry := NewRegistry(logger)

	registry.Register(NewOpenRouterProvider(cfg, logger))

	if cfg.OpenAIAPIKey != "" {
		registry.Register(NewOpenAIProvider(cfg, logger))
	}

	// The mock provider is an explicit opt-in for keyless development runs.
	// A merely empty key must not route to it: keys normally travel per
	// request, and a credentialed request deserves a real provider or an
	// auth error, never canned verdicts.
	if cfg.LLMAPIKey == llmAPIKeyMock {
		registry.Register(NewMockProvider(logger))
	}

	return &client{registry: registry, logger: logger}
}

func (c *client) Complete(ctx context.Context, prompt string, creds domain.ScanCredentials) (string, error) {
	return c.registry.Complete(ctx, prompt, creds)
}

var _ Client = (*client)(nil)
