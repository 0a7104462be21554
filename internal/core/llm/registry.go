package llm

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
)

// Registry manages LLM providers and selects among them by priority.
type Registry struct {
	mu        sync.RWMutex
	providers map[ProviderName]Provider
	logger    *zerolog.Logger
}

// NewRegistry creates an empty provider registry.
func NewRegistry(logger *zerolog.Logger) *Registry {
	return &Registry{
		providers: make(map[ProviderName]Provider),
		logger:    logger,
	}
}

// Register adds a provider to the registry, replacing any existing provider
// with the same name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[p.Name()] = p
	r.logger.Info().
		Str(logKeyProvider, string(p.Name())).
		Int("priority", p.Priority()).
		Bool("configured", p.IsAvailable(domain.ScanCredentials{})).
		Msg("registered LLM provider")
}

// Get returns the provider with the given name.
func (r *Registry) Get(name ProviderName) (Provider, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]

	return p, ok
}

// Available returns the providers able to serve the given credentials,
// sorted by priority, highest first.
func (r *Registry) Available(creds domain.ScanCredentials) []Provider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	available := make([]Provider, 0, len(r.providers))

	for _, p := range r.providers {
		if p.IsAvailable(creds) {
			available = append(available, p)
		}
	}

	sort.Slice(available, func(i, j int) bool {
		return available[i].Priority() > available[j].Priority()
	})

	return available
}

// Complete tries available providers in priority order until one succeeds.
//
// Auth failures and context cancellation stop the fallback chain: a rejected
// key on the primary will be rejected everywhere the same credentials are
// used, and a cancelled run must not spend on fallbacks.
func (r *Registry) Complete(ctx context.Context, prompt string, creds domain.ScanCredentials) (string, error) {
	providers := r.Available(creds)
	if len(providers) == 0 {
		return "", fmt.Errorf("no LLM provider can serve the request, configure or supply an API key: %w", apperrors.ErrAuth)
	}

	var lastErr error

	for _, p := range providers {
		text, err := p.Complete(ctx, prompt, creds)
		if err == nil {
			return text, nil
		}

		lastErr = err

		if apperrors.Is(err, apperrors.ErrAuth) || ctx.Err() != nil {
			return "", err
		}

		r.logger.Warn().
			Err(err).
			Str(logKeyProvider, string(p.Name())).
			Msg("provider failed, trying next")
	}

	return "", lastErr
}
