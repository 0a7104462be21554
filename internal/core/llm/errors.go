package llm

import (
	"context"
	"fmt"
	"net/http"

	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
)

const maxErrorBodyLen = 512

// UpstreamError carries the upstream HTTP status and response body for
// diagnosability. It unwraps to one of the sentinel errors in core/errors
// so callers classify with errors.Is.
type UpstreamError struct {
	Provider ProviderName
	Status   int
	Body     string
	kind     error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s: %v: status %d: %s", e.Provider, e.kind, e.Status, e.Body)
}

func (e *UpstreamError) Unwrap() error {
	return e.kind
}

// newUpstreamError classifies an HTTP status into the error taxonomy.
func newUpstreamError(provider ProviderName, status int, body []byte) *UpstreamError {
	kind := apperrors.ErrUpstream

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		kind = apperrors.ErrAuth
	case status == http.StatusTooManyRequests:
		kind = apperrors.ErrRateLimited
	}

	b := string(body)
	if len(b) > maxErrorBodyLen {
		b = b[:maxErrorBodyLen]
	}

	return &UpstreamError{Provider: provider, Status: status, Body: b, kind: kind}
}

// wrapTransportError maps request-level failures (connection reset, timeout,
// context deadline) onto ErrTransport so the orchestrator retries them.
// Context cancellation passes through untouched.
func wrapTransportError(provider ProviderName, err error) error {
	if err == nil {
		return nil
	}

	if apperrors.Is(err, context.Canceled) {
		return err
	}

	return fmt.Errorf("%s: %w: %v", provider, apperrors.ErrTransport, err)
}
