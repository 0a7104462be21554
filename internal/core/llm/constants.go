package llm

import "time"

const (
	// Default completion parameters. The low temperature keeps verdicts
	// deterministic enough for threshold filtering to be meaningful.
	defaultTemperature = 0.1
	defaultMaxTokens   = 8192
	defaultTopP        = 0.95

	// Rate limiter settings shared by all providers.
	rateLimiterBurst = 5

	// Default timeout for completion requests.
	defaultRequestTimeout = 60 * time.Second

	// Sentinel API key value that forces the mock provider.
	llmAPIKeyMock = "mock"

	// Log keys.
	logKeyProvider = "provider"
	logKeyModel    = "model"
	logKeyStatus   = "status"

	// Error format strings.
	errRateLimiter       = "rate limiter: %w"
	errFmtMarshalRequest = "marshal request: %w"
	errFmtCreateRequest  = "create request: %w"
	errFmtReadResponse   = "read response body: %w"
	errFmtDecodeResponse = "decode response: %w"
)
