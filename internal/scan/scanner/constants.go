package scanner

import "time"

// Default orchestration settings.
const (
	DefaultBatchSize       = 10
	DefaultInterBatchDelay = time.Second
	DefaultMaxBatchRetries = 2

	defaultRetryBackoff = 2 * time.Second

	// historyLimit caps retained finished runs.
	historyLimit = 50
)

// Batch error kinds, recorded on runs and exported as metric labels.
const (
	errKindAuth      = "auth"
	errKindRateLimit = "rate_limited"
	errKindTransport = "transport"
	errKindUpstream  = "upstream"
	errKindParse     = "parse"
	errKindPersist   = "persist"
	errKindDedup     = "dedup"
)

// Log keys.
const (
	logKeyRunID = "run_id"
	logKeyBatch = "batch"
)
