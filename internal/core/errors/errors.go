// Package errors provides centralized error definitions for the scanner.
//
// Naming conventions:
//   - Exported errors (Err*): for errors callers check with errors.Is
//   - Sentinel errors are variables, not inline errors.New calls
//   - Use fmt.Errorf with %w to wrap sentinel errors with context
package errors

import "errors"

// LLM gateway errors. The gateway maps upstream HTTP responses onto these
// sentinels; llm.UpstreamError carries the status and body alongside.
var (
	// ErrAuth indicates the upstream rejected the credentials. Fatal to a
	// scan run.
	ErrAuth = errors.New("authentication rejected")

	// ErrRateLimited indicates upstream throttling. Retryable.
	ErrRateLimited = errors.New("rate limited")

	// ErrTransport indicates a connectivity failure or timeout. Retryable.
	ErrTransport = errors.New("transport failure")

	// ErrUpstream indicates any other non-2xx or malformed upstream
	// response. Recorded as a batch error, not retried.
	ErrUpstream = errors.New("upstream error")

	// ErrEmptyResponse indicates the completion response had no choices.
	ErrEmptyResponse = errors.New("empty response")
)

// Pipeline errors.
var (
	// ErrParseFailure indicates no structured verdicts could be extracted
	// from the model response. Batch-level, never fatal to the run.
	ErrParseFailure = errors.New("failed to parse model response")

	// ErrTemplateMissingPlaceholder indicates the criteria template lacks
	// the message batch placeholder. Surfaced at validation time, before
	// any LLM spend.
	ErrTemplateMissingPlaceholder = errors.New("criteria template missing message placeholder")

	// ErrScanInProgress indicates a scan run is already active. A second
	// start is rejected, never queued.
	ErrScanInProgress = errors.New("scan already in progress")

	// ErrRunNotFound indicates an unknown scan run identifier.
	ErrRunNotFound = errors.New("scan run not found")

	// ErrLeadIndexUnavailable indicates the existing-lead index could not
	// be loaded from the row store.
	ErrLeadIndexUnavailable = errors.New("existing lead index unavailable")
)

// Row store errors.
var (
	// ErrSheetNotFound indicates the target sheet does not exist.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrLeadNotFound indicates a lead row could not be located.
	ErrLeadNotFound = errors.New("lead not found")
)

// Is is a convenience wrapper around errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As is a convenience wrapper around errors.As.
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}
