// Package scanner orchestrates scan runs: batching, classification,
// filtering, deduplication, and persistence.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
	"github.com/leadscan/telegram-lead-scanner/internal/core/llm"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/observability"
	"github.com/leadscan/telegram-lead-scanner/internal/scan/dedup"
	"github.com/leadscan/telegram-lead-scanner/internal/scan/prompt"
	"github.com/leadscan/telegram-lead-scanner/internal/scan/verdict"
	"github.com/leadscan/telegram-lead-scanner/internal/storage"
)

// Repository is the persistence surface the orchestrator needs.
type Repository interface {
	LoadExistingIDs(ctx context.Context) (map[string]struct{}, error)
	Persist(ctx context.Context, leads []domain.Lead) storage.PersistResult
}

// Request describes one scan run.
type Request struct {
	Messages    []domain.RawMessage
	Criteria    domain.LeadCriteria
	Credentials domain.ScanCredentials

	// AssumeNoPriorLeads lets a run proceed with an empty dedup index when
	// the persisted-lead index cannot be loaded. The run is marked
	// degraded; without this flag an unloadable index fails the run, since
	// scanning blind would write duplicates.
	AssumeNoPriorLeads bool
}

// Options tune the orchestrator.
type Options struct {
	BatchSize        int
	InterBatchDelay  time.Duration
	MaxBatchRetries  int
	RetryBackoffBase time.Duration
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}

	if o.InterBatchDelay < 0 {
		o.InterBatchDelay = DefaultInterBatchDelay
	}

	if o.MaxBatchRetries < 0 {
		o.MaxBatchRetries = DefaultMaxBatchRetries
	}

	if o.RetryBackoffBase <= 0 {
		o.RetryBackoffBase = defaultRetryBackoff
	}

	return o
}

// Scanner runs at most one scan at a time and retains finished runs.
type Scanner struct {
	llm    llm.Client
	repo   Repository
	parser *verdict.Parser
	opts   Options
	logger *zerolog.Logger

	mu      sync.Mutex
	current *runState
	history []domain.ScanRun
}

type runState struct {
	run    domain.ScanRun
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates the scan orchestrator.
func New(client llm.Client, repo Repository, opts Options, logger *zerolog.Logger) *Scanner {
	return &Scanner{
		llm:    client,
		repo:   repo,
		parser: verdict.NewParser(logger),
		opts:   opts.withDefaults(),
		logger: logger,
	}
}

// Start begins a scan run and returns its initial state. Exactly one run
// may be active; a second Start is rejected with ErrScanInProgress, never
// queued. The template is validated before the run starts so a broken
// template costs nothing.
func (s *Scanner) Start(ctx context.Context, req Request) (domain.ScanRun, error) {
	template := req.Criteria.Template
	if template == "" {
		template = prompt.DefaultTemplate
		req.Criteria.Template = template
	}

	if err := prompt.Validate(template); err != nil {
		return domain.ScanRun{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.run.State == domain.ScanStateRunning {
		return domain.ScanRun{}, apperrors.ErrScanInProgress
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	state := &runState{
		run: domain.ScanRun{
			ID:            uuid.NewString(),
			State:         domain.ScanStateRunning,
			StartedAt:     time.Now().UTC(),
			TotalMessages: len(req.Messages),
		},
		cancel: cancel,
		done:   make(chan struct{}),
	}

	s.current = state

	go s.execute(runCtx, state, req)

	return state.run, nil
}

// Status returns a snapshot of the run with the given ID.
func (s *Scanner) Status(id string) (domain.ScanRun, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.run.ID == id {
		return copyRun(s.current.run), nil
	}

	for _, run := range s.history {
		if run.ID == id {
			return copyRun(run), nil
		}
	}

	return domain.ScanRun{}, apperrors.ErrRunNotFound
}

// Stop cancels the run with the given ID. Progress made so far stays
// persisted and inspectable. Stopping an already finished run is a no-op.
func (s *Scanner) Stop(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil && s.current.run.ID == id {
		s.current.cancel()

		return nil
	}

	for _, run := range s.history {
		if run.ID == id {
			return nil
		}
	}

	return apperrors.ErrRunNotFound
}

// Wait blocks until the active run finishes. Returns immediately when no
// run is active.
func (s *Scanner) Wait() {
	s.mu.Lock()
	state := s.current
	s.mu.Unlock()

	if state == nil {
		return
	}

	<-state.done
}

// History returns finished runs, newest first.
func (s *Scanner) History() []domain.ScanRun {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.ScanRun, 0, len(s.history))
	for i := len(s.history) - 1; i >= 0; i-- {
		out = append(out, copyRun(s.history[i]))
	}

	return out
}

func (s *Scanner) execute(ctx context.Context, state *runState, req Request) {
	defer close(state.done)
	defer state.cancel()

	logger := s.logger.With().Str(logKeyRunID, state.run.ID).Logger()

	existing, err := s.repo.LoadExistingIDs(ctx)
	if err != nil {
		if !req.AssumeNoPriorLeads {
			logger.Error().Err(err).Msg("existing lead index unavailable, failing run")
			s.recordError(state, 0, errKindDedup, err)
			s.finish(state, domain.ScanStateFailed)

			return
		}

		logger.Warn().Err(err).Msg("existing lead index unavailable, running degraded")
		s.mutateRun(state, func(run *domain.ScanRun) {
			run.DegradedDedup = true
		})

		existing = map[string]struct{}{}
	}

	deduper := dedup.NewDeduper(existing, &logger)
	batches := splitBatches(req.Messages, s.opts.BatchSize)

	for i, batch := range batches {
		if ctx.Err() != nil {
			logger.Info().Int(logKeyBatch, i).Msg("scan stopped")

			break
		}

		fatal := s.processBatch(ctx, state, deduper, req, batch, i, &logger)
		if fatal {
			s.finish(state, domain.ScanStateFailed)

			return
		}

		if i < len(batches)-1 && !sleepCtx(ctx, s.opts.InterBatchDelay) {
			break
		}
	}

	s.finish(state, domain.ScanStateCompleted)
}

// processBatch runs one batch through the pipeline. Returns true on a
// fatal error that must end the run.
func (s *Scanner) processBatch(ctx context.Context, state *runState, deduper *dedup.Deduper, req Request, batch []domain.RawMessage, batchIdx int, logger *zerolog.Logger) bool {
	p, err := prompt.Build(req.Criteria.Template, batch)
	if err != nil {
		// Validated at Start; only a template mutated mid-run gets here.
		s.recordError(state, batchIdx, errKindParse, err)

		return false
	}

	raw, err := s.completeWithRetry(ctx, p, req.Credentials, logger)
	if err != nil {
		kind := classifyKind(err)
		s.recordError(state, batchIdx, kind, err)
		s.advanceProgress(state, len(batch), 0)

		if apperrors.Is(err, apperrors.ErrAuth) {
			logger.Error().Err(err).Msg("authentication rejected, aborting run")

			return true
		}

		logger.Warn().Err(err).Int(logKeyBatch, batchIdx).Msg("batch classification failed")

		return false
	}

	res, err := s.parser.Parse(raw, batch)
	if err != nil {
		s.recordError(state, batchIdx, errKindParse, err)
		s.advanceProgress(state, len(batch), 0)

		return false
	}

	accepted := verdict.Filter(res.Verdicts, req.Criteria.MinConfidence)
	leads := deduper.Materialize(accepted, batch)

	written := 0

	if len(leads) > 0 {
		persistRes := s.repo.Persist(ctx, leads)
		written = persistRes.Written

		if persistRes.Failed > 0 {
			err := fmt.Errorf("persist: %d of %d leads failed: %v",
				persistRes.Failed, len(leads), persistRes.Errors)
			s.recordError(state, batchIdx, errKindPersist, err)
		}
	}

	s.advanceProgress(state, len(batch), written)

	logger.Debug().
		Int(logKeyBatch, batchIdx).
		Int("messages", len(batch)).
		Int("verdicts", len(res.Verdicts)).
		Int("accepted", len(accepted)).
		Int("written", written).
		Msg("batch processed")

	return false
}

// completeWithRetry calls the LLM, retrying rate-limit and transport
// failures with doubling backoff. Other failures return immediately.
func (s *Scanner) completeWithRetry(ctx context.Context, p string, creds domain.ScanCredentials, logger *zerolog.Logger) (string, error) {
	backoff := s.opts.RetryBackoffBase

	var lastErr error

	for attempt := 0; attempt <= s.opts.MaxBatchRetries; attempt++ {
		if attempt > 0 {
			logger.Warn().
				Err(lastErr).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("retrying batch")

			if !sleepCtx(ctx, backoff) {
				return "", ctx.Err()
			}

			backoff *= 2
		}

		raw, err := s.llm.Complete(ctx, p, creds)
		if err == nil {
			return raw, nil
		}

		lastErr = err

		if !apperrors.Is(err, apperrors.ErrRateLimited) && !apperrors.Is(err, apperrors.ErrTransport) {
			return "", err
		}
	}

	return "", lastErr
}

func (s *Scanner) recordError(state *runState, batch int, kind string, err error) {
	observability.ScanBatchErrors.WithLabelValues(kind).Inc()

	s.mutateRun(state, func(run *domain.ScanRun) {
		run.Errors = append(run.Errors, domain.ScanError{
			Batch:     batch,
			Kind:      kind,
			Message:   err.Error(),
			Timestamp: time.Now().UTC(),
		})
	})
}

func (s *Scanner) advanceProgress(state *runState, processed, found int) {
	observability.ScanMessagesProcessed.Add(float64(processed))
	observability.ScanLeadsFound.Add(float64(found))

	s.mutateRun(state, func(run *domain.ScanRun) {
		run.ProcessedMessages += processed
		run.FoundLeads += found
	})
}

func (s *Scanner) mutateRun(state *runState, fn func(*domain.ScanRun)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	fn(&state.run)
}

// finish moves the run to a terminal state and into history.
func (s *Scanner) finish(state *runState, terminal domain.ScanState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	state.run.State = terminal
	state.run.FinishedAt = time.Now().UTC()
	state.run.Completed = terminal == domain.ScanStateCompleted &&
		state.run.ProcessedMessages == state.run.TotalMessages

	observability.ScansTotal.WithLabelValues(string(terminal)).Inc()

	s.history = append(s.history, copyRun(state.run))
	if len(s.history) > historyLimit {
		s.history = s.history[len(s.history)-historyLimit:]
	}
}

func splitBatches(messages []domain.RawMessage, size int) [][]domain.RawMessage {
	if len(messages) == 0 {
		return nil
	}

	batches := make([][]domain.RawMessage, 0, (len(messages)+size-1)/size)

	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}

		batches = append(batches, messages[start:end])
	}

	return batches
}

// sleepCtx sleeps for d, returning false when the context ends first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func copyRun(run domain.ScanRun) domain.ScanRun {
	out := run
	out.Errors = append([]domain.ScanError(nil), run.Errors...)

	return out
}

func classifyKind(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrAuth):
		return errKindAuth
	case apperrors.Is(err, apperrors.ErrRateLimited):
		return errKindRateLimit
	case apperrors.Is(err, apperrors.ErrTransport):
		return errKindTransport
	case apperrors.Is(err, apperrors.ErrParseFailure):
		return errKindParse
	default:
		return errKindUpstream
	}
}
