// Package app wires the scanner's components together.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/api"
	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	"github.com/leadscan/telegram-lead-scanner/internal/core/llm"
	"github.com/leadscan/telegram-lead-scanner/internal/ingest/telegram"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/config"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/observability"
	"github.com/leadscan/telegram-lead-scanner/internal/scan/scanner"
	"github.com/leadscan/telegram-lead-scanner/internal/storage"
	"github.com/leadscan/telegram-lead-scanner/internal/storage/sheets"
)

// App holds the wired application.
type App struct {
	cfg     *config.Config
	logger  *zerolog.Logger
	scanner *scanner.Scanner
	source  telegram.Source
	api     *api.Server
	health  *observability.HealthServer
}

// New builds the application: row store, lead repository, LLM gateway,
// orchestrator, message source, and HTTP surfaces.
func New(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	rowStore, err := sheets.New(ctx, sheets.Config{
		SpreadsheetID:   cfg.SpreadsheetID,
		CredentialsFile: cfg.SheetsCredentialsFile,
		CallTimeout:     cfg.SheetsTimeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("init row store: %w", err)
	}

	repo := storage.NewLeadRepository(rowStore, logger)

	if err := repo.EnsureSheet(ctx); err != nil {
		return nil, fmt.Errorf("ensure leads sheet: %w", err)
	}

	sc := scanner.New(llm.New(cfg, logger), repo, scanner.Options{
		BatchSize:       cfg.ScanBatchSize,
		InterBatchDelay: cfg.ScanInterBatchDelay,
		MaxBatchRetries: cfg.ScanMaxBatchRetries,
	}, logger)

	source := telegram.NewReader(cfg, logger)

	return &App{
		cfg:     cfg,
		logger:  logger,
		scanner: sc,
		source:  source,
		api:     api.NewServer(cfg, sc, repo, source, logger),
		health:  observability.NewHealthServer(cfg.HealthPort, logger),
	}, nil
}

// RunServe runs the API and health servers until the context ends.
func (a *App) RunServe(ctx context.Context) error {
	go a.health.Start()

	errCh := make(chan error, 1)

	go func() {
		errCh <- a.api.Start()
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("api server: %w", err)
		}
	}

	a.logger.Info().Msg("shutting down")

	shutdownCtx := context.WithoutCancel(ctx)

	if err := a.api.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("api shutdown failed")
	}

	if err := a.health.Shutdown(shutdownCtx); err != nil {
		a.logger.Error().Err(err).Msg("health shutdown failed")
	}

	// Let an in-flight scan finish its persistence.
	a.scanner.Wait()

	return nil
}

// RunScan executes one scan over the configured chats and waits for it.
func (a *App) RunScan(ctx context.Context) error {
	since := time.Now().Add(-a.cfg.ScanWindow)

	a.logger.Info().
		Ints64("chat_ids", a.cfg.ScanChatIDs).
		Time("since", since).
		Msg("fetching messages")

	messages, err := a.source.FetchMessages(ctx, a.cfg.ScanChatIDs, since)
	if err != nil {
		return fmt.Errorf("fetch messages: %w", err)
	}

	if len(messages) == 0 {
		a.logger.Info().Msg("no messages in window, nothing to scan")

		return nil
	}

	run, err := a.scanner.Start(ctx, scanner.Request{
		Messages: messages,
		Criteria: domain.LeadCriteria{
			Template:      a.cfg.LeadCriteria,
			MinConfidence: a.cfg.MinConfidence,
		},
	})
	if err != nil {
		return fmt.Errorf("start scan: %w", err)
	}

	a.scanner.Wait()

	final, err := a.scanner.Status(run.ID)
	if err != nil {
		return err
	}

	a.logger.Info().
		Str("run_id", final.ID).
		Str("state", string(final.State)).
		Int("messages", final.ProcessedMessages).
		Int("leads", final.FoundLeads).
		Int("errors", len(final.Errors)).
		Msg("scan finished")

	if final.State == domain.ScanStateFailed {
		return fmt.Errorf("scan %s failed with %d errors", final.ID, len(final.Errors))
	}

	return nil
}
