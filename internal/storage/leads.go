package storage

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/leadscan/telegram-lead-scanner/internal/core/domain"
	apperrors "github.com/leadscan/telegram-lead-scanner/internal/core/errors"
	"github.com/leadscan/telegram-lead-scanner/internal/platform/observability"
)

const (
	// SheetLeads is the sheet all leads live on.
	SheetLeads = "Leads"

	// leadIDColumn is the column holding the deterministic lead ID.
	leadIDColumn = "I"

	rangeHeader     = SheetLeads + "!A1:I1"
	rangeLeadIDs    = SheetLeads + "!" + leadIDColumn + "2:" + leadIDColumn
	rangeAppend     = SheetLeads + "!A:I"
	fmtRangeContact = SheetLeads + "!G%d:H%d"

	// persistBatchSize caps rows per append call.
	persistBatchSize = 50

	// maxStoredMessageLen caps stored message text, in runes.
	maxStoredMessageLen = 4000

	// headerDataOffset is the first data row, 1-based.
	headerDataOffset = 2

	cellTrue  = "TRUE"
	cellFalse = "FALSE"
)

// leadHeader is the column contract. Lead ID stays last so the sheet reads
// naturally for humans while the scanner still has a stable key column.
var leadHeader = []interface{}{
	"Timestamp", "Channel", "Author", "Message", "Reason",
	"Confidence", "Contacted", "Contact Date", "Lead ID",
}

// LeadRepository persists leads and maintains the persisted-ID index that
// backs cross-run deduplication.
type LeadRepository struct {
	store  RowStore
	logger *zerolog.Logger

	// known holds every lead ID this repository believes is persisted.
	// Seeded by LoadExistingIDs, extended on successful appends.
	known map[string]struct{}
}

// NewLeadRepository creates a repository over the given row store.
func NewLeadRepository(store RowStore, logger *zerolog.Logger) *LeadRepository {
	return &LeadRepository{
		store:  store,
		logger: logger,
		known:  make(map[string]struct{}),
	}
}

// EnsureSheet creates the Leads sheet with its header row if missing.
func (r *LeadRepository) EnsureSheet(ctx context.Context) error {
	created, err := r.store.EnsureSheet(ctx, SheetLeads)
	if err != nil {
		return fmt.Errorf("ensure sheet: %w", err)
	}

	if !created {
		return nil
	}

	if err := r.store.UpdateRange(ctx, rangeHeader, [][]interface{}{leadHeader}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	r.logger.Info().Str("sheet", SheetLeads).Msg("created leads sheet")

	return nil
}

// LoadExistingIDs reads the persisted lead IDs from the ID column and seeds
// the repository's known set.
func (r *LeadRepository) LoadExistingIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.store.ReadRange(ctx, rangeLeadIDs)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrLeadIndexUnavailable, err)
	}

	ids := make(map[string]struct{}, len(rows))

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}

		id := strings.TrimSpace(row[0])
		if id != "" {
			ids[id] = struct{}{}
		}
	}

	r.known = make(map[string]struct{}, len(ids))
	for id := range ids {
		r.known[id] = struct{}{}
	}

	r.logger.Debug().Int("count", len(ids)).Msg("loaded existing lead IDs")

	return ids, nil
}

// Persist appends the given leads, skipping any whose ID is already known.
// Appends go out in chunks; a failed chunk is recorded and the remaining
// chunks still go out, so one bad write never discards a whole batch.
// Calling Persist twice with the same leads writes them once.
func (r *LeadRepository) Persist(ctx context.Context, leads []domain.Lead) PersistResult {
	res := PersistResult{}

	fresh := make([]domain.Lead, 0, len(leads))

	for _, lead := range leads {
		if _, ok := r.known[lead.ID]; ok {
			res.Skipped++

			continue
		}

		fresh = append(fresh, lead)
	}

	for start := 0; start < len(fresh); start += persistBatchSize {
		end := start + persistBatchSize
		if end > len(fresh) {
			end = len(fresh)
		}

		chunk := fresh[start:end]

		rows := make([][]interface{}, len(chunk))
		for i, lead := range chunk {
			rows[i] = leadToRow(lead)
		}

		if err := r.store.AppendRows(ctx, rangeAppend, rows); err != nil {
			r.logger.Error().Err(err).Int("rows", len(chunk)).Msg("append chunk failed")
			observability.RowStoreWrites.WithLabelValues("error").Inc()

			res.Failed += len(chunk)
			res.Errors = append(res.Errors, err.Error())

			continue
		}

		observability.RowStoreWrites.WithLabelValues("ok").Inc()

		for _, lead := range chunk {
			r.known[lead.ID] = struct{}{}
		}

		res.Written += len(chunk)
	}

	return res
}

// MarkContacted sets the contacted flag and contact date on a lead row.
func (r *LeadRepository) MarkContacted(ctx context.Context, leadID string, contacted bool, at time.Time) error {
	rows, err := r.store.ReadRange(ctx, rangeLeadIDs)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrLeadIndexUnavailable, err)
	}

	rowNum := 0

	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(row[0]) == leadID {
			rowNum = i + headerDataOffset

			break
		}
	}

	if rowNum == 0 {
		return fmt.Errorf("%w: %s", apperrors.ErrLeadNotFound, leadID)
	}

	contactedCell := cellFalse
	contactDate := ""

	if contacted {
		contactedCell = cellTrue
		contactDate = at.UTC().Format(time.RFC3339)
	}

	rng := fmt.Sprintf(fmtRangeContact, rowNum, rowNum)

	if err := r.store.UpdateRange(ctx, rng, [][]interface{}{{contactedCell, contactDate}}); err != nil {
		return fmt.Errorf("update contact status: %w", err)
	}

	return nil
}

// leadToRow maps a lead to its sheet row, in header order.
func leadToRow(lead domain.Lead) []interface{} {
	contacted := cellFalse
	contactDate := ""

	if lead.Contacted {
		contacted = cellTrue
	}

	if lead.ContactDate != nil {
		contactDate = lead.ContactDate.UTC().Format(time.RFC3339)
	}

	return []interface{}{
		time.UnixMilli(lead.Timestamp).UTC().Format(time.RFC3339),
		lead.Channel,
		lead.Author,
		truncateRunes(lead.Message, maxStoredMessageLen),
		lead.Reason,
		lead.Confidence,
		contacted,
		contactDate,
		lead.ID,
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}

	return string(runes[:max])
}
